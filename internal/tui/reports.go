package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotree/internal/store"
)

type reportMetric int

const (
	metricFocusTime reportMetric = iota
	metricSessions
	metricTasksDone
)

var metricNames = []string{"Focus Time", "Sessions", "Tasks Done"}

const reportWindowDays = 14

type reportsModel struct {
	store  *store.Store
	width  int
	height int

	userID string

	metric    reportMetric
	analytics []store.Analytics
	offset    int // 14-day windows back from today (0 = current)

	chart barchart.Model
}

func newReportsModel(s *store.Store) reportsModel {
	return reportsModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r *reportsModel) setUser(u *store.User) {
	if u == nil {
		r.userID = ""
	} else {
		r.userID = u.ID
	}
	r.analytics = nil
	r.offset = 0
}

type reportsDataMsg struct {
	analytics []store.Analytics
}

func (r reportsModel) refresh() tea.Cmd {
	if r.userID == "" {
		return nil
	}
	userID := r.userID
	from, to := r.dateRange()
	return func() tea.Msg {
		analytics, _ := r.store.ListAnalytics(userID, store.DateOf(from), store.DateOf(to))
		return reportsDataMsg{analytics: analytics}
	}
}

// dateRange returns the half-open window [from, to) covered by the report.
func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := today.AddDate(0, 0, 1-reportWindowDays*r.offset)
	from := to.AddDate(0, 0, -reportWindowDays)
	return from, to
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.analytics = msg.analytics
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Tab):
			r.metric = (r.metric + 1) % 3
			r.buildChart()
			return r, nil
		}
	}
	return r, nil
}

func (r reportsModel) metricValue(a store.Analytics) float64 {
	switch r.metric {
	case metricSessions:
		return float64(a.PomodoroSessions)
	case metricTasksDone:
		return float64(a.TasksCompleted)
	default:
		return float64(a.TotalFocusTime) / 60.0 // hours
	}
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.Analytics, len(r.analytics))
	for _, a := range r.analytics {
		byDate[a.Date] = a
	}

	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		label := d.Format("02")

		value := 0.0
		style := lipgloss.NewStyle().Foreground(colorSubtle)
		if a, ok := byDate[store.DateOf(d)]; ok {
			value = r.metricValue(a)
			style = lipgloss.NewStyle().Foreground(colorPrimary)
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{{Name: metricNames[r.metric], Value: value, Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	if r.userID == "" {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Reports"),
				"",
				mutedStyle.Render("Select a user first (press 2)."),
			),
		)
	}

	// Metric tabs
	var tabs []string
	for i, name := range metricNames {
		if reportMetric(i) == r.metric {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	metricTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s — %s",
		from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", metricTabs, "  ", dateLabel,
	)

	chartView := r.chart.View()
	tableView := r.renderSummaryTable(w)
	nav := mutedStyle.Render("  ←/→: navigate  tab: switch metric")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", tableView, "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.analytics) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s %12s", "Date", "Tasks", "Sessions", "Focus"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 48))))

	totalTasks, totalSessions, totalFocus := 0, 0, 0
	for _, a := range r.analytics {
		rows = append(rows, fmt.Sprintf("  %-12s %10d %10d %12s",
			a.Date, a.TasksCompleted, a.PomodoroSessions, formatMinutes(a.TotalFocusTime),
		))
		totalTasks += a.TasksCompleted
		totalSessions += a.PomodoroSessions
		totalFocus += a.TotalFocusTime
	}

	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 48))))
	rows = append(rows, highlightStyle.Render(fmt.Sprintf("  %-12s %10d %10d %12s",
		"Total", totalTasks, totalSessions, formatMinutes(totalFocus))))

	return strings.Join(rows, "\n")
}
