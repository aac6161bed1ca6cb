package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotree/internal/store"
)

type dashboardModel struct {
	store  *store.Store
	width  int
	height int

	user *store.User

	today          *store.Analytics
	recentSessions []store.PomodoroSession
	projects       []store.Project
	taskTitles     map[string]string

	weekCompleted int
	weekMinutes   int64
}

func newDashboardModel(s *store.Store) dashboardModel {
	return dashboardModel{store: s}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *dashboardModel) setUser(u *store.User) {
	d.user = u
	d.today = nil
	d.recentSessions = nil
	d.projects = nil
}

type dashboardDataMsg struct {
	today          *store.Analytics
	recentSessions []store.PomodoroSession
	projects       []store.Project
	taskTitles     map[string]string
	weekCompleted  int
	weekMinutes    int64
}

func (d dashboardModel) loadData() tea.Cmd {
	if d.user == nil {
		return nil
	}
	userID := d.user.ID
	return func() tea.Msg {
		var data dashboardDataMsg

		today, err := d.store.GetAnalytics(userID, store.DateOf(time.Now()))
		if err == nil {
			data.today = today
		} else if !errors.Is(err, store.ErrNotFound) {
			return statusMsg{text: fmt.Sprintf("Dashboard error: %v", err), isError: true}
		}

		sessions, _ := d.store.ListSessionsForUser(userID)
		if len(sessions) > 5 {
			sessions = sessions[:5]
		}
		data.recentSessions = sessions

		data.taskTitles = make(map[string]string)
		for _, sess := range sessions {
			if sess.TaskID == nil {
				continue
			}
			if t, err := d.store.GetTask(*sess.TaskID); err == nil {
				data.taskTitles[t.ID] = t.Title
			}
		}

		data.projects, _ = d.store.ListProjects(userID)

		now := time.Now().UTC()
		data.weekCompleted, data.weekMinutes, _ = d.store.GetFocusStats(now.AddDate(0, 0, -7), now.Add(time.Hour))

		return data
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.today = msg.today
		d.recentSessions = msg.recentSessions
		d.projects = msg.projects
		d.taskTitles = msg.taskTitles
		d.weekCompleted = msg.weekCompleted
		d.weekMinutes = msg.weekMinutes
		return d, nil
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	if d.user == nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Welcome"),
				"",
				mutedStyle.Render("No user selected. Press 2 to pick or create one."),
			),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTodayPanel(w),
		d.renderProjectsPanel(w),
		d.renderRecentPanel(w),
	)
}

func (d dashboardModel) renderTodayPanel(w int) string {
	title := titleStyle.Render("Today") + mutedStyle.Render("  "+d.user.Name)

	tasksDone, sessions, focusMinutes := 0, 0, 0
	if d.today != nil {
		tasksDone = d.today.TasksCompleted
		sessions = d.today.PomodoroSessions
		focusMinutes = d.today.TotalFocusTime
	}

	stats := fmt.Sprintf("  %s tasks done   %s sessions   %s focused",
		highlightStyle.Render(fmt.Sprintf("%d", tasksDone)),
		highlightStyle.Render(fmt.Sprintf("%d", sessions)),
		highlightStyle.Render(formatMinutes(focusMinutes)),
	)

	week := mutedStyle.Render(fmt.Sprintf("  last 7 days: %d sessions, %s focused",
		d.weekCompleted, formatMinutes(int(d.weekMinutes))))

	return activePanelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", stats, week),
	)
}

func (d dashboardModel) renderProjectsPanel(w int) string {
	title := titleStyle.Render("Projects")

	if len(d.projects) == 0 {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				title,
				mutedStyle.Render("No projects yet. Press 3 to create one."),
			),
		)
	}

	var rows []string
	rows = append(rows, title)
	for _, p := range d.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render("●")
		row := fmt.Sprintf("  %s %-24s", colorDot, p.Name)
		if p.Description != "" {
			row += mutedStyle.Render(p.Description)
		}
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recentSessions) == 0 {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				title,
				mutedStyle.Render("No sessions yet. Press 4 to start focusing."),
			),
		)
	}

	var rows []string
	rows = append(rows, title)
	for _, sess := range d.recentSessions {
		taskName := "(no task)"
		if sess.TaskID != nil {
			if name, ok := d.taskTitles[*sess.TaskID]; ok {
				taskName = name
			}
		}
		startStr := sess.StartTime.Local().Format("Jan 02 15:04")
		status := "✓"
		if !sess.Completed {
			status = "○"
		}
		rows = append(rows, fmt.Sprintf("  %s %s  %-24s %s",
			status, startStr, taskName, formatMinutes(sess.Duration)))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
