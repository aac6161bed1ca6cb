package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pomotree/internal/store"
)

type focusPhase int

const (
	focusIdle focusPhase = iota
	focusWork
	focusShortBreak
	focusLongBreak
	focusDone
)

type focusModel struct {
	store  *store.Store
	width  int
	height int

	userID string

	phase          focusPhase
	completedCount int
	targetCount    int
	countdown      countdownModel

	// Durations from settings
	focusDuration time.Duration
	shortBreak    time.Duration
	longBreak     time.Duration

	// Task picker
	tasks        []store.Task
	picking      bool
	pickerCursor int
	taskID       *string
	taskTitle    string

	// Settings form
	formActive bool
	form       *huh.Form
	formFocus  *string
	formShort  *string
	formLong   *string
	formTarget *string
}

func newFocusModel(s *store.Store) focusModel {
	ff, fs, fl, ft := "", "", "", ""
	m := focusModel{
		store:       s,
		phase:       focusIdle,
		countdown:   newCountdownModel(),
		targetCount: 4,
		formFocus:   &ff,
		formShort:   &fs,
		formLong:    &fl,
		formTarget:  &ft,
	}
	m.loadSettings()
	return m
}

func (f *focusModel) loadSettings() {
	f.focusDuration = f.settingMinutes(store.SettingFocusDuration, 25*time.Minute)
	f.shortBreak = f.settingMinutes(store.SettingShortBreak, 5*time.Minute)
	f.longBreak = f.settingMinutes(store.SettingLongBreak, 15*time.Minute)
	if n, err := f.store.GetSettingInt(store.SettingSessionTarget); err == nil {
		f.targetCount = n
	}
}

func (f *focusModel) settingMinutes(key string, fallback time.Duration) time.Duration {
	if n, err := f.store.GetSettingInt(key); err == nil {
		return time.Duration(n) * time.Minute
	}
	return fallback
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f *focusModel) setUser(u *store.User) {
	if u == nil {
		f.userID = ""
		return
	}
	f.userID = u.ID
}

type focusTasksMsg struct {
	tasks []store.Task
}

// refresh loads the active user's open tasks for the picker.
func (f focusModel) refresh() tea.Cmd {
	if f.userID == "" {
		return nil
	}
	userID := f.userID
	return func() tea.Msg {
		var open []store.Task
		projects, _ := f.store.ListProjects(userID)
		for _, p := range projects {
			tasks, _ := f.store.ListTasks(p.ID)
			for _, t := range tasks {
				if t.Status == store.StatusTodo || t.Status == store.StatusInProgress {
					open = append(open, t)
				}
			}
		}
		return focusTasksMsg{tasks: open}
	}
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	if f.formActive && f.form != nil {
		return f.updateForm(msg)
	}

	switch msg := msg.(type) {
	case focusTasksMsg:
		f.tasks = msg.tasks
		return f, nil

	case tickMsg:
		if f.countdown.tick() {
			return f.advancePhase()
		}
		return f, nil

	case tea.KeyMsg:
		if f.picking {
			return f.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if f.phase == focusIdle || f.phase == focusDone {
				if f.userID == "" {
					return f, func() tea.Msg {
						return statusMsg{text: "Select a user first (press 2)", isError: true}
					}
				}
				if len(f.tasks) == 0 {
					return f.beginRound(nil, "")
				}
				f.picking = true
				f.pickerCursor = 0
				return f, nil
			}
		case key.Matches(msg, keys.Stop):
			if f.phase != focusIdle {
				return f.cancelRound()
			}
		case key.Matches(msg, keys.Skip):
			if f.phase == focusShortBreak || f.phase == focusLongBreak {
				return f.advancePhase()
			}
			if f.phase == focusWork {
				f.countdown.toggle()
			}
		case key.Matches(msg, keys.Enter):
			if f.phase == focusIdle || f.phase == focusDone {
				return f.showSettingsForm()
			}
		}
	}
	return f, nil
}

func (f focusModel) updatePicker(msg tea.KeyMsg) (focusModel, tea.Cmd) {
	// Cursor 0 is "no task"; tasks follow.
	switch {
	case key.Matches(msg, keys.Up):
		if f.pickerCursor > 0 {
			f.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if f.pickerCursor < len(f.tasks) {
			f.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		f.picking = false
		if f.pickerCursor == 0 {
			return f.beginRound(nil, "")
		}
		t := f.tasks[f.pickerCursor-1]
		return f.beginRound(&t.ID, t.Title)
	case key.Matches(msg, keys.Back):
		f.picking = false
	}
	return f, nil
}

func (f focusModel) beginRound(taskID *string, taskTitle string) (focusModel, tea.Cmd) {
	f.completedCount = 0
	f.loadSettings()
	f.taskID = taskID
	f.taskTitle = taskTitle
	return f.startFocusPhase()
}

func (f focusModel) startFocusPhase() (focusModel, tea.Cmd) {
	f.phase = focusWork
	f.countdown.start(f.focusDuration)
	if f.taskID != nil {
		f.store.UpdateTaskStatus(*f.taskID, store.StatusInProgress)
	}
	return f, nil
}

// advancePhase moves to the next phase. A round is targetCount work phases
// separated by short breaks, closed out by a long break before Done.
func (f focusModel) advancePhase() (focusModel, tea.Cmd) {
	switch f.phase {
	case focusWork:
		logCmd := f.logSession()
		f.completedCount++

		if f.completedCount >= f.targetCount {
			f.phase = focusLongBreak
			f.countdown.start(f.longBreak)
			return f, tea.Batch(logCmd, func() tea.Msg {
				return statusMsg{text: "Long break! \a"}
			})
		}

		f.phase = focusShortBreak
		f.countdown.start(f.shortBreak)
		return f, tea.Batch(logCmd, func() tea.Msg {
			return statusMsg{text: "Break time! \a"}
		})

	case focusShortBreak:
		return f.startFocusPhase()

	case focusLongBreak:
		f.phase = focusDone
		f.countdown.stop()
		return f, func() tea.Msg {
			return statusMsg{text: "Focus round complete! \a"}
		}
	}
	return f, nil
}

// logSession records the finished focus phase and folds it into today's
// analytics counters.
func (f focusModel) logSession() tea.Cmd {
	userID := f.userID
	taskID := f.taskID
	start := f.countdown.phaseStart
	minutes := int(f.focusDuration.Minutes())

	return func() tea.Msg {
		end := time.Now().UTC()
		sess, err := f.store.CreateSession(store.NewSession{
			TaskID:    taskID,
			Duration:  minutes,
			StartTime: start,
			EndTime:   &end,
			Completed: true,
		})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Session error: %v", err), isError: true}
		}
		if _, err := f.store.AccumulateAnalytics(userID, store.DateOf(end), 0, 1, minutes); err != nil {
			return statusMsg{text: fmt.Sprintf("Analytics error: %v", err), isError: true}
		}
		return sessionLoggedMsg{session: sess}
	}
}

// cancelRound abandons the round. A work phase in flight is still recorded
// as an uncompleted session covering the minutes actually spent.
func (f focusModel) cancelRound() (focusModel, tea.Cmd) {
	var logCmd tea.Cmd
	if f.phase == focusWork {
		taskID := f.taskID
		start := f.countdown.phaseStart
		minutes := max(1, f.countdown.elapsedMinutes())
		logCmd = func() tea.Msg {
			end := time.Now().UTC()
			if _, err := f.store.CreateSession(store.NewSession{
				TaskID:    taskID,
				Duration:  minutes,
				StartTime: start,
				EndTime:   &end,
				Completed: false,
			}); err != nil {
				return statusMsg{text: fmt.Sprintf("Session error: %v", err), isError: true}
			}
			return statusMsg{text: "Focus round cancelled"}
		}
	}

	f.phase = focusIdle
	f.countdown.stop()
	if logCmd != nil {
		return f, logCmd
	}
	return f, func() tea.Msg {
		return statusMsg{text: "Focus round cancelled"}
	}
}

func (f focusModel) showSettingsForm() (focusModel, tea.Cmd) {
	*f.formFocus = strconv.Itoa(int(f.focusDuration.Minutes()))
	*f.formShort = strconv.Itoa(int(f.shortBreak.Minutes()))
	*f.formLong = strconv.Itoa(int(f.longBreak.Minutes()))
	*f.formTarget = strconv.Itoa(f.targetCount)

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Focus length (min)").Value(f.formFocus),
			huh.NewInput().Title("Short break (min)").Value(f.formShort),
			huh.NewInput().Title("Long break (min)").Value(f.formLong),
			huh.NewInput().Title("Sessions per round").Value(f.formTarget),
		).Title("Focus Settings"),
	).WithShowHelp(true).WithShowErrors(true)

	f.formActive = true
	return f, f.form.Init()
}

func (f focusModel) updateForm(msg tea.Msg) (focusModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			f.formActive = false
			f.form = nil
			return f, nil
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		f.formActive = false
		f.saveSettings()
		f.loadSettings()
		return f, nil
	}
	return f, cmd
}

func (f focusModel) saveSettings() {
	save := func(key, val string) {
		if _, err := strconv.Atoi(val); err == nil {
			f.store.SetSetting(key, val)
		}
	}
	save(store.SettingFocusDuration, *f.formFocus)
	save(store.SettingShortBreak, *f.formShort)
	save(store.SettingLongBreak, *f.formLong)
	save(store.SettingSessionTarget, *f.formTarget)
}

func (f focusModel) view() string {
	w := f.width - 4

	if f.formActive && f.form != nil {
		title := titleStyle.Render("Focus Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", f.form.View()),
		)
	}

	if f.picking {
		return f.renderTaskPicker(w)
	}

	title := titleStyle.Render("Focus")

	var timeDisplay, phaseLabel, indicator string
	switch f.phase {
	case focusIdle:
		timeDisplay = countdownIdleStyle.Width(w - 6).Render(formatClock(f.focusDuration))
		phaseLabel = mutedStyle.Render("Ready to start")
		indicator = mutedStyle.Render("Press s to begin")
	case focusWork:
		timeDisplay = countdownFocusStyle.Width(w - 6).Render(formatClock(f.countdown.currentRemaining()))
		phaseLabel = accentStyle.Bold(true).Render("FOCUS")
		if f.countdown.paused() {
			phaseLabel = warningStyle.Bold(true).Render("PAUSED")
		}
		indicator = f.renderProgress()
	case focusShortBreak:
		timeDisplay = countdownBreakStyle.Width(w - 6).Render(formatClock(f.countdown.currentRemaining()))
		phaseLabel = successStyle.Bold(true).Render("SHORT BREAK")
		indicator = f.renderProgress()
	case focusLongBreak:
		timeDisplay = countdownBreakStyle.Width(w - 6).Render(formatClock(f.countdown.currentRemaining()))
		phaseLabel = highlightStyle.Bold(true).Render("LONG BREAK")
		indicator = f.renderProgress()
	case focusDone:
		timeDisplay = countdownBreakStyle.Width(w - 6).Render("Done!")
		phaseLabel = successStyle.Bold(true).Render("ROUND COMPLETE")
		indicator = f.renderProgress()
	}

	taskLine := ""
	if f.phase != focusIdle && f.taskTitle != "" {
		taskLine = highlightStyle.Render(f.taskTitle)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		timeDisplay,
		phaseLabel,
		taskLine,
		"",
		indicator,
	)

	var controls string
	switch f.phase {
	case focusIdle, focusDone:
		controls = mutedStyle.Render("s: start  enter: settings  q: quit")
	case focusWork:
		controls = mutedStyle.Render("space: pause  x: cancel")
	case focusShortBreak, focusLongBreak:
		controls = mutedStyle.Render("space: skip break  x: cancel")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

func (f focusModel) renderProgress() string {
	var parts []string
	for i := 0; i < f.targetCount; i++ {
		if i < f.completedCount {
			parts = append(parts, successStyle.Render("●"))
		} else if i == f.completedCount && f.phase == focusWork {
			parts = append(parts, accentStyle.Render("◐"))
		} else {
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	progress := strings.Join(parts, " ")
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", f.completedCount, f.targetCount))
	return progress + counter
}

func (f focusModel) renderTaskPicker(w int) string {
	title := titleStyle.Render("Focus on")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	items := make([]string, 0, len(f.tasks)+1)
	items = append(items, "(no task)")
	for _, t := range f.tasks {
		items = append(items, t.Title)
	}

	for i, item := range items {
		cursor := "  "
		style := normalItemStyle
		if i == f.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+item))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
