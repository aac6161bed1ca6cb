package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/pomotree/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewUsers
	viewProjects
	viewFocus
	viewReports
)

var viewNames = []string{"Dashboard", "Users", "Projects", "Focus", "Reports"}

// --- Messages ---

type userSelectedMsg struct {
	user *store.User
}

type userCreatedMsg struct {
	user *store.User
}

type projectCreatedMsg struct {
	project *store.Project
}

type taskCreatedMsg struct {
	task *store.Task
}

type sessionLoggedMsg struct {
	session *store.PomodoroSession
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatMinutes(mins int) string {
	h := mins / 60
	m := mins % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
