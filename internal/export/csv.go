package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/pomotree/internal/store"
)

// taskName resolves a session's task title. Sessions whose task was deleted
// keep a cleared link and show as "Unlinked".
func taskName(sess store.PomodoroSession, tasks map[string]*store.Task) string {
	if sess.TaskID == nil {
		return "Unlinked"
	}
	if t, ok := tasks[*sess.TaskID]; ok {
		return t.Title
	}
	return "Unknown"
}

func projectName(sess store.PomodoroSession, tasks map[string]*store.Task, projects map[string]*store.Project) string {
	if sess.TaskID == nil {
		return ""
	}
	t, ok := tasks[*sess.TaskID]
	if !ok || t.ProjectID == nil {
		return ""
	}
	if p, ok := projects[*t.ProjectID]; ok {
		return p.Name
	}
	return "Unknown"
}

func ToCSV(sessions []store.PomodoroSession, tasks map[string]*store.Task, projects map[string]*store.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Project", "Task", "Start", "End", "Minutes", "Duration", "Completed", "Notes"}); err != nil {
		return err
	}

	for _, sess := range sessions {
		endStr := ""
		if sess.EndTime != nil {
			endStr = sess.EndTime.Local().Format(time.RFC3339)
		}

		row := []string{
			sess.ID,
			projectName(sess, tasks, projects),
			taskName(sess, tasks),
			sess.StartTime.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", sess.Duration),
			formatMinutes(sess.Duration),
			strconv.FormatBool(sess.Completed),
			sess.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatMinutes(mins int) string {
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
