package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pomotree/internal/store"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID              string `json:"id"`
	Project         string `json:"project,omitempty"`
	Task            string `json:"task"`
	TaskID          string `json:"task_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Duration        string `json:"duration"`
	Completed       bool   `json:"completed"`
	Notes           string `json:"notes,omitempty"`
}

func ToJSON(sessions []store.PomodoroSession, tasks map[string]*store.Task, projects map[string]*store.Project, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, sess := range sessions {
		endStr := ""
		if sess.EndTime != nil {
			endStr = sess.EndTime.Local().Format(time.RFC3339)
		}
		taskID := ""
		if sess.TaskID != nil {
			taskID = *sess.TaskID
		}

		export.Sessions = append(export.Sessions, jsonSession{
			ID:              sess.ID,
			Project:         projectName(sess, tasks, projects),
			Task:            taskName(sess, tasks),
			TaskID:          taskID,
			StartTime:       sess.StartTime.Local().Format(time.RFC3339),
			EndTime:         endStr,
			DurationMinutes: sess.Duration,
			Duration:        formatMinutes(sess.Duration),
			Completed:       sess.Completed,
			Notes:           sess.Notes,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
