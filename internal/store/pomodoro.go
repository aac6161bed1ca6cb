package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSession records a pomodoro session. TaskID may be nil; when set it
// must reference an existing task (the schema clears it if that task is
// later deleted).
func (s *Store) CreateSession(ns NewSession) (*PomodoroSession, error) {
	if ns.Duration <= 0 {
		return nil, fmt.Errorf("%w: session duration must be positive", ErrConstraint)
	}
	if ns.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: session start time is required", ErrConstraint)
	}

	var end any
	if ns.EndTime != nil {
		end = ns.EndTime.UTC().Format(time.RFC3339)
	}
	completed := 0
	if ns.Completed {
		completed = 1
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO pomodoro_sessions (id, task_id, duration, start_time, end_time, completed, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ns.TaskID, ns.Duration, ns.StartTime.UTC().Format(time.RFC3339), end, completed, ns.Notes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", translateErr(err))
	}
	return s.GetSession(id)
}

func scanSession(r rowScanner) (*PomodoroSession, error) {
	p := &PomodoroSession{}
	var taskID, endTime sql.NullString
	var startTime, createdAt string
	var completed int

	err := r.Scan(&p.ID, &taskID, &p.Duration, &startTime, &endTime, &completed, &p.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		p.TaskID = &taskID.String
	}
	p.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		p.EndTime = &t
	}
	p.Completed = completed == 1
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

const sessionColumns = `id, task_id, duration, start_time, end_time, completed, notes, created_at`

func (s *Store) GetSession(id string) (*PomodoroSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM pomodoro_sessions WHERE id = ?`, id)
	p, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) listSessions(query string, args ...any) ([]PomodoroSession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []PomodoroSession
	for rows.Next() {
		p, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *p)
	}
	return sessions, rows.Err()
}

func (s *Store) ListSessionsForTask(taskID string) ([]PomodoroSession, error) {
	return s.listSessions(`SELECT `+sessionColumns+` FROM pomodoro_sessions WHERE task_id = ? ORDER BY start_time`, taskID)
}

// ListSessionsForUser returns sessions on tasks inside the user's projects,
// newest first.
func (s *Store) ListSessionsForUser(userID string) ([]PomodoroSession, error) {
	return s.listSessions(`
		SELECT s.id, s.task_id, s.duration, s.start_time, s.end_time, s.completed, s.notes, s.created_at
		FROM pomodoro_sessions s
		JOIN tasks t ON t.id = s.task_id
		JOIN projects p ON p.id = t.project_id
		WHERE p.user_id = ?
		ORDER BY s.start_time DESC`, userID)
}

// CompleteSession closes a session, marking it completed at end.
func (s *Store) CompleteSession(id string, end time.Time) error {
	res, err := s.db.Exec(
		`UPDATE pomodoro_sessions SET end_time = ?, completed = 1 WHERE id = ?`,
		end.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete session %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetFocusStats returns the number of completed sessions and the total
// focused minutes in [from, to).
func (s *Store) GetFocusStats(from, to time.Time) (completed int, totalMinutes int64, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(duration), 0)
		FROM pomodoro_sessions
		WHERE completed = 1
		  AND start_time >= ? AND start_time < ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&completed, &totalMinutes)
	return
}
