package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateOf formats a time as an analytics date key (YYYY-MM-DD, UTC).
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// UpsertAnalytics writes the counters for (userID, date), replacing any
// existing row. The conflict target is the schema's unique (user_id, date)
// pair, so the read-check-write race cannot produce duplicates.
func (s *Store) UpsertAnalytics(userID, date string, tasksCompleted, pomodoroSessions, totalFocusTime int) (*Analytics, error) {
	if date == "" {
		return nil, fmt.Errorf("%w: analytics date is required", ErrConstraint)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO analytics (id, user_id, date, tasks_completed, pomodoro_sessions, total_focus_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			tasks_completed   = excluded.tasks_completed,
			pomodoro_sessions = excluded.pomodoro_sessions,
			total_focus_time  = excluded.total_focus_time,
			updated_at        = excluded.updated_at`,
		uuid.NewString(), userID, date, tasksCompleted, pomodoroSessions, totalFocusTime, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert analytics: %w", translateErr(err))
	}
	return s.GetAnalytics(userID, date)
}

// AccumulateAnalytics adds deltas to the counters for (userID, date),
// creating the row if needed.
func (s *Store) AccumulateAnalytics(userID, date string, tasksDelta, sessionsDelta, focusDelta int) (*Analytics, error) {
	if date == "" {
		return nil, fmt.Errorf("%w: analytics date is required", ErrConstraint)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO analytics (id, user_id, date, tasks_completed, pomodoro_sessions, total_focus_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			tasks_completed   = tasks_completed + excluded.tasks_completed,
			pomodoro_sessions = pomodoro_sessions + excluded.pomodoro_sessions,
			total_focus_time  = total_focus_time + excluded.total_focus_time,
			updated_at        = excluded.updated_at`,
		uuid.NewString(), userID, date, tasksDelta, sessionsDelta, focusDelta, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("accumulate analytics: %w", translateErr(err))
	}
	return s.GetAnalytics(userID, date)
}

func scanAnalytics(r rowScanner) (*Analytics, error) {
	a := &Analytics{}
	var createdAt, updatedAt string
	err := r.Scan(&a.ID, &a.UserID, &a.Date, &a.TasksCompleted, &a.PomodoroSessions, &a.TotalFocusTime, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

const analyticsColumns = `id, user_id, date, tasks_completed, pomodoro_sessions, total_focus_time, created_at, updated_at`

func (s *Store) GetAnalytics(userID, date string) (*Analytics, error) {
	row := s.db.QueryRow(`SELECT `+analyticsColumns+` FROM analytics WHERE user_id = ? AND date = ?`, userID, date)
	a, err := scanAnalytics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get analytics %s/%s: %w", userID, date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analytics %s/%s: %w", userID, date, err)
	}
	return a, nil
}

// ListAnalytics returns the user's rows with date in [from, to), oldest
// first. Empty bounds are open.
func (s *Store) ListAnalytics(userID, from, to string) ([]Analytics, error) {
	query := `SELECT ` + analyticsColumns + ` FROM analytics WHERE user_id = ?`
	args := []any{userID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date < ?`
		args = append(args, to)
	}
	query += ` ORDER BY date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}
	defer rows.Close()

	var out []Analytics
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
