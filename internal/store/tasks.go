package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const taskColumns = `id, project_id, parent_id, title, description, status, priority,
	due_date, estimated_time, actual_time, created_at, updated_at`

func validStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CreateTask inserts a task. A task with a parent lives in the parent's
// project: ProjectID is inherited when nil and must match when set. The
// insert, the reference checks and the ancestor walk run in one transaction.
func (s *Store) CreateTask(nt NewTask) (*Task, error) {
	if nt.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrConstraint)
	}
	if nt.Status == "" {
		nt.Status = StatusTodo
	}
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	if !validStatus(nt.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrConstraint, nt.Status)
	}
	if !validPriority(nt.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrConstraint, nt.Priority)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()

	if nt.ParentID != nil {
		var parentProject sql.NullString
		err := tx.QueryRow(`SELECT project_id FROM tasks WHERE id = ?`, *nt.ParentID).Scan(&parentProject)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("parent task %s: %w", *nt.ParentID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("get parent task: %w", err)
		}

		switch {
		case nt.ProjectID == nil && parentProject.Valid:
			nt.ProjectID = &parentProject.String
		case nt.ProjectID != nil && (!parentProject.Valid || parentProject.String != *nt.ProjectID):
			return nil, fmt.Errorf("%w: parent task belongs to a different project", ErrConstraint)
		}

		// A fresh id cannot already sit in the ancestor chain, but the
		// walk keeps the forest invariant independent of that detail.
		if err := ensureNoCycle(tx, id, *nt.ParentID); err != nil {
			return nil, err
		}
	} else if nt.ProjectID != nil {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM projects WHERE id = ?`, *nt.ProjectID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", *nt.ProjectID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
	}

	var due any
	if nt.DueDate != nil {
		due = nt.DueDate.UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(
		`INSERT INTO tasks (id, project_id, parent_id, title, description, status, priority,
		                    due_date, estimated_time, actual_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		id, nt.ProjectID, nt.ParentID, nt.Title, nt.Description, nt.Status, nt.Priority,
		due, nt.EstimatedTime, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", translateErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTask(id)
}

// ensureNoCycle walks the parent chain starting at parentID and fails with
// ErrCycle if taskID appears. Runs inside the caller's transaction so the
// chain cannot change under the walk.
func ensureNoCycle(tx *sql.Tx, taskID, parentID string) error {
	cur := parentID
	for {
		if cur == taskID {
			return fmt.Errorf("task %s: %w", taskID, ErrCycle)
		}
		var next sql.NullString
		err := tx.QueryRow(`SELECT parent_id FROM tasks WHERE id = ?`, cur).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ancestor task %s: %w", cur, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("walk ancestors: %w", err)
		}
		if !next.Valid {
			return nil
		}
		cur = next.String
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*Task, error) {
	t := &Task{}
	var projectID, parentID, dueDate sql.NullString
	var estimated, actual sql.NullInt64
	var createdAt, updatedAt string

	err := r.Scan(&t.ID, &projectID, &parentID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&dueDate, &estimated, &actual, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		t.ProjectID = &projectID.String
	}
	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if dueDate.Valid {
		d, _ := time.Parse(time.RFC3339, dueDate.String)
		t.DueDate = &d
	}
	if estimated.Valid {
		v := int(estimated.Int64)
		t.EstimatedTime = &v
	}
	if actual.Valid {
		v := int(actual.Int64)
		t.ActualTime = &v
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) listTasks(query string, args ...any) ([]Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListTasks returns every task of a project, roots and subtasks alike,
// ordered by creation time.
func (s *Store) ListTasks(projectID string) ([]Task, error) {
	return s.listTasks(`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at`, projectID)
}

// ListRootTasks returns a project's tasks that have no parent.
func (s *Store) ListRootTasks(projectID string) ([]Task, error) {
	return s.listTasks(`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? AND parent_id IS NULL ORDER BY created_at`, projectID)
}

// ListSubtasks returns the direct children of a task.
func (s *Store) ListSubtasks(parentID string) ([]Task, error) {
	return s.listTasks(`SELECT `+taskColumns+` FROM tasks WHERE parent_id = ? ORDER BY created_at`, parentID)
}

func (s *Store) UpdateTaskStatus(id, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrConstraint, status)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`, status, now, id,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", translateErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	return nil
}

// CompleteTask marks the task DONE and records the actual minutes spent.
func (s *Store) CompleteTask(id string, actualTime int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE tasks SET status = ?, actual_time = ?, updated_at = ? WHERE id = ?`,
		StatusDone, actualTime, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetTaskParent reparents a task (nil detaches it to a root). The cycle walk
// and the update share a transaction.
func (s *Store) SetTaskParent(id string, parentID *string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var project sql.NullString
	err = tx.QueryRow(`SELECT project_id FROM tasks WHERE id = ?`, id).Scan(&project)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	if parentID != nil {
		var parentProject sql.NullString
		err := tx.QueryRow(`SELECT project_id FROM tasks WHERE id = ?`, *parentID).Scan(&parentProject)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("parent task %s: %w", *parentID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get parent task: %w", err)
		}
		if project.Valid != parentProject.Valid || (project.Valid && project.String != parentProject.String) {
			return fmt.Errorf("%w: parent task belongs to a different project", ErrConstraint)
		}
		if err := ensureNoCycle(tx, id, *parentID); err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`UPDATE tasks SET parent_id = ?, updated_at = ? WHERE id = ?`, parentID, now, id); err != nil {
		return fmt.Errorf("set task parent: %w", translateErr(err))
	}
	return tx.Commit()
}

// DeleteTask removes the task and its whole subtree. Sessions that pointed
// at any removed task are kept with task_id cleared.
func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}
