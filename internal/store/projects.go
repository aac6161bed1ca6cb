package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateProject(userID, name, description, color string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrConstraint)
	}
	if color == "" {
		color = DefaultProjectColor
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO projects (id, user_id, name, description, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, name, description, color, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", translateErr(err))
	}
	return s.GetProject(id)
}

func (s *Store) GetProject(id string) (*Project, error) {
	p := &Project{}
	var createdAt, updatedAt string
	err := s.db.QueryRow(
		`SELECT id, user_id, name, description, color, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Color, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func (s *Store) ListProjects(userID string) ([]Project, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, color, created_at, updated_at
		 FROM projects WHERE user_id = ? ORDER BY name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Color, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(id, name, description, color string) error {
	if name == "" {
		return fmt.Errorf("%w: project name is required", ErrConstraint)
	}
	if color == "" {
		color = DefaultProjectColor
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE projects SET name = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		name, description, color, now, id,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", translateErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update project %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProject removes the project and cascades through its task trees.
// Sessions on those tasks are kept with task_id cleared.
func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}
