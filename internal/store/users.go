package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(email, name string, preferences map[string]string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrConstraint)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrConstraint)
	}

	var prefs any
	if preferences != nil {
		data, err := json.Marshal(preferences)
		if err != nil {
			return nil, fmt.Errorf("marshal preferences: %w", err)
		}
		prefs = string(data)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, preferences, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, name, prefs, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", translateErr(err))
	}
	return s.GetUser(id)
}

func (s *Store) GetUser(id string) (*User, error) {
	u := &User{}
	var prefs sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRow(
		`SELECT id, email, name, preferences, created_at, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &prefs, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if prefs.Valid {
		if err := json.Unmarshal([]byte(prefs.String), &u.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences for user %s: %w", id, err)
		}
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return u, nil
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email %q: %w", email, err)
	}
	return s.GetUser(id)
}

func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT id, email, name, preferences, created_at, updated_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var prefs sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &prefs, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if prefs.Valid {
			if err := json.Unmarshal([]byte(prefs.String), &u.Preferences); err != nil {
				return nil, fmt.Errorf("decode preferences for user %s: %w", u.ID, err)
			}
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPreferences(id string, preferences map[string]string) error {
	var prefs any
	if preferences != nil {
		data, err := json.Marshal(preferences)
		if err != nil {
			return fmt.Errorf("marshal preferences: %w", err)
		}
		prefs = string(data)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE users SET preferences = ?, updated_at = ? WHERE id = ?`, prefs, now, id,
	)
	if err != nil {
		return fmt.Errorf("update user preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteUser removes the user and, through the schema's deletion policies,
// every project, task (including subtasks) and analytics row the user owns.
// Pomodoro sessions that referenced those tasks survive with task_id cleared.
// SQLite applies the whole ripple inside one implicit transaction.
func (s *Store) DeleteUser(id string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
	}
	return nil
}
