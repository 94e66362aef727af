package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const taskColumns = `id, user_id, title, description, is_done, created_at, updated_at`

// taskStore persists tasks. Every lookup is scoped by the owning user, so a task
// owned by someone else is reported exactly like a missing one.
type taskStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newTaskStore(db *sql.DB, d dialect, now func() time.Time) *taskStore {
	return &taskStore{db: db, dialect: d, now: now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task, error) {
	var t task
	var description sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.IsDone, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

// cleanDescription trims a description; blank ones become absent.
func cleanDescription(description *string) *string {
	if description == nil {
		return nil
	}
	d := strings.TrimSpace(*description)
	if d == "" {
		return nil
	}
	return &d
}

// list returns the user's tasks, newest first.
func (s *taskStore) list(ctx context.Context, userID int64) ([]*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE user_id = ?
			  ORDER BY created_at DESC, id DESC`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskStore) create(ctx context.Context, userID int64, title string, description *string) (*task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}

	now := fromMillis(toMillis(s.now()))
	t := &task{
		UserID:      userID,
		Title:       title,
		Description: cleanDescription(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO tasks (user_id, title, description, is_done, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.dialect.rebind(query),
		t.UserID, t.Title, t.Description, t.IsDone, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err := row.Scan(&t.ID); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *taskStore) get(ctx context.Context, userID, taskID int64) (*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE id = ? AND user_id = ?`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanTask(s.db.QueryRowContext(ctx, s.dialect.rebind(query), taskID, userID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, errTaskNotFound
		default:
			return nil, fmt.Errorf("get task: %w", err)
		}
	}
	return t, nil
}

// update applies the fields present in patch and always refreshes updated_at.
func (s *taskStore) update(ctx context.Context, userID, taskID int64, patch taskPatch) (*task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update task: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE id = ? AND user_id = ?`
	t, err := scanTask(tx.QueryRowContext(ctx, s.dialect.rebind(query), taskID, userID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, errTaskNotFound
		default:
			return nil, fmt.Errorf("get task for update: %w", err)
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationError("title cannot be empty")
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = cleanDescription(patch.Description)
	}
	if patch.IsDone != nil {
		t.IsDone = *patch.IsDone
	}
	t.UpdatedAt = fromMillis(toMillis(s.now()))

	query = `UPDATE tasks SET title = ?, description = ?, is_done = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`
	res, err := tx.ExecContext(ctx, s.dialect.rebind(query),
		t.Title, t.Description, t.IsDone, toMillis(t.UpdatedAt), t.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return nil, errTaskNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update task: %w", err)
	}
	return t, nil
}

func (s *taskStore) delete(ctx context.Context, userID, taskID int64) error {
	query := `DELETE FROM tasks
			  WHERE id = ? AND user_id = ?`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return errTaskNotFound
	}
	return nil
}
