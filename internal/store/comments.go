package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/rulegen/internal/ir"
)

// WriteComment inserts a task comment and returns its assigned ID.
// The comment's ID field is ignored.
func (s *Store) WriteComment(ctx context.Context, c ir.TaskComment) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO task_comments (task_id, author, body, added_at)
		VALUES (?, ?, ?, ?)
	`,
		c.TaskID,
		c.Author,
		c.Text,
		c.AddedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("write comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write comment: last insert id: %w", err)
	}
	return id, nil
}

// DeleteComment removes a comment from a task.
// Returns ErrNotFound when the task has no comment with that ID.
func (s *Store) DeleteComment(ctx context.Context, taskID, commentID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM task_comments WHERE task_id = ? AND id = ?
	`, taskID, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete comment %d of task %d: %w", commentID, taskID, ErrNotFound)
	}
	return nil
}

// ReadComments returns the comments of a task ordered by id ASC.
// Returns an empty slice (not nil) when the task has none.
func (s *Store) ReadComments(ctx context.Context, taskID int64) ([]ir.TaskComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, author, body, added_at
		FROM task_comments
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []ir.TaskComment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// ReadComment retrieves a single comment by ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadComment(ctx context.Context, commentID int64) (ir.TaskComment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, author, body, added_at
		FROM task_comments
		WHERE id = ?
	`, commentID)

	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.TaskComment{}, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
	}
	return c, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (ir.TaskComment, error) {
	var (
		c       ir.TaskComment
		addedAt string
	)
	if err := row.Scan(&c.ID, &c.TaskID, &c.Author, &c.Text, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.TaskComment{}, err
		}
		return ir.TaskComment{}, fmt.Errorf("scan comment: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, addedAt)
	if err != nil {
		return ir.TaskComment{}, fmt.Errorf("parse comment time %q: %w", addedAt, err)
	}
	c.AddedAt = t
	return c, nil
}
