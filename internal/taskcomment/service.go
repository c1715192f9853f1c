// Package taskcomment attaches free-text comments to workflow tasks.
//
// It shares the repository and the SQLite store with the code generator
// but is independent of it: nothing in the generation pipeline calls it.
package taskcomment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/store"
)

// Comment is a comment attached to a task.
type Comment = ir.TaskComment

// ErrNotFound is returned when a comment does not exist.
var ErrNotFound = store.ErrNotFound

// ErrInvalidComment is returned when a comment has no author or no text.
var ErrInvalidComment = errors.New("invalid comment")

// Service manages task comments.
type Service interface {
	// AddComment attaches c to the task and returns the new comment ID.
	AddComment(ctx context.Context, taskID int64, c Comment) (int64, error)

	// DeleteComment removes a comment from the task.
	DeleteComment(ctx context.Context, taskID, commentID int64) error

	// GetComments returns the task's comments in insertion order.
	GetComments(ctx context.Context, taskID int64) ([]Comment, error)

	// GetCommentByID returns a single comment.
	GetCommentByID(ctx context.Context, commentID int64) (Comment, error)
}

// StoreService is the SQLite-backed Service.
type StoreService struct {
	store *store.Store
	now   func() time.Time
}

var _ Service = (*StoreService)(nil)

// NewStoreService creates a Service backed by s.
func NewStoreService(s *store.Store) *StoreService {
	return &StoreService{store: s, now: time.Now}
}

// WithClock overrides the time source used to stamp new comments.
func (s *StoreService) WithClock(now func() time.Time) *StoreService {
	s.now = now
	return s
}

// AddComment implements Service. The comment's TaskID is taken from taskID
// and a zero AddedAt is stamped with the current time.
func (s *StoreService) AddComment(ctx context.Context, taskID int64, c Comment) (int64, error) {
	c.Author = strings.TrimSpace(c.Author)
	if c.Author == "" {
		return 0, fmt.Errorf("%w: author is required", ErrInvalidComment)
	}
	if strings.TrimSpace(c.Text) == "" {
		return 0, fmt.Errorf("%w: text is required", ErrInvalidComment)
	}

	c.TaskID = taskID
	if c.AddedAt.IsZero() {
		c.AddedAt = s.now()
	}
	return s.store.WriteComment(ctx, c)
}

// DeleteComment implements Service.
func (s *StoreService) DeleteComment(ctx context.Context, taskID, commentID int64) error {
	return s.store.DeleteComment(ctx, taskID, commentID)
}

// GetComments implements Service.
func (s *StoreService) GetComments(ctx context.Context, taskID int64) ([]Comment, error) {
	return s.store.ReadComments(ctx, taskID)
}

// GetCommentByID implements Service.
func (s *StoreService) GetCommentByID(ctx context.Context, commentID int64) (Comment, error) {
	return s.store.ReadComment(ctx, commentID)
}
