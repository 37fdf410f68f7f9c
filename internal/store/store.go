package store

import (
	"context"
	"errors"
	"time"

	"github.com/taskhub/taskhub/internal/model"
)

// ErrNotFound is returned (wrapped) when a referenced record is absent.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering and pagination for task queries.
// ViewerID restricts results to tasks the given user created or is
// assigned to; the remaining filters narrow within that scope and can
// never widen it.
type TaskFilter struct {
	ViewerID    *string // nil means no visibility restriction (admin)
	Status      *string
	Completed   *bool
	AssigneeID  *string
	CreatorID   *string
	CompleterID *string
	Limit       int
	Offset      int
}

// Store defines the persistence interface for users, tasks, and
// email templates.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) error

	// === Tasks ===

	// CreateTask numbers the task from its sibling count and inserts it
	// together with its assignee rows in a single transaction.
	CreateTask(ctx context.Context, t model.Task, assigneeIDs []string) (*model.Task, error)

	// UpdateTask writes the task's mutable fields and, when assigneeIDs
	// is non-nil, replaces the assignee set in the same transaction.
	UpdateTask(ctx context.Context, t model.Task, assigneeIDs *[]string) error

	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)
	ListSubtasks(ctx context.Context, parentID string) ([]model.Task, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Task, error)

	// === Email templates ===

	CreateTemplate(ctx context.Context, t model.EmailTemplate) (*model.EmailTemplate, error)
	GetTemplateByID(ctx context.Context, id string) (*model.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]model.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, t model.EmailTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}
