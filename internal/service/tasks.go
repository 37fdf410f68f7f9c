// Package service implements the task operations: authorization,
// validation, status synchronization, persistence, and notification
// triggering. Handlers and CLI commands call into this package with an
// explicit, already-authenticated principal; there is no ambient
// request user.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taskhub/taskhub/internal/access"
	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/notify"
	"github.com/taskhub/taskhub/internal/store"
)

// TaskService carries out task mutations and queries on behalf of a
// principal.
type TaskService struct {
	store      store.Store
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

// NewTaskService creates a TaskService. dispatcher may be nil when
// notifications are not wanted (tests, offline commands).
func NewTaskService(s store.Store, dispatcher notify.Dispatcher, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: s, dispatcher: dispatcher, logger: logger}
}

// TaskView is a task together with the advisory can_delete flag for the
// requesting principal.
type TaskView struct {
	model.Task
	CanDelete bool `json:"can_delete"`
}

// CreateTaskInput holds the fields accepted when creating a task.
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Department  string     `json:"department"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status"`
	Completed   bool       `json:"completed"`
	ParentID    *string    `json:"parent_id"`
	AssigneeIDs []string   `json:"assignee_ids"`
}

// UpdateTaskInput holds the fields accepted when updating a task.
// Nil pointers leave the stored value unchanged; a nil AssigneeIDs
// keeps the current assignee set.
type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Department  *string    `json:"department"`
	DueDate     *time.Time `json:"due_date"`
	Status      *string    `json:"status"`
	Completed   *bool      `json:"completed"`
	AssigneeIDs *[]string  `json:"assignee_ids"`
}

// ListOptions narrows a task listing within the principal's visibility
// scope.
type ListOptions struct {
	Status      *string
	Completed   *bool
	AssigneeID  *string
	CreatorID   *string
	CompleterID *string
	Limit       int
	Offset      int
}

// ListResult is a page of visible tasks plus counts computed on the
// full visibility scope, before the narrowing filters.
type ListResult struct {
	Tasks          []TaskView `json:"tasks"`
	TotalCount     int        `json:"total_count"`
	PendingCount   int        `json:"pending_count"`
	CompletedCount int        `json:"completed_count"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// Create makes a new task on behalf of p, numbers it, and notifies any
// assignees.
func (s *TaskService) Create(ctx context.Context, p model.User, in CreateTaskInput) (*TaskView, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("title must not be empty")
	}
	if in.Status != "" && !model.ValidStatus(in.Status) {
		return nil, invalid("invalid status %q", in.Status)
	}
	if in.DueDate != nil && dateOf(*in.DueDate).Before(dateOf(time.Now())) {
		return nil, invalid("due date cannot be in the past for new tasks")
	}

	if err := access.Check(p, access.ActionCreate, nil); err != nil {
		return nil, err
	}

	assignees, err := s.store.GetUsersByIDs(ctx, in.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	if err := access.CheckAssignees(p, access.ActionCreate, assignees); err != nil {
		return nil, err
	}

	task := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Department:  in.Department,
		CreatorID:   p.ID,
		DueDate:     in.DueDate,
		Status:      in.Status,
		Completed:   in.Completed,
		ParentID:    in.ParentID,
	}
	if task.Completed {
		id := p.ID
		task.CompletedBy = &id
	}
	task.SyncStatus()

	created, err := s.store.CreateTask(ctx, task, in.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	created.CreatorRole = p.Role

	if len(assignees) > 0 {
		s.notifyEvent(notify.Event{
			Type:       notify.EventAssigned,
			Task:       *created,
			Actor:      p,
			Recipients: assignees,
		})
	}

	return s.view(p, created), nil
}

// Update edits a task on behalf of p. Field updates and reassignment
// commit together; notifications follow only after the write succeeds.
func (s *TaskService) Update(ctx context.Context, p model.User, taskID string, in UpdateTaskInput) (*TaskView, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := access.Check(p, access.ActionEdit, task); err != nil {
		return nil, err
	}

	var newAssignees []model.User
	if in.AssigneeIDs != nil {
		newAssignees, err = s.store.GetUsersByIDs(ctx, *in.AssigneeIDs)
		if err != nil {
			return nil, err
		}
		if err := access.CheckAssignees(p, access.ActionEdit, newAssignees); err != nil {
			return nil, err
		}
	}

	prevTitle := task.Title
	prevDescription := task.Description
	prevDue := task.DueDate
	prevCompleted := task.Completed

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, invalid("title must not be empty")
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Department != nil {
		task.Department = *in.Department
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Status != nil {
		if !model.ValidStatus(*in.Status) {
			return nil, invalid("invalid status %q", *in.Status)
		}
		task.Status = *in.Status
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}

	// Marking a task complete records who completed it. Reopening a
	// task does not clear the record.
	if !prevCompleted && task.Completed {
		id := p.ID
		task.CompletedBy = &id
	}
	task.SyncStatus()

	if err := s.store.UpdateTask(ctx, *task, in.AssigneeIDs); err != nil {
		return nil, err
	}
	if in.AssigneeIDs != nil {
		task.AssigneeIDs = *in.AssigneeIDs
	}

	detailsChanged := task.Title != prevTitle ||
		task.Description != prevDescription ||
		!sameDate(task.DueDate, prevDue)

	if detailsChanged && (p.IsAdmin() || p.Role == model.RoleSupervisor) {
		recipients := newAssignees
		if recipients == nil {
			recipients, err = s.store.GetUsersByIDs(ctx, task.AssigneeIDs)
			if err != nil {
				s.logger.Error("loading assignees for update notification",
					"task", task.ID, "error", err)
				recipients = nil
			}
		}
		if len(recipients) > 0 {
			s.notifyEvent(notify.Event{
				Type:       notify.EventUpdated,
				Task:       *task,
				Actor:      p,
				Recipients: recipients,
			})
		}
	}

	if !prevCompleted && task.Completed {
		creator, err := s.store.GetUserByID(ctx, task.CreatorID)
		if err != nil {
			s.logger.Error("loading creator for completion notification",
				"task", task.ID, "error", err)
		} else {
			s.notifyEvent(notify.Event{
				Type:       notify.EventCompleted,
				Task:       *task,
				Actor:      p,
				Recipients: []model.User{*creator},
			})
		}
	}

	return s.view(p, task), nil
}

// Delete removes a task on behalf of p. Sub-tasks go with it.
func (s *TaskService) Delete(ctx context.Context, p model.User, taskID string) error {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := access.Check(p, access.ActionDelete, task); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, taskID)
}

// Get retrieves a single task visible to p.
func (s *TaskService) Get(ctx context.Context, p model.User, taskID string) (*TaskView, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !visible(p, task) {
		return nil, &access.PermissionError{Reason: "you cannot view this task"}
	}
	return s.view(p, task), nil
}

// List retrieves the page of tasks visible to p matching opts, newest
// first, with scope-wide counts.
func (s *TaskService) List(ctx context.Context, p model.User, opts ListOptions) (*ListResult, error) {
	scope := access.VisibleScope(p)
	base := store.TaskFilter{ViewerID: scope}

	total, err := s.store.CountTasks(ctx, base)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountTasks(ctx, withStatus(base, model.StatusPending))
	if err != nil {
		return nil, err
	}
	completed, err := s.store.CountTasks(ctx, withStatus(base, model.StatusCompleted))
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := store.TaskFilter{
		ViewerID:    scope,
		Status:      opts.Status,
		Completed:   opts.Completed,
		AssigneeID:  opts.AssigneeID,
		CreatorID:   opts.CreatorID,
		CompleterID: opts.CompleterID,
		Limit:       limit,
		Offset:      opts.Offset,
	}
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, *s.view(p, &tasks[i]))
	}

	return &ListResult{
		Tasks:          views,
		TotalCount:     total,
		PendingCount:   pending,
		CompletedCount: completed,
	}, nil
}

// Subtasks retrieves the direct children of a task visible to p,
// ordered by task number.
func (s *TaskService) Subtasks(ctx context.Context, p model.User, parentID string) ([]TaskView, error) {
	if _, err := s.Get(ctx, p, parentID); err != nil {
		return nil, err
	}

	children, err := s.store.ListSubtasks(ctx, parentID)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(children))
	for i := range children {
		if visible(p, &children[i]) {
			views = append(views, *s.view(p, &children[i]))
		}
	}
	return views, nil
}

// AssignableUsers returns the users p may delegate a new task to.
func (s *TaskService) AssignableUsers(ctx context.Context, p model.User) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return access.AssignableUsers(p, users), nil
}

func (s *TaskService) notifyEvent(ev notify.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(ev)
}

func (s *TaskService) view(p model.User, t *model.Task) *TaskView {
	return &TaskView{Task: *t, CanDelete: access.CanDelete(p, t)}
}

func visible(p model.User, t *model.Task) bool {
	if access.VisibleScope(p) == nil {
		return true
	}
	return t.CreatorID == p.ID || t.IsAssigned(p.ID)
}

func withStatus(f store.TaskFilter, status string) store.TaskFilter {
	f.Status = &status
	return f
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return dateOf(*a).Equal(dateOf(*b))
}
