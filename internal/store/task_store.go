package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/taskhub/internal/model"
)

// taskColumns selects the task row joined with the creator's role.
const taskColumns = `
	tasks.id, tasks.task_number, tasks.title, tasks.description,
	tasks.creator_id, tasks.department, tasks.completed, tasks.completed_by,
	tasks.due_date, tasks.status, tasks.parent_id,
	tasks.created_at, tasks.updated_at,
	users.role AS creator_role`

const taskFrom = " FROM tasks JOIN users ON users.id = tasks.creator_id"

// CreateTask inserts a new task. The task number is derived from the
// sibling count inside the same transaction as the insert, so two
// concurrent creates under one parent cannot produce duplicates.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	t model.Task,
	assigneeIDs []string,
) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t.TaskNumber, err = nextTaskNumber(ctx, tx, t.ParentID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, task_number, title, description, creator_id, department,
			completed, completed_by, due_date, status, parent_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TaskNumber, t.Title, t.Description, t.CreatorID, t.Department,
		boolToInt(t.Completed), t.CompletedBy, t.DueDate, t.Status, t.ParentID,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	for _, uid := range assigneeIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)",
			t.ID, uid,
		); err != nil {
			return nil, fmt.Errorf("assigning task %s to %s: %w", t.ID, uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task create: %w", err)
	}

	t.AssigneeIDs = assigneeIDs
	return &t, nil
}

// nextTaskNumber computes the hierarchical number for a task about to be
// inserted: "N" for a root, parent number + ".N" for a child, where N is
// the current sibling count plus one.
func nextTaskNumber(ctx context.Context, tx *sqlx.Tx, parentID *string) (string, error) {
	if parentID == nil {
		var roots int
		err := tx.GetContext(ctx, &roots,
			"SELECT COUNT(*) FROM tasks WHERE parent_id IS NULL")
		if err != nil {
			return "", fmt.Errorf("counting root tasks: %w", err)
		}
		return strconv.Itoa(roots + 1), nil
	}

	var parentNumber string
	err := tx.GetContext(ctx, &parentNumber,
		"SELECT task_number FROM tasks WHERE id = ?", *parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("parent task %s: %w", *parentID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading parent task %s: %w", *parentID, err)
	}

	var siblings int
	err = tx.GetContext(ctx, &siblings,
		"SELECT COUNT(*) FROM tasks WHERE parent_id = ?", *parentID)
	if err != nil {
		return "", fmt.Errorf("counting sibling tasks: %w", err)
	}

	return fmt.Sprintf("%s.%d", parentNumber, siblings+1), nil
}

// UpdateTask writes the task's mutable fields and, when assigneeIDs is
// non-nil, replaces the assignee set. Both land in one transaction so a
// half-applied update is not observable.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	t model.Task,
	assigneeIDs *[]string,
) error {
	t.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, department = ?,
			completed = ?, completed_by = ?, due_date = ?, status = ?,
			updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Department,
		boolToInt(t.Completed), t.CompletedBy, t.DueDate, t.Status,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}

	if assigneeIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_assignees WHERE task_id = ?", t.ID,
		); err != nil {
			return fmt.Errorf("clearing assignees for task %s: %w", t.ID, err)
		}
		for _, uid := range *assigneeIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)",
				t.ID, uid,
			); err != nil {
				return fmt.Errorf("assigning task %s to %s: %w", t.ID, uid, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task update: %w", err)
	}
	return nil
}

// DeleteTask removes a task by ID. Sub-tasks and assignee rows cascade.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTaskByID retrieves a single task by ID, including its assignees
// and the creator's role.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT"+taskColumns+taskFrom+" WHERE tasks.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task %s: %w", id, err)
		}
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}

	if err := s.loadAssignees(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks retrieves tasks matching the filter, newest first.
func (s *SQLiteStore) ListTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	query, args := buildTaskQuery("SELECT"+taskColumns, filter)
	query += " ORDER BY tasks.created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	return s.queryTasks(ctx, query, args)
}

// CountTasks returns the number of tasks matching the filter.
func (s *SQLiteStore) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	query, args := buildTaskQuery("SELECT COUNT(*)", filter)

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

// ListSubtasks retrieves the direct children of a task ordered by task
// number. Numbers under one parent share a prefix, so length-then-text
// ordering sorts "1.2" before "1.10".
func (s *SQLiteStore) ListSubtasks(ctx context.Context, parentID string) ([]model.Task, error) {
	query := "SELECT" + taskColumns + taskFrom +
		" WHERE tasks.parent_id = ?" +
		" ORDER BY LENGTH(tasks.task_number), tasks.task_number"
	return s.queryTasks(ctx, query, []interface{}{parentID})
}

// ListDueBetween retrieves incomplete tasks with a due date in
// [from, to).
func (s *SQLiteStore) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Task, error) {
	query := "SELECT" + taskColumns + taskFrom + `
		WHERE tasks.completed = 0
		AND tasks.due_date IS NOT NULL
		AND tasks.due_date >= ? AND tasks.due_date < ?
		ORDER BY tasks.due_date`
	return s.queryTasks(ctx, query, []interface{}{from.UTC(), to.UTC()})
}

// queryTasks runs a task select and loads assignees for each result.
func (s *SQLiteStore) queryTasks(
	ctx context.Context,
	query string,
	args []interface{},
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadAssignees(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// buildTaskQuery assembles the WHERE clause shared by ListTasks and
// CountTasks.
func buildTaskQuery(selectClause string, f TaskFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.ViewerID != nil {
		conditions = append(conditions,
			"(tasks.creator_id = ? OR tasks.id IN (SELECT task_id FROM task_assignees WHERE user_id = ?))")
		args = append(args, *f.ViewerID, *f.ViewerID)
	}
	if f.Status != nil {
		conditions = append(conditions, "tasks.status = ?")
		args = append(args, strings.ToLower(*f.Status))
	}
	if f.Completed != nil {
		conditions = append(conditions, "tasks.completed = ?")
		args = append(args, boolToInt(*f.Completed))
	}
	if f.AssigneeID != nil {
		conditions = append(conditions,
			"tasks.id IN (SELECT task_id FROM task_assignees WHERE user_id = ?)")
		args = append(args, *f.AssigneeID)
	}
	if f.CreatorID != nil {
		conditions = append(conditions, "tasks.creator_id = ?")
		args = append(args, *f.CreatorID)
	}
	if f.CompleterID != nil {
		conditions = append(conditions, "tasks.completed_by = ?")
		args = append(args, *f.CompleterID)
	}

	query := selectClause + taskFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query, args
}

// loadAssignees populates the task's assignee ID list.
func (s *SQLiteStore) loadAssignees(ctx context.Context, t *model.Task) error {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id",
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("loading assignees for task %s: %w", t.ID, err)
	}
	t.AssigneeIDs = ids
	return nil
}

// scanTask scans a task row (with joined creator role) from a sqlx.Rows
// result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task        model.Task
		completed   int
		completedBy *string
		dueDate     *time.Time
		parentID    *string
		creatorRole string
	)

	err := rows.Scan(
		&task.ID, &task.TaskNumber, &task.Title, &task.Description,
		&task.CreatorID, &task.Department, &completed, &completedBy,
		&dueDate, &task.Status, &parentID,
		&task.CreatedAt, &task.UpdatedAt,
		&creatorRole,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Completed = completed != 0
	task.CompletedBy = completedBy
	task.DueDate = dueDate
	task.ParentID = parentID
	task.CreatorRole = model.Role(creatorRole)

	return task, nil
}
