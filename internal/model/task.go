package model

import "time"

// Task status constants. Status is kept in sync with the Completed
// flag on every write: Completed implies StatusCompleted, and clearing
// Completed demotes a completed task back to StatusPending.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work created by one user and optionally delegated
// to others. Tasks form a hierarchy through ParentID; TaskNumber is the
// human-readable position in that hierarchy ("1", "1.1", "1.2"),
// assigned exactly once at creation and never recomputed.
type Task struct {
	ID          string     `json:"id" db:"id"`
	TaskNumber  string     `json:"task_number" db:"task_number"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	CreatorID   string     `json:"creator_id" db:"creator_id"`
	Department  string     `json:"department,omitempty" db:"department"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedBy *string    `json:"completed_by,omitempty" db:"completed_by"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Status      string     `json:"status" db:"status"`
	ParentID    *string    `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// AssigneeIDs is populated by queries that join task_assignees.
	AssigneeIDs []string `json:"assignee_ids" db:"-"`

	// CreatorRole is populated by task queries joining the creator row.
	// Delete permissions depend on it.
	CreatorRole Role `json:"-" db:"-"`
}

// IsAssigned reports whether userID is one of the task's assignees.
func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SyncStatus forces the derived status field to agree with Completed.
// Demotion always lands on pending, never in_progress.
func (t *Task) SyncStatus() {
	if t.Completed {
		t.Status = StatusCompleted
	} else if t.Status == StatusCompleted {
		t.Status = StatusPending
	}
}
