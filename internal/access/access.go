// Package access contains the role-based visibility and authorization
// rules. Every permission decision in the system, including the
// advisory can_delete flag exposed to clients, goes through Check so
// the displayed affordances and the enforced outcomes cannot drift
// apart.
package access

import (
	"fmt"

	"github.com/taskhub/taskhub/internal/model"
)

// Action identifies a mutation being authorized.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// PermissionError is an authorization denial with a human-readable
// reason. The mutation it guards is not applied.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

func denied(format string, args ...interface{}) *PermissionError {
	return &PermissionError{Reason: fmt.Sprintf(format, args...)}
}

// VisibleScope returns the user whose created-or-assigned tasks bound a
// listing, or nil when the principal may see every task. Narrowing
// filters are applied on top of this scope, never instead of it.
func VisibleScope(p model.User) *string {
	if p.IsAdmin() {
		return nil
	}
	id := p.ID
	return &id
}

// Check authorizes an action by the principal against a target task.
// The target's CreatorRole and AssigneeIDs must be populated; creates
// pass a nil task.
func Check(p model.User, action Action, t *model.Task) error {
	if !p.Role.Valid() && !p.IsStaff {
		return denied("invalid role %q", p.Role)
	}
	if p.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreate:
		// Any role may create; assignee constraints are checked
		// separately via CheckAssignees.
		return nil

	case ActionEdit:
		if t.CreatorID == p.ID || t.IsAssigned(p.ID) {
			return nil
		}
		return denied("you cannot edit this task")

	case ActionDelete:
		switch p.Role {
		case model.RoleHOD:
			return denied("HOD cannot delete tasks")
		case model.RoleSupervisor:
			if t.CreatorRole == model.RoleSupervisor {
				return nil
			}
			return denied("supervisor can only delete tasks created by supervisors")
		default:
			if t.CreatorID == p.ID {
				return nil
			}
			return denied("you cannot delete this task")
		}
	}

	return denied("unknown action %q", action)
}

// CanDelete is the advisory flag returned alongside a task for UI use.
// It is the delete branch of Check, so showing the affordance and
// enforcing the delete always agree.
func CanDelete(p model.User, t *model.Task) bool {
	return Check(p, ActionDelete, t) == nil
}

// CheckAssignees validates who the acting principal may delegate to.
// HOD is constrained only at create time, matching the permission
// matrix: at edit time an HOD reassigns freely.
func CheckAssignees(p model.User, action Action, assignees []model.User) error {
	if p.IsAdmin() {
		return nil
	}

	switch p.Role {
	case model.RoleHOD:
		if action != ActionCreate {
			return nil
		}
		for _, u := range assignees {
			if u.Role != model.RoleUser {
				return denied("HOD can only assign tasks to users")
			}
		}
	case model.RoleSupervisor:
		for _, u := range assignees {
			if u.ID != p.ID && u.Role != model.RoleHOD && u.Role != model.RoleUser {
				return denied("supervisor can only assign tasks to HOD or user")
			}
		}
	case model.RoleUser:
		for _, u := range assignees {
			if u.ID != p.ID {
				return denied("users can only assign tasks to themselves")
			}
		}
	default:
		return denied("invalid role %q", p.Role)
	}

	return nil
}

// AssignableUsers filters candidates down to those the principal may
// delegate to, using the same constraints as CheckAssignees at create
// time.
func AssignableUsers(p model.User, candidates []model.User) []model.User {
	var out []model.User
	for _, u := range candidates {
		if p.IsAdmin() {
			if u.ID != p.ID {
				out = append(out, u)
			}
			continue
		}
		if err := CheckAssignees(p, ActionCreate, []model.User{u}); err == nil {
			out = append(out, u)
		}
	}
	return out
}
