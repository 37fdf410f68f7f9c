package access

import (
	"testing"

	"github.com/taskhub/taskhub/internal/model"
)

func user(id string, role model.Role) model.User {
	return model.User{ID: id, Username: id, Role: role}
}

func taskBy(creator model.User, assignees ...string) *model.Task {
	return &model.Task{
		ID:          "t-" + creator.ID,
		CreatorID:   creator.ID,
		CreatorRole: creator.Role,
		AssigneeIDs: assignees,
	}
}

func TestVisibleScope(t *testing.T) {
	admin := user("a1", model.RoleAdmin)
	if got := VisibleScope(admin); got != nil {
		t.Errorf("admin scope = %v, want nil", *got)
	}

	staff := user("s1", model.RoleUser)
	staff.IsStaff = true
	if got := VisibleScope(staff); got != nil {
		t.Errorf("staff scope = %v, want nil", *got)
	}

	regular := user("u1", model.RoleUser)
	got := VisibleScope(regular)
	if got == nil || *got != "u1" {
		t.Errorf("user scope = %v, want u1", got)
	}
}

func TestCheckEdit(t *testing.T) {
	creator := user("c1", model.RoleUser)
	assignee := user("a1", model.RoleUser)
	outsider := user("o1", model.RoleSupervisor)
	task := taskBy(creator, assignee.ID)

	if err := Check(creator, ActionEdit, task); err != nil {
		t.Errorf("creator edit: %v", err)
	}
	if err := Check(assignee, ActionEdit, task); err != nil {
		t.Errorf("assignee edit: %v", err)
	}
	if err := Check(outsider, ActionEdit, task); err == nil {
		t.Error("unrelated supervisor edit should be denied")
	}
	if err := Check(user("adm", model.RoleAdmin), ActionEdit, task); err != nil {
		t.Errorf("admin edit: %v", err)
	}
}

func TestCheckDelete(t *testing.T) {
	admin := user("adm", model.RoleAdmin)
	hod := user("h1", model.RoleHOD)
	sup := user("s1", model.RoleSupervisor)
	sup2 := user("s2", model.RoleSupervisor)
	usr := user("u1", model.RoleUser)

	tests := []struct {
		name    string
		p       model.User
		task    *model.Task
		allowed bool
	}{
		{"admin deletes anything", admin, taskBy(usr), true},
		{"hod never deletes", hod, taskBy(hod), false},
		{"hod cannot delete own task", hod, taskBy(hod, usr.ID), false},
		{"supervisor deletes supervisor-created", sup, taskBy(sup2), true},
		{"supervisor deletes own", sup, taskBy(sup), true},
		{"supervisor cannot delete user-created", sup, taskBy(usr), false},
		{"supervisor cannot delete hod-created", sup, taskBy(hod), false},
		{"user deletes own", usr, taskBy(usr), true},
		{"user cannot delete others", usr, taskBy(sup), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.p, ActionDelete, tc.task)
			if tc.allowed && err != nil {
				t.Errorf("want allowed, got %v", err)
			}
			if !tc.allowed && err == nil {
				t.Error("want denied, got nil")
			}
			// The advisory flag must always match the enforced outcome.
			if CanDelete(tc.p, tc.task) != tc.allowed {
				t.Errorf("CanDelete = %v, want %v", !tc.allowed, tc.allowed)
			}
		})
	}
}

func TestCheckAssignees(t *testing.T) {
	hod := user("h1", model.RoleHOD)
	sup := user("s1", model.RoleSupervisor)
	sup2 := user("s2", model.RoleSupervisor)
	usr := user("u1", model.RoleUser)
	usr2 := user("u2", model.RoleUser)

	if err := CheckAssignees(hod, ActionCreate, []model.User{usr, usr2}); err != nil {
		t.Errorf("hod assigns users at create: %v", err)
	}
	if err := CheckAssignees(hod, ActionCreate, []model.User{sup}); err == nil {
		t.Error("hod assigning a supervisor at create should be denied")
	}
	// At edit time the HOD constraint does not apply.
	if err := CheckAssignees(hod, ActionEdit, []model.User{sup}); err != nil {
		t.Errorf("hod reassigns freely at edit: %v", err)
	}

	if err := CheckAssignees(sup, ActionCreate, []model.User{hod, usr, sup}); err != nil {
		t.Errorf("supervisor assigns hod, user, self: %v", err)
	}
	if err := CheckAssignees(sup, ActionCreate, []model.User{sup2}); err == nil {
		t.Error("supervisor assigning another supervisor should be denied")
	}
	// Self stays assignable at edit, same as create.
	if err := CheckAssignees(sup, ActionEdit, []model.User{sup}); err != nil {
		t.Errorf("supervisor keeps self assignable at edit: %v", err)
	}
	if err := CheckAssignees(sup, ActionEdit, []model.User{sup2}); err == nil {
		t.Error("supervisor assigning another supervisor at edit should be denied")
	}

	if err := CheckAssignees(usr, ActionCreate, []model.User{usr}); err != nil {
		t.Errorf("user assigns self: %v", err)
	}
	if err := CheckAssignees(usr, ActionCreate, []model.User{usr2}); err == nil {
		t.Error("user assigning someone else should be denied")
	}
}

func TestAssignableUsers(t *testing.T) {
	admin := user("adm", model.RoleAdmin)
	hod := user("h1", model.RoleHOD)
	sup := user("s1", model.RoleSupervisor)
	usr := user("u1", model.RoleUser)
	usr2 := user("u2", model.RoleUser)
	all := []model.User{admin, hod, sup, usr, usr2}

	ids := func(users []model.User) []string {
		var out []string
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}

	if got := ids(AssignableUsers(admin, all)); len(got) != 4 {
		t.Errorf("admin assignable = %v, want everyone but self", got)
	}
	if got := ids(AssignableUsers(hod, all)); len(got) != 2 {
		t.Errorf("hod assignable = %v, want only users", got)
	}
	if got := ids(AssignableUsers(usr, all)); len(got) != 1 || got[0] != "u1" {
		t.Errorf("user assignable = %v, want self only", got)
	}
}
