package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/tests/testutil"
)

func TestTaskNumberingRoots(t *testing.T) {
	s := testutil.NewTestStore(t)
	creator := testutil.CreateUser(t, s, "alice", model.RoleUser)

	for i, want := range []string{"1", "2", "3"} {
		task := testutil.CreateTask(t, s, creator, "task")
		if task.TaskNumber != want {
			t.Errorf("root %d: task_number = %q, want %q", i, task.TaskNumber, want)
		}
	}
}

func TestTaskNumberingChildren(t *testing.T) {
	s := testutil.NewTestStore(t)
	creator := testutil.CreateUser(t, s, "alice", model.RoleUser)

	parent := testutil.CreateTask(t, s, creator, "parent")
	if parent.TaskNumber != "1" {
		t.Fatalf("parent task_number = %q, want 1", parent.TaskNumber)
	}

	first := testutil.CreateSubtask(t, s, creator, parent, "first")
	second := testutil.CreateSubtask(t, s, creator, parent, "second")
	if first.TaskNumber != "1.1" || second.TaskNumber != "1.2" {
		t.Errorf("child numbers = %q, %q, want 1.1, 1.2", first.TaskNumber, second.TaskNumber)
	}

	grandchild := testutil.CreateSubtask(t, s, creator, first, "grandchild")
	if grandchild.TaskNumber != "1.1.1" {
		t.Errorf("grandchild number = %q, want 1.1.1", grandchild.TaskNumber)
	}

	// A second root is numbered independently of the subtree.
	other := testutil.CreateTask(t, s, creator, "other")
	if other.TaskNumber != "2" {
		t.Errorf("second root number = %q, want 2", other.TaskNumber)
	}
}

func TestTaskNumberingConcurrent(t *testing.T) {
	s := testutil.NewTestStore(t)
	creator := testutil.CreateUser(t, s, "alice", model.RoleUser)
	parent := testutil.CreateTask(t, s, creator, "parent")

	const n = 8
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := s.CreateTask(context.Background(), model.Task{
				Title:     "child",
				CreatorID: creator.ID,
				ParentID:  &parent.ID,
			}, nil)
			if err != nil {
				t.Errorf("concurrent create: %v", err)
				return
			}
			numbers <- task.TaskNumber
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for num := range numbers {
		if seen[num] {
			t.Errorf("duplicate task_number %q", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique numbers, want %d", len(seen), n)
	}
}

func TestCreateTaskMissingParent(t *testing.T) {
	s := testutil.NewTestStore(t)
	creator := testutil.CreateUser(t, s, "alice", model.RoleUser)

	missing := "no-such-id"
	_, err := s.CreateTask(context.Background(), model.Task{
		Title:     "orphan",
		CreatorID: creator.ID,
		ParentID:  &missing,
	}, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskReplacesAssignees(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, s, "alice", model.RoleSupervisor)
	bob := testutil.CreateUser(t, s, "bob", model.RoleUser)
	carol := testutil.CreateUser(t, s, "carol", model.RoleUser)

	task := testutil.CreateTask(t, s, creator, "task", bob.ID)

	newAssignees := []string{carol.ID}
	if err := s.UpdateTask(ctx, *task, &newAssignees); err != nil {
		t.Fatalf("updating task: %v", err)
	}

	got, err := s.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("getting task: %v", err)
	}
	if len(got.AssigneeIDs) != 1 || got.AssigneeIDs[0] != carol.ID {
		t.Errorf("assignees = %v, want [%s]", got.AssigneeIDs, carol.ID)
	}

	// Nil assignee list leaves the set untouched.
	if err := s.UpdateTask(ctx, *got, nil); err != nil {
		t.Fatalf("updating task: %v", err)
	}
	got, err = s.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("getting task: %v", err)
	}
	if len(got.AssigneeIDs) != 1 {
		t.Errorf("assignees after nil update = %v, want unchanged", got.AssigneeIDs)
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, s, "alice", model.RoleUser)

	parent := testutil.CreateTask(t, s, creator, "parent")
	child := testutil.CreateSubtask(t, s, creator, parent, "child")

	if err := s.DeleteTask(ctx, parent.ID); err != nil {
		t.Fatalf("deleting parent: %v", err)
	}

	if _, err := s.GetTaskByID(ctx, child.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("child after cascade: err = %v, want ErrNotFound", err)
	}

	if err := s.DeleteTask(ctx, parent.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestListTasksViewerScope(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, s, "bob", model.RoleUser)

	mine := testutil.CreateTask(t, s, alice, "mine")
	assigned := testutil.CreateTask(t, s, bob, "assigned to alice", alice.ID)
	testutil.CreateTask(t, s, bob, "unrelated")

	tasks, err := s.ListTasks(ctx, store.TaskFilter{ViewerID: &alice.ID})
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	ids := map[string]bool{tasks[0].ID: true, tasks[1].ID: true}
	if !ids[mine.ID] || !ids[assigned.ID] {
		t.Errorf("visible tasks = %v, want created and assigned", ids)
	}

	// No viewer restriction sees everything.
	all, err := s.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unrestricted list = %d tasks, want 3", len(all))
	}
}

func TestListTasksFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s, "alice", model.RoleUser)

	done := testutil.CreateTask(t, s, alice, "done")
	done.Completed = true
	done.CompletedBy = &alice.ID
	done.Status = model.StatusCompleted
	if err := s.UpdateTask(ctx, *done, nil); err != nil {
		t.Fatalf("completing task: %v", err)
	}
	testutil.CreateTask(t, s, alice, "open")

	completed := true
	tasks, err := s.ListTasks(ctx, store.TaskFilter{Completed: &completed})
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != done.ID {
		t.Errorf("completed filter returned %d tasks", len(tasks))
	}
	if !tasks[0].Completed || tasks[0].CompletedBy == nil || *tasks[0].CompletedBy != alice.ID {
		t.Errorf("completed task round-trip lost fields: %+v", tasks[0])
	}
	if tasks[0].CreatorRole != model.RoleUser {
		t.Errorf("creator_role = %q, want user", tasks[0].CreatorRole)
	}

	count, err := s.CountTasks(ctx, store.TaskFilter{CompleterID: &alice.ID})
	if err != nil {
		t.Fatalf("counting tasks: %v", err)
	}
	if count != 1 {
		t.Errorf("completer count = %d, want 1", count)
	}
}

func TestListTasksPagination(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s, "alice", model.RoleUser)

	for i := 0; i < 5; i++ {
		testutil.CreateTask(t, s, alice, "task")
	}

	page, err := s.ListTasks(ctx, store.TaskFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("got %d tasks, want 1 on the last page", len(page))
	}
}

func TestListSubtasksOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s, "alice", model.RoleUser)

	parent := testutil.CreateTask(t, s, alice, "parent")
	for i := 0; i < 11; i++ {
		testutil.CreateSubtask(t, s, alice, parent, "child")
	}

	subtasks, err := s.ListSubtasks(ctx, parent.ID)
	if err != nil {
		t.Fatalf("listing subtasks: %v", err)
	}
	if len(subtasks) != 11 {
		t.Fatalf("got %d subtasks, want 11", len(subtasks))
	}
	// Length-then-text ordering keeps 1.2 before 1.10.
	if subtasks[1].TaskNumber != "1.2" || subtasks[9].TaskNumber != "1.10" {
		t.Errorf("order = %q ... %q, want 1.2 before 1.10",
			subtasks[1].TaskNumber, subtasks[9].TaskNumber)
	}
}

func TestListDueBetween(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s, "alice", model.RoleUser)

	now := time.Now().UTC()
	soon := now.Add(12 * time.Hour)
	far := now.Add(96 * time.Hour)

	dueSoon, err := s.CreateTask(ctx, model.Task{
		Title: "due soon", CreatorID: alice.ID, DueDate: &soon,
	}, nil)
	if err != nil {
		t.Fatalf("creating task: %v", err)
	}
	if _, err := s.CreateTask(ctx, model.Task{
		Title: "due later", CreatorID: alice.ID, DueDate: &far,
	}, nil); err != nil {
		t.Fatalf("creating task: %v", err)
	}
	if _, err := s.CreateTask(ctx, model.Task{
		Title: "no due date", CreatorID: alice.ID,
	}, nil); err != nil {
		t.Fatalf("creating task: %v", err)
	}

	completed, err := s.CreateTask(ctx, model.Task{
		Title: "already done", CreatorID: alice.ID, DueDate: &soon,
		Completed: true, Status: model.StatusCompleted,
	}, nil)
	if err != nil {
		t.Fatalf("creating task: %v", err)
	}
	_ = completed

	due, err := s.ListDueBetween(ctx, now, now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("listing due tasks: %v", err)
	}
	if len(due) != 1 || due[0].ID != dueSoon.ID {
		t.Errorf("due tasks = %d, want only the incomplete soon-due task", len(due))
	}
}
