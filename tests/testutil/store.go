// Package testutil provides shared helpers for store-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// CreateUser inserts a user with the given role and returns it.
func CreateUser(t *testing.T, s store.Store, username string, role model.Role) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		Department: "engineering",
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

// CreateTask inserts a task created by the given user and returns it.
func CreateTask(t *testing.T, s store.Store, creator *model.User, title string, assigneeIDs ...string) *model.Task {
	t.Helper()

	task, err := s.CreateTask(context.Background(), model.Task{
		Title:      title,
		CreatorID:  creator.ID,
		Department: creator.Department,
		Status:     model.StatusPending,
	}, assigneeIDs)
	if err != nil {
		t.Fatalf("creating task %s: %v", title, err)
	}
	return task
}

// CreateSubtask inserts a task under the given parent and returns it.
func CreateSubtask(t *testing.T, s store.Store, creator *model.User, parent *model.Task, title string) *model.Task {
	t.Helper()

	task, err := s.CreateTask(context.Background(), model.Task{
		Title:      title,
		CreatorID:  creator.ID,
		Department: creator.Department,
		Status:     model.StatusPending,
		ParentID:   &parent.ID,
	}, nil)
	if err != nil {
		t.Fatalf("creating subtask %s: %v", title, err)
	}
	return task
}
