package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/tests/testutil"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := testutil.NewTestStore(t)
	server := NewServer(Options{
		Store:    st,
		Tasks:    service.NewTaskService(st, nil, nil),
		Secret:   testSecret,
		TokenTTL: time.Hour,
	})
	return server.Router(), st
}

func tokenFor(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	var reg struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	decode(t, w, &reg)
	if reg.Token == "" {
		t.Error("register returned no token")
	}
	if reg.User.Role != model.RoleUser {
		t.Errorf("default role = %q, want user", reg.User.Role)
	}

	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"username": "alice",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
}

func TestRegisterRejectsAdmin(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"username": "mallory",
		"password": "hunter2hunter2",
		"role":     "admin",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("admin register status = %d, want 400", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/tasks", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/tasks", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", w.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	router, st := newTestServer(t)
	sup := testutil.CreateUser(t, st, "sup", model.RoleSupervisor)
	bob := testutil.CreateUser(t, st, "bob", model.RoleUser)
	supToken := tokenFor(t, sup)
	bobToken := tokenFor(t, bob)

	// Supervisor creates a task assigned to bob.
	w := doJSON(t, router, http.MethodPost, "/api/tasks", supToken, gin.H{
		"title":        "write the report",
		"assignee_ids": []string{bob.ID},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created service.TaskView
	decode(t, w, &created)
	if created.TaskNumber != "1" {
		t.Errorf("task_number = %q, want 1", created.TaskNumber)
	}
	if !created.CanDelete {
		t.Error("supervisor should see can_delete on their own task")
	}

	// Bob sees the task and may not delete it.
	w = doJSON(t, router, http.MethodGet, "/api/tasks/"+created.ID, bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got service.TaskView
	decode(t, w, &got)
	if got.CanDelete {
		t.Error("assignee with user role should not see can_delete")
	}

	w = doJSON(t, router, http.MethodDelete, "/api/tasks/"+created.ID, bobToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("assignee delete status = %d, want 403", w.Code)
	}

	// Bob completes the task.
	w = doJSON(t, router, http.MethodPut, "/api/tasks/"+created.ID, bobToken, gin.H{
		"completed": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	decode(t, w, &got)
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.CompletedBy == nil || *got.CompletedBy != bob.ID {
		t.Errorf("completed_by = %v, want bob", got.CompletedBy)
	}

	// The supervisor deletes it.
	w = doJSON(t, router, http.MethodDelete, "/api/tasks/"+created.ID, supToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("creator delete status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/tasks/"+created.ID, supToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", w.Code)
	}
}

func TestUserCannotAssignOthers(t *testing.T) {
	router, st := newTestServer(t)
	alice := testutil.CreateUser(t, st, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, st, "bob", model.RoleUser)

	w := doJSON(t, router, http.MethodPost, "/api/tasks", tokenFor(t, alice), gin.H{
		"title":        "pass the buck",
		"assignee_ids": []string{bob.ID},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403, body %s", w.Code, w.Body.String())
	}
}

func TestListTasksResponse(t *testing.T) {
	router, st := newTestServer(t)
	alice := testutil.CreateUser(t, st, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, st, "bob", model.RoleUser)
	testutil.CreateTask(t, st, alice, "mine")
	testutil.CreateTask(t, st, bob, "not mine")

	w := doJSON(t, router, http.MethodGet, "/api/tasks", tokenFor(t, alice), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var result service.ListResult
	decode(t, w, &result)
	if result.TotalCount != 1 || len(result.Tasks) != 1 {
		t.Errorf("alice sees %d/%d tasks, want 1/1", len(result.Tasks), result.TotalCount)
	}
	if result.PendingCount != 1 || result.CompletedCount != 0 {
		t.Errorf("counts = %d pending, %d completed", result.PendingCount, result.CompletedCount)
	}
}

func TestSubtasksEndpoint(t *testing.T) {
	router, st := newTestServer(t)
	alice := testutil.CreateUser(t, st, "alice", model.RoleUser)
	parent := testutil.CreateTask(t, st, alice, "parent")
	testutil.CreateSubtask(t, st, alice, parent, "child")

	w := doJSON(t, router, http.MethodGet, "/api/tasks/"+parent.ID+"/subtasks", tokenFor(t, alice), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("subtasks status = %d", w.Code)
	}
	var resp struct {
		Subtasks []service.TaskView `json:"subtasks"`
	}
	decode(t, w, &resp)
	if len(resp.Subtasks) != 1 || resp.Subtasks[0].TaskNumber != "1.1" {
		t.Errorf("subtasks = %+v, want one numbered 1.1", resp.Subtasks)
	}
}

func TestAssignableUsersEndpoint(t *testing.T) {
	router, st := newTestServer(t)
	hod := testutil.CreateUser(t, st, "hod", model.RoleHOD)
	testutil.CreateUser(t, st, "sup", model.RoleSupervisor)
	testutil.CreateUser(t, st, "bob", model.RoleUser)

	w := doJSON(t, router, http.MethodGet, "/api/users/assignable", tokenFor(t, hod), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assignable status = %d", w.Code)
	}
	var users []map[string]interface{}
	decode(t, w, &users)
	if len(users) != 1 || users[0]["username"] != "bob" {
		t.Errorf("assignable = %v, want only bob", users)
	}
}

func TestTemplateCRUDAndSendEmail(t *testing.T) {
	router, st := newTestServer(t)
	sup := testutil.CreateUser(t, st, "sup", model.RoleSupervisor)
	bob := testutil.CreateUser(t, st, "bob", model.RoleUser)
	supToken := tokenFor(t, sup)

	w := doJSON(t, router, http.MethodPost, "/api/templates", supToken, gin.H{
		"name":    "welcome",
		"subject": "Welcome aboard",
		"body":    "Glad to have you.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create template status = %d, body %s", w.Code, w.Body.String())
	}
	var tmpl model.EmailTemplate
	decode(t, w, &tmpl)
	if !tmpl.IsActive {
		t.Error("new template should default to active")
	}

	// Users below supervisor may not send ad-hoc mail.
	w = doJSON(t, router, http.MethodPost, "/api/send-email", tokenFor(t, bob), gin.H{
		"subject":    "spam",
		"message":    "spam",
		"recipients": []string{"x@example.com"},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("user send-email status = %d, want 403", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/templates/"+tmpl.ID, supToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete template status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/templates/"+tmpl.ID, supToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted template status = %d, want 404", w.Code)
	}
}
