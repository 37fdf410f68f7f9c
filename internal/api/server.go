// Package api exposes the task service over HTTP. Handlers resolve the
// bearer token to a principal, hand it to the service, and translate
// the service's error taxonomy onto status codes.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/access"
	"github.com/taskhub/taskhub/internal/notify"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
)

// Server wires the HTTP routes to the task service.
type Server struct {
	store    store.Store
	tasks    *service.TaskService
	mailer   notify.Mailer
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
}

// Options configures a Server.
type Options struct {
	Store    store.Store
	Tasks    *service.TaskService
	Mailer   notify.Mailer
	Secret   []byte
	TokenTTL time.Duration
	Logger   *slog.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Server{
		store:    opts.Store,
		tasks:    opts.Tasks,
		mailer:   opts.Mailer,
		secret:   opts.Secret,
		tokenTTL: ttl,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/register", s.register)
	api.POST("/login", s.login)

	authed := api.Group("")
	authed.Use(s.authRequired())
	{
		authed.GET("/me", s.currentUser)
		authed.PUT("/me", s.updateCurrentUser)

		authed.GET("/tasks", s.listTasks)
		authed.POST("/tasks", s.createTask)
		authed.GET("/tasks/:id", s.getTask)
		authed.PUT("/tasks/:id", s.updateTask)
		authed.DELETE("/tasks/:id", s.deleteTask)
		authed.GET("/tasks/:id/subtasks", s.listSubtasks)

		authed.GET("/users", s.listUsers)
		authed.GET("/users/assignable", s.assignableUsers)

		authed.GET("/templates", s.listTemplates)
		authed.POST("/templates", s.createTemplate)
		authed.GET("/templates/:id", s.getTemplate)
		authed.PUT("/templates/:id", s.updateTemplate)
		authed.DELETE("/templates/:id", s.deleteTemplate)

		authed.POST("/send-email", s.sendEmail)
	}

	return r
}

// abortError maps the service error taxonomy onto HTTP status codes.
func (s *Server) abortError(c *gin.Context, err error) {
	var permErr *access.PermissionError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, gin.H{"error": permErr.Reason})
		return
	}

	var valErr *service.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Reason})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
