package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/notify"
)

type registerRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email"`
	Password   string `json:"password" binding:"required"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleUser
	}
	// Admin accounts are provisioned through the CLI, not self-service.
	if role == model.RoleAdmin || !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid role %q", req.Role)})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.abortError(c, err)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), model.User{
		Username:     req.Username,
		Email:        req.Email,
		Role:         role,
		Department:   req.Department,
		PasswordHash: hash,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not create user"})
		s.logger.Warn("user registration failed", "username", req.Username, "error", err)
		return
	}

	s.sendWelcomeEmail(*user)

	token, err := auth.GenerateToken(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		s.abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "user registered successfully",
		"user":    user,
		"token":   token,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := auth.GenerateToken(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		s.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "login successful",
		"user":    user,
		"token":   token,
		"role":    user.Role,
	})
}

func (s *Server) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, principal(c))
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (s *Server) updateCurrentUser(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := principal(c)
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.store.UpdateUser(c.Request.Context(), user); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) assignableUsers(c *gin.Context) {
	users, err := s.tasks.AssignableUsers(c.Request.Context(), principal(c))
	if err != nil {
		s.abortError(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "username": u.Username, "role": u.Role})
	}
	c.JSON(http.StatusOK, out)
}

// sendWelcomeEmail greets a new account. Best-effort: a failure is
// logged and registration still succeeds.
func (s *Server) sendWelcomeEmail(user model.User) {
	if s.mailer == nil || user.Email == "" {
		return
	}
	msg := notify.Message{
		To:      []string{user.Email},
		Subject: "Welcome to Task Manager!",
		Text:    fmt.Sprintf("Hi %s, welcome to Task Manager!\n", user.Username),
	}
	if err := s.mailer.Send(context.Background(), msg); err != nil {
		s.logger.Warn("sending welcome email", "user", user.Username, "error", err)
	}
}
