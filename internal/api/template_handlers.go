package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/notify"
)

type templateRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Body     string `json:"body"`
	IsActive *bool  `json:"is_active"`
}

func (s *Server) createTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl := model.EmailTemplate{
		Name:     req.Name,
		Subject:  req.Subject,
		Body:     req.Body,
		IsActive: true,
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	created, err := s.store.CreateTemplate(c.Request.Context(), tmpl)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getTemplate(c *gin.Context) {
	tmpl, err := s.store.GetTemplateByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (s *Server) listTemplates(c *gin.Context) {
	templates, err := s.store.ListTemplates(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (s *Server) updateTemplate(c *gin.Context) {
	tmpl, err := s.store.GetTemplateByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl.Name = req.Name
	tmpl.Subject = req.Subject
	tmpl.Body = req.Body
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	if err := s.store.UpdateTemplate(c.Request.Context(), *tmpl); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if err := s.store.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}

type sendEmailRequest struct {
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients" binding:"required"`
	TemplateID string   `json:"template_id"`
}

// sendEmail delivers an ad-hoc message, optionally filling subject and
// body from a stored template. Restricted to roles that may assign work.
func (s *Server) sendEmail(c *gin.Context) {
	p := principal(c)
	if !p.IsAdmin() && p.Role != model.RoleHOD && p.Role != model.RoleSupervisor {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not allowed to send emails"})
		return
	}

	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no recipients"})
		return
	}

	subject := req.Subject
	body := req.Message
	if req.TemplateID != "" {
		tmpl, err := s.store.GetTemplateByID(c.Request.Context(), req.TemplateID)
		if err != nil {
			s.abortError(c, err)
			return
		}
		subject = tmpl.Subject
		body = tmpl.Body
	}
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject required"})
		return
	}

	msg := notify.Message{To: req.Recipients, Subject: subject, Text: body}
	if err := s.mailer.Send(context.Background(), msg); err != nil {
		s.logger.Error("ad-hoc email failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": "email sent"})
}
