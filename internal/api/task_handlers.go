package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/service"
)

func (s *Server) createTask(c *gin.Context) {
	var in service.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var in service.UpdateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (s *Server) listTasks(c *gin.Context) {
	var opts service.ListOptions

	if v := c.Query("status"); v != "" {
		opts.Status = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		opts.AssigneeID = &v
	}
	if v := c.Query("created_by"); v != "" {
		opts.CreatorID = &v
	}
	if v := c.Query("completed_by"); v != "" {
		opts.CompleterID = &v
	}
	if v := c.Query("completed"); v != "" {
		completed := v == "true" || v == "1"
		opts.Completed = &completed
	}
	opts.Limit = intQuery(c, "limit")
	opts.Offset = intQuery(c, "offset")

	result, err := s.tasks.List(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listSubtasks(c *gin.Context) {
	subtasks, err := s.tasks.Subtasks(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks})
}

func intQuery(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
