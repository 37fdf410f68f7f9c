package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/model"
)

// principalKey is the gin context key for the authenticated user.
const principalKey = "principal"

// authRequired validates the bearer token and loads the principal from
// the store, so downstream handlers see current role and profile data
// rather than stale token claims.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		userID, err := auth.ParseToken(s.secret, parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		user, err := s.store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			c.Abort()
			return
		}

		c.Set(principalKey, *user)
		c.Next()
	}
}

// principal returns the authenticated user set by authRequired.
func principal(c *gin.Context) model.User {
	return c.MustGet(principalKey).(model.User)
}
