// Package middleware provides the gin middleware of the local model service: API key
// authentication, request logging, body limits and per-user rate limiting.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
)

// UserContextKey is the key for storing the API user in the request context.
const UserContextKey = "api_user"

// APIKeyRequired rejects requests whose X-Api-User / X-Api-Key pair does not match a stored user.
func APIKeyRequired(auth *devserver.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader(modelsdk.HeaderUser)
		key := c.GetHeader(modelsdk.HeaderKey)
		if username == "" || key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api credentials"})
			return
		}

		if err := auth.Authenticate(username, key); err != nil {
			if errors.Is(err, devserver.ErrInvalidCredentials) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api credentials"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Set(UserContextKey, username)
		c.Next()
	}
}

// User returns the authenticated API user, or "".
func User(c *gin.Context) string {
	return c.GetString(UserContextKey)
}
