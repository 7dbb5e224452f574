package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders marks API responses as non-cacheable, non-sniffable JSON.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}
