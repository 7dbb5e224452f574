package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/classmod/internal/version"
)

// Version reports the build of the running service.
// GET /api/version
func Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Info())
}
