// Package handlers provides the gin handlers of the local model service API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/classmod/internal/devserver"
)

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, devserver.ErrProjectNotFound),
		errors.Is(err, devserver.ErrRevisionNotFound),
		errors.Is(err, devserver.ErrWorkingCopyNotFound),
		errors.Is(err, devserver.ErrUnitNotFound),
		errors.Is(err, devserver.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, devserver.ErrSessionNotOpen):
		status = http.StatusConflict
	case errors.Is(err, devserver.ErrInvalidTemplate),
		errors.Is(err, devserver.ErrInvalidDelta),
		errors.Is(err, devserver.ErrElementNotFound):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
