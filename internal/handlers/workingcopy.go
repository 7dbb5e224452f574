package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/validation"
)

const maxNameLength = 100

// WorkingCopyHandler handles working copy sessions, unit reads and staged writes.
type WorkingCopyHandler struct {
	workingCopies   *devserver.WorkingCopyService
	jobs            *devserver.JobService
	maxTemplateSize int64
}

// NewWorkingCopyHandler creates a new WorkingCopyHandler instance.
func NewWorkingCopyHandler(workingCopies *devserver.WorkingCopyService, jobs *devserver.JobService, maxTemplateSize int64) *WorkingCopyHandler {
	return &WorkingCopyHandler{
		workingCopies:   workingCopies,
		jobs:            jobs,
		maxTemplateSize: maxTemplateSize,
	}
}

// Create checks out a project revision.
// POST /api/v1/projects/:project/working-copies
func (h *WorkingCopyHandler) Create(c *gin.Context) {
	req := models.CreateWorkingCopyRequest{Revision: models.LatestRevision}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	wc, err := h.workingCopies.Create(c.Param("project"), models.Revision{Branch: req.Branch, Number: req.Revision})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wc)
}

// Import creates and opens a working copy from an uploaded template.
// POST /api/v1/working-copies/import
func (h *WorkingCopyHandler) Import(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := validation.ValidateName(name, maxNameLength); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name: " + err.Error()})
		return
	}

	header, err := c.FormFile("template")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template file is required"})
		return
	}
	if h.maxTemplateSize > 0 && header.Size > h.maxTemplateSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "template too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	units, err := devserver.ParseTemplate(data)
	if err != nil {
		respondError(c, err)
		return
	}

	wc, err := h.workingCopies.Import(name, units)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wc)
}

// Open starts a session.
// POST /api/v1/working-copies/:id/open
func (h *WorkingCopyHandler) Open(c *gin.Context) {
	wc, err := h.workingCopies.Open(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wc)
}

// Close ends a session.
// POST /api/v1/working-copies/:id/close
func (h *WorkingCopyHandler) Close(c *gin.Context) {
	if err := h.workingCopies.Close(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "working copy closed"})
}

// ListUnits returns the model index, optionally filtered by ?type=.
// GET /api/v1/working-copies/:id/units
func (h *WorkingCopyHandler) ListUnits(c *gin.Context) {
	kind := models.UnitKind(c.Query("type"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown unit type"})
		return
	}

	refs, err := h.workingCopies.ListUnits(c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

// GetUnit returns one unit with its structure tree.
// GET /api/v1/working-copies/:id/units/:unit
func (h *WorkingCopyHandler) GetUnit(c *gin.Context) {
	unit, err := h.workingCopies.Unit(c.Param("id"), c.Param("unit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// ApplyDeltas writes a batch of property changes.
// POST /api/v1/working-copies/:id/deltas
func (h *WorkingCopyHandler) ApplyDeltas(c *gin.Context) {
	var deltas []models.Delta
	if err := c.ShouldBindJSON(&deltas); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.workingCopies.ApplyDeltas(c.Param("id"), deltas); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": len(deltas)})
}

// Commit queues a commit job.
// POST /api/v1/working-copies/:id/commit
func (h *WorkingCopyHandler) Commit(c *gin.Context) {
	var req models.CommitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	job, err := h.jobs.StartCommit(c.Param("id"), req.Branch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}
