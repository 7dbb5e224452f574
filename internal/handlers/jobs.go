package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/logging"
)

const jobWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients are API tools, not browsers.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// JobHandler reports commit job state.
type JobHandler struct {
	jobs   *devserver.JobService
	logger *zap.Logger
}

// NewJobHandler creates a new JobHandler instance.
func NewJobHandler(jobs *devserver.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logging.OrNop(logger).Named("jobs")}
}

// Get returns a job.
// GET /api/v1/jobs/:job
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Param("job"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Stream pushes job events over a websocket until the job reaches a terminal status. A job that
// has already finished gets its final event right away.
// GET /api/v1/jobs/:job/ws
func (h *JobHandler) Stream(c *gin.Context) {
	id := c.Param("job")

	if _, err := h.jobs.GetJob(id); err != nil {
		respondError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("job", id), zap.Error(err))
		return
	}
	defer func() { _ = ws.Close() }()

	// Subscribe before reading the state so no transition is missed.
	ch := h.jobs.Subscribe(id)
	defer h.jobs.Unsubscribe(id, ch)

	job, err := h.jobs.GetJob(id)
	if err != nil {
		h.closeWith(ws, websocket.CloseInternalServerErr, err.Error())
		return
	}
	if err := h.send(ws, devserver.Event(job)); err != nil || job.Status.Done() {
		h.closeWith(ws, websocket.CloseNormalClosure, "")
		return
	}

	// Detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.send(ws, event); err != nil {
				h.logger.Debug("websocket write failed", zap.String("job", id), zap.Error(err))
				return
			}
			if event.Status.Done() {
				h.closeWith(ws, websocket.CloseNormalClosure, "")
				select {
				case <-gone:
				case <-time.After(jobWriteTimeout):
				}
				return
			}
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *JobHandler) send(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(jobWriteTimeout))
	return ws.WriteJSON(v)
}

func (h *JobHandler) closeWith(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(jobWriteTimeout))
}
