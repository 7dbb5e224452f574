package modelsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/models"
)

// WaitForJob follows a job's event stream until it reaches a terminal status.
func (c *Client) WaitForJob(ctx context.Context, id string) (*models.JobEvent, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/v1/jobs/" + url.PathEscape(id) + "/ws"

	header := http.Header{}
	c.authorize(header)

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			return nil, decodeAPIError(http.MethodGet, wsURL.Path, resp)
		}
		return nil, fmt.Errorf("model service: follow job %s: %w", id, err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadJSON when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var event models.JobEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("model service: job %s stream: %w", id, err)
		}
		c.logger.Debug("job event",
			zap.String("job", id),
			zap.String("status", string(event.Status)),
			zap.String("message", event.Message))
		if event.Status.Done() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return &event, nil
		}
	}
}
