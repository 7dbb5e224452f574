package modelsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/models"
)

// Model is an open working copy session.
type Model interface {
	// WorkingCopy describes the session's working copy.
	WorkingCopy() models.WorkingCopy
	// ListUnits enumerates the model index for one kind.
	ListUnits(ctx context.Context, kind models.UnitKind) ([]models.UnitRef, error)
	// LoadUnit fetches a unit with its structure tree.
	LoadUnit(ctx context.Context, ref models.UnitRef) (*models.Unit, error)
	// SetProperty changes a node in memory and stages the write for the next commit.
	SetProperty(unit *models.Unit, node *models.Node, name, value string) error
	// PendingDeltas returns the staged writes.
	PendingDeltas() []models.Delta
	// Commit sends the staged writes and commits the working copy to branch.
	Commit(ctx context.Context, branch string) (*models.CommitResult, error)
	// Close ends the session. Calls after the first return ErrSessionClosed.
	Close(ctx context.Context) error
}

type session struct {
	client *Client
	wc     models.WorkingCopy

	mu     sync.Mutex
	deltas []models.Delta
	closed bool
}

func newSession(c *Client, wc models.WorkingCopy) *session {
	return &session{client: c, wc: wc}
}

func (s *session) WorkingCopy() models.WorkingCopy {
	return s.wc
}

func (s *session) path(suffix string) string {
	return "/api/v1/working-copies/" + url.PathEscape(s.wc.ID) + suffix
}

func (s *session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *session) ListUnits(ctx context.Context, kind models.UnitKind) ([]models.UnitRef, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var refs []models.UnitRef
	q := url.Values{"type": {string(kind)}}
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/units?"+q.Encode()), nil, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *session) LoadUnit(ctx context.Context, ref models.UnitRef) (*models.Unit, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var unit models.Unit
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/units/"+url.PathEscape(ref.ID)), nil, &unit); err != nil {
		return nil, fmt.Errorf("load %s: %w", ref.QualifiedName, err)
	}
	if unit.Root == nil {
		return nil, fmt.Errorf("load %s: unit has no structure tree", ref.QualifiedName)
	}
	return &unit, nil
}

func (s *session) SetProperty(unit *models.Unit, node *models.Node, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !node.SetProperty(name, value) {
		return fmt.Errorf("element %s has no writable property %q", node.ID, name)
	}
	s.deltas = append(s.deltas, models.Delta{
		UnitID:    unit.ID,
		ElementID: node.ID,
		Property:  name,
		Value:     value,
	})
	return nil
}

func (s *session) PendingDeltas() []models.Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Delta, len(s.deltas))
	copy(out, s.deltas)
	return out
}

// flush sends the staged writes in batches. Accepted batches are dropped from the stage, so a
// failed flush can be retried with what is left.
func (s *session) flush(ctx context.Context) error {
	deltas := s.PendingDeltas()
	for len(deltas) > 0 {
		n := min(len(deltas), s.client.deltaBatch)
		if err := s.client.doJSON(ctx, http.MethodPost, s.path("/deltas"), deltas[:n], nil); err != nil {
			return fmt.Errorf("send changes: %w", err)
		}
		s.mu.Lock()
		s.deltas = s.deltas[n:]
		s.mu.Unlock()
		s.client.logger.Debug("changes sent", zap.String("working_copy", s.wc.ID), zap.Int("deltas", n))
		deltas = deltas[n:]
	}
	return nil
}

func (s *session) Commit(ctx context.Context, branch string) (*models.CommitResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := s.flush(ctx); err != nil {
		return nil, err
	}

	var job models.Job
	if err := s.client.doJSON(ctx, http.MethodPost, s.path("/commit"), models.CommitRequest{Branch: branch}, &job); err != nil {
		return nil, err
	}

	final, err := s.client.WaitForJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if final.Status == models.JobFailed {
		return nil, fmt.Errorf("commit job %s failed: %s", job.ID, final.Message)
	}
	return &models.CommitResult{Branch: branch, JobID: job.ID, Revision: final.Revision}, nil
}

func (s *session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	return s.client.doJSON(ctx, http.MethodPost, s.path("/close"), nil, nil)
}
