package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
)

// fakeModel is an in-memory working copy. Loaded units are copies, and staged writes reach the
// stored units only on Commit, like the real service.
type fakeModel struct {
	wc models.WorkingCopy

	mu        sync.Mutex
	units     map[models.UnitKind][]*models.Unit
	loadErr   map[string]error
	listErr   error
	setErr    error
	commitErr error
	closeErr  error
	deltas    []models.Delta
	closed    bool
	revision  int

	commits  int
	closes   int
	inFlight atomic.Int32
	maxLoads atomic.Int32
	loaded   atomic.Int32
}

func newFakeModel(id string, units ...*models.Unit) *fakeModel {
	m := &fakeModel{
		wc:      models.WorkingCopy{ID: id, Name: "Survey", ProjectID: "proj-1"},
		units:   make(map[models.UnitKind][]*models.Unit),
		loadErr: make(map[string]error),
	}
	for _, u := range units {
		m.units[u.Kind] = append(m.units[u.Kind], u)
	}
	return m
}

func (m *fakeModel) WorkingCopy() models.WorkingCopy { return m.wc }

func (m *fakeModel) ListUnits(_ context.Context, kind models.UnitKind) ([]models.UnitRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []models.UnitRef
	for _, u := range m.units[kind] {
		refs = append(refs, u.Ref())
	}
	return refs, nil
}

func (m *fakeModel) LoadUnit(ctx context.Context, ref models.UnitRef) (*models.Unit, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxLoads.Load()
		if n <= cur || m.maxLoads.CompareAndSwap(cur, n) {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadErr[ref.ID]; err != nil {
		return nil, err
	}
	for _, u := range m.units[ref.Kind] {
		if u.ID == ref.ID {
			m.loaded.Add(1)
			return cloneUnit(u), nil
		}
	}
	return nil, modelsdk.ErrNotFound
}

func (m *fakeModel) SetProperty(unit *models.Unit, node *models.Node, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return modelsdk.ErrSessionClosed
	}
	if m.setErr != nil {
		return m.setErr
	}
	if !node.SetProperty(name, value) {
		return errors.New("not writable")
	}
	m.deltas = append(m.deltas, models.Delta{UnitID: unit.ID, ElementID: node.ID, Property: name, Value: value})
	return nil
}

func (m *fakeModel) PendingDeltas() []models.Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Delta(nil), m.deltas...)
}

func (m *fakeModel) Commit(_ context.Context, branch string) (*models.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	for _, d := range m.deltas {
		for _, units := range m.units {
			for _, u := range units {
				if u.ID != d.UnitID {
					continue
				}
				if n := models.Find(u.Root, d.ElementID); n != nil {
					n.SetProperty(d.Property, d.Value)
				}
			}
		}
	}
	m.deltas = nil
	m.revision++
	return &models.CommitResult{Branch: branch, JobID: "job-1", Revision: m.revision}, nil
}

func (m *fakeModel) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	if m.closed {
		return modelsdk.ErrSessionClosed
	}
	m.closed = true
	m.deltas = nil
	return m.closeErr
}

// reopen lets a second run use the same stored units.
func (m *fakeModel) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

func cloneUnit(u *models.Unit) *models.Unit {
	data, err := json.Marshal(u)
	if err != nil {
		panic(err)
	}
	var out models.Unit
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// fakeService hands out fakeModel sessions.
type fakeService struct {
	model     *fakeModel
	openErr   error
	createErr error

	opened      []string
	created     []models.Revision
	createdFrom []modelsdk.CreateParams
}

func (s *fakeService) OpenWorkingCopy(_ context.Context, id string) (modelsdk.Model, error) {
	s.opened = append(s.opened, id)
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.model.reopen()
	return s.model, nil
}

func (s *fakeService) CreateOnlineWorkingCopy(_ context.Context, projectID string, rev models.Revision) (*models.WorkingCopy, error) {
	s.created = append(s.created, rev)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.WorkingCopy{ID: "wc-new", ProjectID: projectID, Branch: rev.Branch, BaseRevision: rev.Number}, nil
}

func (s *fakeService) CreateAndOpenWorkingCopy(_ context.Context, params modelsdk.CreateParams) (modelsdk.Model, error) {
	s.createdFrom = append(s.createdFrom, params)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.model.wc.Name = params.Name
	return s.model, nil
}

// Tree helpers.

func el(id, name, class string, children ...*models.Node) *models.Node {
	n := &models.Node{ID: id, Type: "Pages$DivContainer", Children: children}
	if name != "" {
		n.Name = models.StringPtr(name)
	}
	if class != "" {
		n.Class = models.StringPtr(class)
	}
	return n
}

func unit(id string, kind models.UnitKind, qualifiedName string, children ...*models.Node) *models.Unit {
	root := &models.Node{ID: id + "-root", Type: string(kind), Children: children}
	return &models.Unit{ID: id, Kind: kind, QualifiedName: qualifiedName, Root: root}
}
