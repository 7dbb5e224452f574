package devserver

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// WorkingCopyService manages working copies and the units checked out into them.
type WorkingCopyService struct {
	db       *database.DB
	projects *ProjectService
	logger   *zap.Logger
}

// NewWorkingCopyService creates a new WorkingCopyService instance.
func NewWorkingCopyService(db *database.DB, projects *ProjectService, logger *zap.Logger) *WorkingCopyService {
	return &WorkingCopyService{
		db:       db,
		projects: projects,
		logger:   logging.OrNop(logger).Named("working_copies"),
	}
}

// Create checks out a project revision into a new working copy.
func (s *WorkingCopyService) Create(projectID string, rev models.Revision) (*models.WorkingCopy, error) {
	units, number, err := s.projects.Revision(projectID, rev)
	if err != nil {
		return nil, err
	}

	var name string
	if err := s.db.QueryRow("SELECT name FROM projects WHERE id = ?", projectID).Scan(&name); err != nil {
		return nil, err
	}

	wc := &models.WorkingCopy{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         name,
		Branch:       rev.Branch,
		BaseRevision: number,
	}
	if err := s.insert(wc, units); err != nil {
		return nil, err
	}
	s.logger.Info("working copy created",
		zap.String("working_copy", wc.ID),
		zap.String("project", projectID),
		zap.Int("revision", number))
	return s.Get(wc.ID)
}

// Import creates a project from template units and checks out its first revision. The returned
// working copy is already open.
func (s *WorkingCopyService) Import(name string, units []*models.Unit) (*models.WorkingCopy, error) {
	projectID := uuid.New().String()
	if err := s.projects.Seed(projectID, name, units); err != nil {
		return nil, err
	}
	wc, err := s.Create(projectID, models.Revision{Number: models.LatestRevision})
	if err != nil {
		return nil, err
	}
	return s.Open(wc.ID)
}

func (s *WorkingCopyService) insert(wc *models.WorkingCopy, units []*models.Unit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		"INSERT INTO working_copies (id, project_id, name, branch, base_revision) VALUES (?, ?, ?, ?, ?)",
		wc.ID, wc.ProjectID, wc.Name, wc.Branch, wc.BaseRevision,
	); err != nil {
		return err
	}

	for i, u := range units {
		tree, err := json.Marshal(u.Root)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO units (id, working_copy_id, type, qualified_name, position, tree) VALUES (?, ?, ?, ?, ?, ?)",
			u.ID, wc.ID, u.Kind, u.QualifiedName, i, string(tree),
		); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.QualifiedName, err)
		}
	}
	return tx.Commit()
}

func (s *WorkingCopyService) Get(id string) (*models.WorkingCopy, error) {
	wc, _, err := s.get(id)
	return wc, err
}

func (s *WorkingCopyService) get(id string) (*models.WorkingCopy, int, error) {
	var wc models.WorkingCopy
	var open int
	err := s.db.QueryRow(
		"SELECT id, project_id, name, branch, base_revision, open_sessions, created_at FROM working_copies WHERE id = ?",
		id,
	).Scan(&wc.ID, &wc.ProjectID, &wc.Name, &wc.Branch, &wc.BaseRevision, &open, &wc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, 0, ErrWorkingCopyNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return &wc, open, nil
}

// Open starts a session on the working copy.
func (s *WorkingCopyService) Open(id string) (*models.WorkingCopy, error) {
	res, err := s.db.Exec("UPDATE working_copies SET open_sessions = open_sessions + 1 WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrWorkingCopyNotFound
	}
	s.logger.Debug("session opened", zap.String("working_copy", id))
	return s.Get(id)
}

// Close ends a session. Closing a working copy without open sessions is an error.
func (s *WorkingCopyService) Close(id string) error {
	if _, err := s.requireOpen(id); err != nil {
		return err
	}
	if _, err := s.db.Exec(
		"UPDATE working_copies SET open_sessions = open_sessions - 1 WHERE id = ? AND open_sessions > 0", id,
	); err != nil {
		return err
	}
	s.logger.Debug("session closed", zap.String("working_copy", id))
	return nil
}

func (s *WorkingCopyService) requireOpen(id string) (*models.WorkingCopy, error) {
	wc, open, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if open == 0 {
		return nil, ErrSessionNotOpen
	}
	return wc, nil
}

// ListUnits returns the index entries of one kind in checkout order. An empty kind lists all units.
func (s *WorkingCopyService) ListUnits(id string, kind models.UnitKind) ([]models.UnitRef, error) {
	if _, err := s.requireOpen(id); err != nil {
		return nil, err
	}

	query := "SELECT id, type, qualified_name FROM units WHERE working_copy_id = ?"
	args := []any{id}
	if kind != "" {
		query += " AND type = ?"
		args = append(args, kind)
	}
	query += " ORDER BY position"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]models.UnitRef, 0)
	for rows.Next() {
		var ref models.UnitRef
		if err := rows.Scan(&ref.ID, &ref.Kind, &ref.QualifiedName); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Unit loads one unit with its structure tree.
func (s *WorkingCopyService) Unit(id, unitID string) (*models.Unit, error) {
	if _, err := s.requireOpen(id); err != nil {
		return nil, err
	}
	return s.unit(s.db.QueryRow, id, unitID)
}

type queryRowFunc func(query string, args ...any) *sql.Row

func (s *WorkingCopyService) unit(queryRow queryRowFunc, id, unitID string) (*models.Unit, error) {
	var u models.Unit
	var tree string
	err := queryRow(
		"SELECT id, type, qualified_name, tree FROM units WHERE working_copy_id = ? AND id = ?",
		id, unitID,
	).Scan(&u.ID, &u.Kind, &u.QualifiedName, &tree)
	if err == sql.ErrNoRows {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tree), &u.Root); err != nil {
		return nil, fmt.Errorf("decode unit %s: %w", u.QualifiedName, err)
	}
	return &u, nil
}

// Units loads every unit of the working copy in checkout order.
func (s *WorkingCopyService) Units(id string) ([]*models.Unit, error) {
	refs, err := s.ListUnits(id, "")
	if err != nil {
		return nil, err
	}
	units := make([]*models.Unit, 0, len(refs))
	for _, ref := range refs {
		u, err := s.unit(s.db.QueryRow, id, ref.ID)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// ApplyDeltas writes property changes into the working copy. The batch is applied atomically.
func (s *WorkingCopyService) ApplyDeltas(id string, deltas []models.Delta) error {
	if _, err := s.requireOpen(id); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	touched := make(map[string]*models.Unit)
	var order []string
	for _, d := range deltas {
		u, ok := touched[d.UnitID]
		if !ok {
			u, err = s.unit(tx.QueryRow, id, d.UnitID)
			if err != nil {
				return err
			}
			touched[d.UnitID] = u
			order = append(order, d.UnitID)
		}
		node := models.Find(u.Root, d.ElementID)
		if node == nil {
			return fmt.Errorf("%w: %s in %s", ErrElementNotFound, d.ElementID, u.QualifiedName)
		}
		if !node.SetProperty(d.Property, d.Value) {
			return fmt.Errorf("%w: property %q is not writable", ErrInvalidDelta, d.Property)
		}
	}

	for _, unitID := range order {
		tree, err := json.Marshal(touched[unitID].Root)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"UPDATE units SET tree = ? WHERE working_copy_id = ? AND id = ?",
			string(tree), id, unitID,
		); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("deltas applied", zap.String("working_copy", id), zap.Int("deltas", len(deltas)), zap.Int("units", len(order)))
	return nil
}
