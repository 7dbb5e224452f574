package devserver

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// ProjectService stores projects and their committed revisions. Revisions are numbered per branch
// starting at 1; the empty branch is the mainline.
type ProjectService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewProjectService creates a new ProjectService instance.
func NewProjectService(db *database.DB, logger *zap.Logger) *ProjectService {
	return &ProjectService{db: db, logger: logging.OrNop(logger).Named("projects")}
}

// Seed creates the project with units as mainline revision 1. An existing project is left as is.
func (s *ProjectService) Seed(id, name string, units []*models.Unit) error {
	exists, err := s.Exists(id)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("project already seeded", zap.String("project", id))
		return nil
	}

	if _, err := s.db.Exec("INSERT INTO projects (id, name) VALUES (?, ?)", id, name); err != nil {
		return err
	}
	rev, err := s.AddRevision(id, "", units, "seed")
	if err != nil {
		return err
	}
	s.logger.Info("project seeded", zap.String("project", id), zap.Int("units", len(units)), zap.Int("revision", rev))
	return nil
}

func (s *ProjectService) Exists(id string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM projects WHERE id = ?", id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddRevision stores units as the next revision of branch and returns its number.
func (s *ProjectService) AddRevision(projectID, branch string, units []*models.Unit, author string) (int, error) {
	data, err := json.Marshal(units)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var latest sql.NullInt64
	if err := tx.QueryRow(
		"SELECT MAX(number) FROM revisions WHERE project_id = ? AND branch = ?",
		projectID, branch,
	).Scan(&latest); err != nil {
		return 0, err
	}
	number := int(latest.Int64) + 1

	if _, err := tx.Exec(
		"INSERT INTO revisions (project_id, branch, number, units, author) VALUES (?, ?, ?, ?, ?)",
		projectID, branch, number, string(data), author,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return number, nil
}

// Revision returns the units of a revision and its number. LatestRevision, or 0, selects the
// newest revision of the branch.
func (s *ProjectService) Revision(projectID string, rev models.Revision) ([]*models.Unit, int, error) {
	exists, err := s.Exists(projectID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrProjectNotFound
	}

	var row *sql.Row
	if rev.Number <= 0 {
		row = s.db.QueryRow(`
			SELECT number, units FROM revisions
			WHERE project_id = ? AND branch = ?
			ORDER BY number DESC LIMIT 1
		`, projectID, rev.Branch)
	} else {
		row = s.db.QueryRow(
			"SELECT number, units FROM revisions WHERE project_id = ? AND branch = ? AND number = ?",
			projectID, rev.Branch, rev.Number,
		)
	}

	var number int
	var data string
	if err := row.Scan(&number, &data); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, ErrRevisionNotFound
		}
		return nil, 0, err
	}

	var units []*models.Unit
	if err := json.Unmarshal([]byte(data), &units); err != nil {
		return nil, 0, fmt.Errorf("decode revision %d: %w", number, err)
	}
	return units, number, nil
}
