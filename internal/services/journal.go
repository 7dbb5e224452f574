package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// ErrRunNotFound is returned when a journal run does not exist.
var ErrRunNotFound = errors.New("run not found")

// JournalService records runs and class replacements in SQLite. A nil *JournalService is valid
// and records nothing, which is how a run without JOURNAL_PATH behaves.
type JournalService struct {
	db *database.DB
}

// NewJournalService creates a new JournalService instance.
func NewJournalService(db *database.DB) *JournalService {
	return &JournalService{db: db}
}

// StartRun inserts the run with status running.
func (s *JournalService) StartRun(run *models.Run) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, mode, working_copy_id, module_name, target, replacement, dry_run, status, host, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Mode, run.WorkingCopyID, run.ModuleName, run.Target, run.Replacement, run.DryRun,
		models.RunRunning, run.Host, run.StartedAt)
	return err
}

// RecordMutation stores one replacement of a run.
func (s *JournalService) RecordMutation(m models.Mutation) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO mutations (run_id, unit_id, qualified_name, element_id, element_name, before_value, after_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.RunID, m.UnitID, m.QualifiedName, m.ElementID, m.ElementName, m.Before, m.After)
	return err
}

// FinishRun stores the final state of a run.
func (s *JournalService) FinishRun(run *models.Run) error {
	if s == nil {
		return nil
	}
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, working_copy_id = ?, replacements = ?, revision = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.WorkingCopyID, run.Replacements, run.Revision, errMsg, finished, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun loads a run by id.
func (s *JournalService) GetRun(id string) (*models.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, mode, working_copy_id, module_name, target, replacement, dry_run, status,
		       replacements, revision, error, host, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// GetRuns lists runs, newest first, with pagination.
func (s *JournalService) GetRuns(limit, offset int) ([]models.Run, error) {
	if limit == 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, mode, working_copy_id, module_name, target, replacement, dry_run, status,
		       replacements, revision, error, host, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetMutations lists the replacements of a run in the order they were made.
func (s *JournalService) GetMutations(runID string) ([]models.Mutation, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, unit_id, qualified_name, element_id, element_name, before_value, after_value, created_at
		FROM mutations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mutations := make([]models.Mutation, 0)
	for rows.Next() {
		var m models.Mutation
		var name sql.NullString
		if err := rows.Scan(&m.ID, &m.RunID, &m.UnitID, &m.QualifiedName, &m.ElementID, &name,
			&m.Before, &m.After, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ElementName = name.String
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var wc, module, errMsg, host sql.NullString
	var revision sql.NullInt64
	var finished sql.NullTime

	if err := row.Scan(&run.ID, &run.Mode, &wc, &module, &run.Target, &run.Replacement, &run.DryRun,
		&run.Status, &run.Replacements, &revision, &errMsg, &host, &run.StartedAt, &finished); err != nil {
		return nil, err
	}

	run.WorkingCopyID = wc.String
	run.ModuleName = module.String
	run.Error = errMsg.String
	run.Host = host.String
	if revision.Valid {
		rev := int(revision.Int64)
		run.Revision = &rev
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
