package devserver

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// JobService runs commits asynchronously and fans their events out to subscribers.
type JobService struct {
	db            *database.DB
	projects      *ProjectService
	workingCopies *WorkingCopyService
	logger        *zap.Logger
	streams       map[string][]chan models.JobEvent
	streamsMu     sync.RWMutex
	wg            sync.WaitGroup
}

// NewJobService creates a new JobService instance.
func NewJobService(db *database.DB, projects *ProjectService, workingCopies *WorkingCopyService, logger *zap.Logger) *JobService {
	return &JobService{
		db:            db,
		projects:      projects,
		workingCopies: workingCopies,
		logger:        logging.OrNop(logger).Named("jobs"),
		streams:       make(map[string][]chan models.JobEvent),
	}
}

// CreateCommit queues a commit of the working copy to branch. The working copy must be open.
func (s *JobService) CreateCommit(workingCopyID, branch string) (*models.Job, error) {
	if _, err := s.workingCopies.requireOpen(workingCopyID); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if _, err := s.db.Exec(
		"INSERT INTO jobs (id, working_copy_id, branch, status) VALUES (?, ?, ?, ?)",
		id, workingCopyID, branch, models.JobPending,
	); err != nil {
		return nil, err
	}
	return s.GetJob(id)
}

// StartCommit creates a commit job and runs it in the background.
func (s *JobService) StartCommit(workingCopyID, branch string) (*models.Job, error) {
	job, err := s.CreateCommit(workingCopyID, branch)
	if err != nil {
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Execute(job.ID)
	}()
	return job, nil
}

// Wait blocks until background jobs have finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

func (s *JobService) GetJob(id string) (*models.Job, error) {
	var job models.Job
	var errMsg sql.NullString
	err := s.db.QueryRow(
		"SELECT id, working_copy_id, branch, status, revision, error, created_at FROM jobs WHERE id = ?",
		id,
	).Scan(&job.ID, &job.WorkingCopyID, &job.Branch, &job.Status, &job.Revision, &errMsg, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}

// Execute commits the working copy's units as a new revision of the job's branch.
func (s *JobService) Execute(jobID string) error {
	job, err := s.GetJob(jobID)
	if err != nil {
		s.logger.Error("job lookup failed", zap.String("job", jobID), zap.Error(err))
		return err
	}

	s.setStatus(jobID, models.JobRunning)
	s.broadcast(models.JobEvent{JobID: jobID, Status: models.JobRunning, Message: "committing"})

	revision, err := s.commit(job)
	if err != nil {
		s.logger.Warn("commit failed", zap.String("job", jobID), zap.Error(err))
		s.finish(jobID, models.JobFailed, 0, err.Error())
		s.broadcast(models.JobEvent{JobID: jobID, Status: models.JobFailed, Message: err.Error()})
		return err
	}

	s.finish(jobID, models.JobCompleted, revision, "")
	s.broadcast(models.JobEvent{JobID: jobID, Status: models.JobCompleted, Revision: revision})
	s.logger.Info("commit finished",
		zap.String("job", jobID),
		zap.String("working_copy", job.WorkingCopyID),
		zap.String("branch", job.Branch),
		zap.Int("revision", revision))
	return nil
}

func (s *JobService) commit(job *models.Job) (int, error) {
	wc, err := s.workingCopies.Get(job.WorkingCopyID)
	if err != nil {
		return 0, err
	}
	units, err := s.workingCopies.Units(job.WorkingCopyID)
	if err != nil {
		return 0, err
	}
	revision, err := s.projects.AddRevision(wc.ProjectID, job.Branch, units, wc.Name)
	if err != nil {
		return 0, fmt.Errorf("store revision: %w", err)
	}
	if _, err := s.db.Exec(
		"UPDATE working_copies SET branch = ?, base_revision = ? WHERE id = ?",
		job.Branch, revision, wc.ID,
	); err != nil {
		return 0, err
	}
	return revision, nil
}

func (s *JobService) setStatus(id string, status models.JobStatus) {
	if _, err := s.db.Exec("UPDATE jobs SET status = ? WHERE id = ?", status, id); err != nil {
		s.logger.Error("job status update failed", zap.String("job", id), zap.Error(err))
	}
}

func (s *JobService) finish(id string, status models.JobStatus, revision int, errMsg string) {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if _, err := s.db.Exec(
		"UPDATE jobs SET status = ?, revision = ?, error = ? WHERE id = ?",
		status, revision, msg, id,
	); err != nil {
		s.logger.Error("job finish failed", zap.String("job", id), zap.Error(err))
	}
}

// Event returns the latest state of a job as an event.
func Event(job *models.Job) models.JobEvent {
	return models.JobEvent{JobID: job.ID, Status: job.Status, Message: job.Error, Revision: job.Revision}
}

func (s *JobService) Subscribe(jobID string) chan models.JobEvent {
	ch := make(chan models.JobEvent, 16)

	s.streamsMu.Lock()
	s.streams[jobID] = append(s.streams[jobID], ch)
	s.streamsMu.Unlock()

	return ch
}

func (s *JobService) Unsubscribe(jobID string, ch chan models.JobEvent) {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	channels := s.streams[jobID]
	for i, c := range channels {
		if c == ch {
			s.streams[jobID] = append(channels[:i], channels[i+1:]...)
			close(ch)
			break
		}
	}

	if len(s.streams[jobID]) == 0 {
		delete(s.streams, jobID)
	}
}

func (s *JobService) broadcast(event models.JobEvent) {
	s.streamsMu.RLock()
	defer s.streamsMu.RUnlock()

	for _, ch := range s.streams[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}
