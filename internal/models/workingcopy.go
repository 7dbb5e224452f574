package models

import "time"

// LatestRevision asks the team server for the newest revision of a branch.
const LatestRevision = -1

// WorkingCopy is a checked-out editing session of a project.
type WorkingCopy struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Name         string    `json:"name"`
	Branch       string    `json:"branch"`
	BaseRevision int       `json:"base_revision"`
}

// Revision selects a point on a branch. An empty branch is the mainline.
type Revision struct {
	Branch string `json:"branch"`
	Number int    `json:"revision"`
}

// CreateWorkingCopyRequest creates an online working copy from the team server.
type CreateWorkingCopyRequest struct {
	Branch   string `json:"branch"`
	Revision int    `json:"revision"`
}

// CommitRequest commits a working copy to a branch.
type CommitRequest struct {
	Branch string `json:"branch"`
}

// Delta is a staged property write on an element of a unit.
type Delta struct {
	UnitID    string `json:"unit_id"`
	ElementID string `json:"element_id"`
	Property  string `json:"property"`
	Value     string `json:"value"`
}

// JobStatus represents the state of an asynchronous server job.
type JobStatus string

const (
	// JobPending indicates the job is queued.
	JobPending JobStatus = "pending"
	// JobRunning indicates the job is in progress.
	JobRunning JobStatus = "running"
	// JobCompleted indicates the job finished successfully.
	JobCompleted JobStatus = "completed"
	// JobFailed indicates the job failed.
	JobFailed JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is an asynchronous commit on the team server.
type Job struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	WorkingCopyID string    `json:"working_copy_id"`
	Branch        string    `json:"branch"`
	Status        JobStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
	Revision      int       `json:"revision"`
}

// JobEvent is pushed to job stream subscribers on every status change.
type JobEvent struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Message  string    `json:"message,omitempty"`
	Revision int       `json:"revision,omitempty"`
}

// CommitResult is the outcome of a successful commit.
type CommitResult struct {
	Branch   string `json:"branch"`
	JobID    string `json:"job_id"`
	Revision int    `json:"revision"`
}
