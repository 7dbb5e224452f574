package models

import "time"

// RunMode is the path taken by a single invocation.
type RunMode string

const (
	// ModeRename opens an existing working copy and renames class tokens.
	ModeRename RunMode = "rename"
	// ModeCreateOnline creates a working copy from the team server.
	ModeCreateOnline RunMode = "create-online"
	// ModeCreateFromTemplate creates and opens a working copy from a local template.
	ModeCreateFromTemplate RunMode = "create-from-template"
)

// RunStatus is the final state of a run.
type RunStatus string

const (
	// RunRunning is recorded when the run starts.
	RunRunning RunStatus = "running"
	// RunCommitted indicates changes were committed.
	RunCommitted RunStatus = "committed"
	// RunUnchanged indicates nothing matched the target token.
	RunUnchanged RunStatus = "unchanged"
	// RunDryRun indicates changes were found but not committed.
	RunDryRun RunStatus = "dry_run"
	// RunCreated indicates a working copy was created.
	RunCreated RunStatus = "created"
	// RunFailed indicates the run aborted with an error.
	RunFailed RunStatus = "failed"
)

// Run is a journal entry for one invocation.
type Run struct {
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	Revision      *int       `json:"revision"`
	ID            string     `json:"id"`
	Mode          RunMode    `json:"mode"`
	WorkingCopyID string     `json:"working_copy_id"`
	ModuleName    string     `json:"module_name"`
	Target        string     `json:"target"`
	Replacement   string     `json:"replacement"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error"`
	Host          string     `json:"host"`
	Replacements  int        `json:"replacements"`
	DryRun        bool       `json:"dry_run"`
}

// Mutation records one class token replacement.
type Mutation struct {
	CreatedAt     time.Time `json:"created_at"`
	RunID         string    `json:"run_id"`
	UnitID        string    `json:"unit_id"`
	QualifiedName string    `json:"qualified_name"`
	ElementID     string    `json:"element_id"`
	ElementName   string    `json:"element_name"`
	Before        string    `json:"before"`
	After         string    `json:"after"`
	ID            int64     `json:"id"`
}
