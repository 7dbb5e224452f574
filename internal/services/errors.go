// Package services implements the class rename workflow: open a working copy session, load the
// page, snippet and layout units, collect class-bearing elements, rename the target token and commit.
package services

import "errors"

var (
	// ErrSessionOpen means the working copy could not be opened. It is fatal for the run.
	ErrSessionOpen = errors.New("error opening model")
	// ErrCreate means a new working copy could not be created.
	ErrCreate = errors.New("error creating working copy")
	// ErrLoad means a unit collection could not be fully loaded.
	ErrLoad = errors.New("error loading units")
	// ErrMutate means a staged property write was rejected.
	ErrMutate = errors.New("error updating element")
	// ErrCommit means the commit to the team server failed.
	ErrCommit = errors.New("error committing working copy")
	// ErrClose means the session could not be closed.
	ErrClose = errors.New("failed to close connection to model API")
)
