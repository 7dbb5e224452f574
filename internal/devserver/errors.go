// Package devserver is a local stand-in for the remote model service. It keeps projects, revisions,
// working copies and commit jobs in SQLite and is served over HTTP by the router package.
package devserver

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProjectNotFound     = errors.New("project not found")
	ErrRevisionNotFound    = errors.New("revision not found")
	ErrWorkingCopyNotFound = errors.New("working copy not found")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrElementNotFound     = errors.New("element not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrSessionNotOpen      = errors.New("working copy is not open")
	ErrInvalidTemplate     = errors.New("invalid template")
	ErrInvalidDelta        = errors.New("invalid delta")
)
