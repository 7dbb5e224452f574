// Package version holds the build identity of classmod, stamped with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, e.g. v0.3.0.
	Version = "dev"
	// BuildTime is when the binary was built.
	BuildTime = "unknown"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
)

// Info returns the build identity for the /api/version endpoint.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"go_version": runtime.Version(),
	}
}

// String is the one-line form printed by the version command.
func String() string {
	return fmt.Sprintf("classmod %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, runtime.Version())
}
