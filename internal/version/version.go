package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version.
	// It is populated by the build system via ldflags.
	Version = "v0.1.0-dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build identity for the version command and startup logs.
func String() string {
	return fmt.Sprintf("capturerelay %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}
