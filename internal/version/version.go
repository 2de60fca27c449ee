// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// Full returns the version with the commit appended when known.
func Full() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
