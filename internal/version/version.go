// Package version carries build identity stamped in via -ldflags.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA is the git commit SHA the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the full build identity on one line.
func String() string {
	return fmt.Sprintf("stitchwork %s (%s, built %s)", Version, GitSHA, BuildTime)
}
