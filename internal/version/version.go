// Package version carries build metadata injected with -ldflags, e.g.
//
//	-X github.com/Blackout-Industries/oci-oke-node-inspector/internal/version.Version=v1.2.0
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}
