// Package vars holds build-time version metadata, injected via -ldflags
// at release build time and printed by the CLI's version command.
package vars

import "fmt"

// Set via -ldflags "-X github.com/tes3tools/tesmerge/internal/vars.Version=..."
// at release build time; left at defaults for local/dev builds.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Print writes the version banner to stdout.
func Print() {
	fmt.Printf("tesmerge %s (commit %s, built %s)\n", Version, Commit, BuildDate)
}

// String returns the same banner as Print, for embedding in logs.
func String() string {
	return fmt.Sprintf("tesmerge %s (commit %s, built %s)", Version, Commit, BuildDate)
}
