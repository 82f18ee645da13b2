// Package version holds build metadata injected at link time.
package version

// Set via -ldflags "-X github.com/Norgate-AV/irscan/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
