// Package buildinfo holds version information set at link time with
// -ldflags "-X github.com/modoterra/nockkeygen/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
