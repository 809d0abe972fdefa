// Package buildinfo holds version information set at link time with
// -ldflags "-X github.com/modoterra/sightline/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for version output.
func String(name string) string {
	return name + " " + Version + " (" + Commit + ") built " + Date
}
