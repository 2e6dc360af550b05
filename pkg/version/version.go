// Package version carries the build identity stamped into tapbridged via
// -ldflags at release time; a development build reports "dev".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Full is the one-line form used by -version and the status endpoint.
func Full() string {
	return Version + " (" + Commit + ") built on " + Date
}
