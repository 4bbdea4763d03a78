// Package version provides information about the build version of the pipeline.
package version

// BuildInfo holds version information about the pipeline build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Service is the product name stamped into logs and client info
const Service = "telewarehouse"

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'telewarehouse/internal/core/version.version=v0.1.0'
	// -X 'telewarehouse/internal/core/version.commit=abcd' -X 'telewarehouse/internal/core/version.date=2025-07-14'"
	return BuildInfo{
		Service: Service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
