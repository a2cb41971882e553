// Package buildinfo exposes version information stamped in at build time:
//
//	go build -ldflags "-X github.com/matzehuels/stackpm/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/stackpm/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/stackpm/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/stackpm
package buildinfo

import "fmt"

var (
	Version = "dev"     // semantic version
	Commit  = "none"    // git commit
	Date    = "unknown" // build timestamp
)

// UserAgent identifies stackpm in registry requests.
func UserAgent() string {
	return "stackpm/" + Version
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}
