// Package buildinfo carries release metadata stamped at link time:
//
//	go build -ldflags "-X github.com/m3rciful/regbot/core/buildinfo.Version=v1.0.0 \
//	  -X github.com/m3rciful/regbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/regbot/core/buildinfo.Date=$(date -u +%FT%TZ)" ./cmd/regbot
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders the build as "version (commit, date)".
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
