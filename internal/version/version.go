// Package version holds build metadata set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent is sent on every backend HTTP request.
func UserAgent() string {
	return "tellyspelly/" + Version
}

func String() string {
	return fmt.Sprintf("tellyspelly %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}
