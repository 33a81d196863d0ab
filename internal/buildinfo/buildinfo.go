// Package buildinfo carries the version stamped into the kernel image.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X cm4kern/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 12 {
				s.Value = s.Value[:12]
			}
			Commit = s.Value
		case "vcs.time":
			Date = s.Value
		}
	}
}

// Short is the version when set, else the commit.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	default:
		return "dev"
	}
}

// String formats all three fields for the boot log.
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
