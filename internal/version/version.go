// Package version carries build metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/twitchbot/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/twitchbot/internal/version.Commit=abc123"
//
// Without ldflags the commit falls back to the VCS revision stamped by the
// go tool.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("twitchbot %s (commit: %s, built: %s, %s/%s)",
		Version, ShortCommit(), Date, runtime.GOOS, runtime.GOARCH)
}

// ShortCommit returns the first seven characters of the commit.
func ShortCommit() string {
	c := commit()
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

// UserAgent identifies the bot on outgoing HTTP requests.
func UserAgent() string {
	return "twitchbot/" + Version
}

func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return Commit
}
