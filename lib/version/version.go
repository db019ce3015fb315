// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the belfast binary.
//
// Values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/belfast-foundation/belfast-console/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without ldflags fall back to the module and VCS data the Go
// toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. Set manually for releases.
	Version = "0.1.0-dev"
)

// Build is the resolved build information.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
}

// Current merges the ldflags values with the toolchain's embedded VCS
// settings. Explicit ldflags win.
func Current() Build {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if build.Commit == "unknown" && len(setting.Value) >= 7 {
				build.Commit = setting.Value[:7]
			}
		case "vcs.modified":
			if GitDirty == "false" && setting.Value == "true" {
				build.Dirty = true
			}
		case "vcs.time":
			if build.BuildTime == "unknown" {
				build.BuildTime = setting.Value
			}
		}
	}
	return build
}

// Info returns a one-line version string for --version output.
func Info() string {
	build := Current()
	dirty := ""
	if build.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", build.Version, build.Commit, dirty, build.BuildTime)
}

// Full adds the Go version and platform to Info.
func Full() string {
	build := Current()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", Info(), build.Go, build.Platform)
}

// UserAgent is sent with every API request.
func UserAgent() string {
	return "belfast-console/" + Version
}
