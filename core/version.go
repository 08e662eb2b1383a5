package core

import (
	"fmt"
	"runtime/debug"
)

// Build metadata, injected with
//
//	go build -ldflags "-X finparser/core.Version=v1.2.0 -X finparser/core.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected it is read from the module's VCS stamp.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetVersion returns the application version.
func GetVersion() string {
	return Version
}

// GetGitCommit returns the injected commit, falling back to vcs.revision
// from the build info.
func GetGitCommit() string {
	if GitCommit != "unknown" && GitCommit != "" {
		return GitCommit
	}
	info, ok := readBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return GitCommit
}

// GetVersionInfo formats version, build time and commit for `finparser version`.
func GetVersionInfo() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GetGitCommit())
}
