package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// These values are set at build time via -ldflags
	Version   = "dev"     // semantic version, e.g. v0.4.0
	GitCommit = "unknown" // git commit hash
	GitTag    = "unknown"
	BuildDate = "unknown"
)

const Component = "hpcompose"

// BuildInfo represents the complete build information
type BuildInfo struct {
	Component    string `json:"component"`
	Version      string `json:"version"`
	GitCommit    string `json:"git_commit"`
	GitTag       string `json:"git_tag"`
	BuildDate    string `json:"build_date"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Component:    Component,
		Version:      GetVersion(),
		GitCommit:    GitCommit,
		GitTag:       GitTag,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// GetVersion prefers the ldflags version, then the tag, then dev-<commit>.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if GitTag != "unknown" && GitTag != "" {
		return GitTag
	}
	return fmt.Sprintf("dev-%s", GitCommit)
}

// GetShortVersion returns a concise version string for display
func GetShortVersion() string {
	version := GetVersion()
	if GitCommit != "unknown" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", version, GitCommit[:7])
	}
	return version
}

// GetLongVersion returns detailed version information for the version command
func GetLongVersion() string {
	info := GetBuildInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s\n", info.Component, GetShortVersion())
	if info.BuildDate != "unknown" {
		fmt.Fprintf(&b, "Built: %s\n", info.BuildDate)
	}
	if info.GitCommit != "unknown" {
		fmt.Fprintf(&b, "Commit: %s\n", info.GitCommit)
	}
	fmt.Fprintf(&b, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Platform: %s/%s\n", info.Platform, info.Architecture)

	return b.String()
}
