// Package version provides build and version information for watchsieve.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
)

// Version is the current version of watchsieve.
// Set via ldflags at build time:
//
//	-X github.com/Aman-CERP/watchsieve/pkg/version.Version=$(VERSION)
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary (set at runtime).
	GoVersion = runtime.Version()
)

// Module is a dependency compiled into the binary.
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

var modules []Module

func init() {
	fillFromBuildInfo(debug.ReadBuildInfo)
}

// fillFromBuildInfo fills whatever ldflags left unset from the module
// build info, so `go install` builds still report something useful.
func fillFromBuildInfo(read func() (*debug.BuildInfo, bool)) {
	info, ok := read()
	if !ok {
		return
	}
	modules = collectModules(info.Deps)
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && s.Value != "" {
				Commit = s.Value
				if len(Commit) > 12 {
					Commit = Commit[:12]
				}
			}
		case "vcs.time":
			if Date == "unknown" && s.Value != "" {
				Date = s.Value
			}
		}
	}
}

// collectModules lists deps by path, reporting the replacement version
// where a module was replaced.
func collectModules(deps []*debug.Module) []Module {
	out := make([]Module, 0, len(deps))
	for _, d := range deps {
		m := Module{Path: d.Path, Version: d.Version}
		if d.Replace != nil {
			m.Version = d.Replace.Version
			if d.Replace.Version == "" {
				m.Version = "=> " + d.Replace.Path
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Modules returns the dependencies the binary was built with, by path.
// Empty when the binary carries no module information.
func Modules() []Module {
	return append([]Module(nil), modules...)
}

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a formatted version string with all build info.
func String() string {
	return fmt.Sprintf("watchsieve %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
