// SPDX-License-Identifier: MIT

// Package build exposes metadata injected at compile time via -ldflags
// (name, semantic version, commit hash, build timestamp). Unset values
// fall back to development defaults so the binary also runs from
// `go run` without linker flags.
package build

// Populated by -ldflags at compile time.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

type Flags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

var flags = Flags{
	Name:    "sdrfile",
	Time:    "unknown",
	Commit:  "unknown",
	Version: "dev",
}

// Initialize copies any ldflags-provided values over the defaults.
func Initialize() {
	if buildName != "" {
		flags.Name = buildName
	}
	if buildTime != "" {
		flags.Time = buildTime
	}
	if buildCommit != "" {
		flags.Commit = buildCommit
	}
	if buildVersion != "" {
		flags.Version = buildVersion
	}
}

// GetBuildFlags returns the resolved build metadata.
func GetBuildFlags() Flags {
	return flags
}
