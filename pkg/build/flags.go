// SPDX-License-Identifier: MIT
//
// Package build holds the version metadata linked into the binary:
//
//	go build -ldflags "-X hummer/pkg/build.buildName=hummer \
//	  -X hummer/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X hummer/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X hummer/pkg/build.buildVersion=0.1.0"
//
// Development builds without the flags report "dev" values.
package build

import "fmt"

// Info describes the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information, set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:    "hummer",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize validates and copies the ldflags variables into the build
// info. On error the development defaults stay in place.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// Get returns the current build information.
func Get() *Info {
	return buildInfo
}

// String formats the info for --version.
func (i *Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}
