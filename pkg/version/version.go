package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is the version of the unwind module.
type Version struct {
	Major    string
	Minor    string
	Patch    string
	Metadata string
	Build    string
}

// UnwindVersion is the current version of the module.
var UnwindVersion = Version{
	Major: "0", Minor: "1", Patch: "0", Metadata: "",
	Build: "$Id$",
}

func (v Version) String() string {
	v.Build = revision(v.Build, debug.ReadBuildInfo)
	ver := fmt.Sprintf("Version: %s.%s.%s", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		ver += "-" + v.Metadata
	}
	return fmt.Sprintf("%s\nBuild: %s", ver, v.Build)
}

// BuildInfo returns the Go version and the module dependencies the binary
// was built with.
func BuildInfo() string {
	var buf strings.Builder
	buf.WriteString(runtime.Version())
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			fmt.Fprintf(&buf, "\n\t%s %s", dep.Path, dep.Version)
		}
	}
	return buf.String()
}

// revision replaces an unexpanded ident keyword with the vcs revision
// recorded in the build info, if any.
func revision(build string, readBuildInfo func() (*debug.BuildInfo, bool)) string {
	if !strings.HasPrefix(build, "$Id") {
		return build
	}
	info, ok := readBuildInfo()
	if !ok {
		return build
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return build
}
