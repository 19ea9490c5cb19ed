// Package misc holds small program-identity helpers shared by all commands.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "cssren"

// GetAppName returns the program name used for logs, reports and temp files.
func GetAppName() string {
	return appName
}

var buildInfo = sync.OnceValue(func() (info struct{ version, hash string }) {
	info.version = "devel"
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.hash = s.Value
			if len(info.hash) > 12 {
				info.hash = info.hash[:12]
			}
		}
	}
	return info
})

// GetVersion returns the module version recorded in build info.
func GetVersion() string {
	return buildInfo().version
}

// GetGitHash returns the shortened VCS revision the binary was built from.
func GetGitHash() string {
	return buildInfo().hash
}
