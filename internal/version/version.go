// Package version reports the version of the running harness.
package version

import "runtime/debug"

// Version is set at build time via
// -ldflags "-X github.com/CZERTAINLY/harness/internal/version.Version=v1.2.3"
var Version = ""

// Get returns the ldflags version, then the module version from the build
// info, then "dev".
func Get() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
