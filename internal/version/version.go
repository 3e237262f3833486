// Package version carries the build metadata reported by the server banner
// and the command-line tools. Nothing in here influences behavior.
package version

// Version is the release version, overridable at build time with
// -ldflags "-X vinz/internal/version.Version=...".
var Version = "1.3.0"

// Author is printed by the command-line tools alongside the version.
const Author = "KubiqIO"

// Info bundles the metadata for layers that report it.
type Info struct {
	Version string
	Author  string
}

// Get returns the process-wide build metadata.
func Get() Info {
	return Info{Version: Version, Author: Author}
}
