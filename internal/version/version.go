// Package version reports the build version, set at build time with:
//
//	go build -ldflags "-X github.com/ramonehamilton/crafting-profit/internal/version.Version=v1.2.3"
package version

import "runtime"

// Version is the application version. It defaults to "dev".
var Version = "dev"

// Info is the payload of the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// GetInfo returns the version together with the Go runtime version.
func GetInfo() Info {
	return Info{Version: Version, GoVersion: runtime.Version()}
}
