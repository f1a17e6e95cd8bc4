package main

import (
	"runtime/debug"
)

// set with -ldflags "-X main.app_ver=..."
var app_ver string = ""

// app_version prefers the module version recorded by go install, then the
// linker-injected one. Local builds report the VCS revision when known.
func app_version() string {
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	if app_ver != "" {
		return app_ver
	}
	if ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return "devel-" + s.Value[:7]
			}
		}
	}
	return "devel"
}
