// Package buildinfo stamps binaries with the VCS revision embedded by the
// Go toolchain, the same debug.ReadBuildInfo trick the teacher's version
// command uses.
package buildinfo

import "runtime/debug"

// Revision returns the vcs.revision build setting, or "<unknown>" when the
// binary wasn't built from a VCS checkout.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "<unknown>"
	}
	for _, kv := range info.Settings {
		if kv.Key == "vcs.revision" && kv.Value != "" {
			return kv.Value
		}
	}
	return "<unknown>"
}
