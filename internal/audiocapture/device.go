package audiocapture

import "strings"

// DeviceInfo is the subset of an enumerated input device's metadata this
// package selects on.
type DeviceInfo struct {
	ID    string
	Label string
}

// selectDevice implements spec.md §4.5's selection rule: prefer the first
// device whose label contains "blackhole" (case-insensitive); otherwise
// fall back to the platform default (the first device in devices, by
// convention of the enumeration order the capture backend provides). It
// returns false when devices is empty.
func selectDevice(devices []DeviceInfo) (DeviceInfo, bool) {
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Label), "blackhole") {
			return d, true
		}
	}
	if len(devices) > 0 {
		return devices[0], true
	}
	return DeviceInfo{}, false
}
