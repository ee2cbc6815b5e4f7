//go:build !cgo

package audiocapture

import (
	"fmt"
	"log/slog"
)

func enumerateDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("audiocapture: built without cgo, device enumeration is unavailable")
}

func openStream(dev DeviceInfo, deliver func(sampleRate, channels uint32, samples []int16), log *slog.Logger) (func(), error) {
	return nil, fmt.Errorf("audiocapture: built without cgo, device capture is unavailable")
}
