package audiocapture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectDevicePrefersBlackhole(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "1", Label: "Built-in Microphone"},
		{ID: "2", Label: "BlackHole 2ch"},
		{ID: "3", Label: "USB Headset"},
	}
	d, ok := selectDevice(devices)
	require.True(t, ok)
	require.Equal(t, "2", d.ID)
}

func TestSelectDeviceCaseInsensitive(t *testing.T) {
	devices := []DeviceInfo{{ID: "1", Label: "blackHOLE 16ch"}}
	d, ok := selectDevice(devices)
	require.True(t, ok)
	require.Equal(t, "1", d.ID)
}

func TestSelectDeviceFallsBackToDefault(t *testing.T) {
	devices := []DeviceInfo{{ID: "1", Label: "Built-in Microphone"}}
	d, ok := selectDevice(devices)
	require.True(t, ok)
	require.Equal(t, "1", d.ID)
}

func TestSelectDeviceNoneAvailable(t *testing.T) {
	_, ok := selectDevice(nil)
	require.False(t, ok)
}
