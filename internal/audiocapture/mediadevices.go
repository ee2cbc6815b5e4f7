//go:build cgo

package audiocapture

import (
	"fmt"
	"log/slog"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/mediadevices/pkg/wave"
)

// enumerateDevices lists audio input devices via pion/mediadevices, the
// same enumeration API petervdpas-goop2's call package uses for its
// graceful video+audio / audio-only fallback.
func enumerateDevices() ([]DeviceInfo, error) {
	all := mediadevices.EnumerateDevices()
	var out []DeviceInfo
	for _, d := range all {
		if d.Kind == mediadevices.AudioInput {
			out = append(out, DeviceInfo{ID: d.DeviceID, Label: d.Label})
		}
	}
	return out, nil
}

// openStream opens dev at its native format/rate and delivers interleaved
// i16 chunks to deliver until Close is called.
func openStream(dev DeviceInfo, deliver func(sampleRate, channels uint32, samples []int16), log *slog.Logger) (func(), error) {
	d := driver.GetManager().Query(func(d driver.Driver) bool {
		return d.Info().DeviceID == dev.ID
	})
	if len(d) == 0 {
		return nil, fmt.Errorf("audiocapture: driver for device %q not found", dev.ID)
	}
	audioDriver := d[0]
	if err := audioDriver.Open(); err != nil {
		return nil, fmt.Errorf("audiocapture: open driver: %w", err)
	}

	recorder, ok := audioDriver.(interface {
		AudioRecord(prop.Media) (mediadevices.AudioReader, error)
	})
	if !ok {
		audioDriver.Close()
		return nil, fmt.Errorf("audiocapture: driver does not support audio recording")
	}

	reader, err := recorder.AudioRecord(prop.Media{})
	if err != nil {
		audioDriver.Close()
		return nil, fmt.Errorf("audiocapture: start recording: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			chunk, _, err := reader.Read()
			if err != nil {
				log.Warn("audio read error", "err", err)
				return
			}
			sampleRate := uint32(chunk.ChunkInfo().SamplingRate)
			channels := uint32(chunk.ChunkInfo().Channels)
			interleaved := chunkToI16(chunk)
			deliver(sampleRate, channels, interleaved)
		}
	}()

	return func() {
		close(stop)
		audioDriver.Close()
	}, nil
}

// chunkToI16 converts a wave.Audio chunk (whatever its native sample
// format) to interleaved i16, reusing the same float32 conversion rule
// spec.md §4.5 specifies; i16-native chunks pass through unchanged.
func chunkToI16(a wave.Audio) []int16 {
	info := a.ChunkInfo()
	switch buf := a.(type) {
	case *wave.Int16Interleaved:
		return append([]int16(nil), buf.Data...)
	case *wave.Float32Interleaved:
		return float32ToI16(buf.Data)
	default:
		_ = info
		return nil
	}
}
