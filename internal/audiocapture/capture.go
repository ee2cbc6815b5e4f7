package audiocapture

import (
	"fmt"
	"log/slog"

	"github.com/61cygni/foundry/internal/wire"
)

// Capture owns a system audio input stream for the process lifetime. Its
// Close stops the underlying hardware stream; callers that want system
// audio for the whole process must keep the returned Capture referenced
// rather than letting it get garbage collected, mirroring
// original_source/src/main.rs's "must keep _audio_capture alive" comment.
type Capture struct {
	direct *broadcaster
	mono   *broadcaster
	log    *slog.Logger
	closer func()
}

// Direct subscribes to the unmixed, native-channel-count capture stream
// (fed straight to a Session as the direct audio path).
func (c *Capture) Direct() <-chan Chunk { return c.direct.subscribe() }

// Mono subscribes to the mono mixdown stream (fed to the audio mixer).
func (c *Capture) Mono() <-chan Chunk { return c.mono.subscribe() }

// Close stops the capture stream. It is safe to call multiple times.
func (c *Capture) Close() {
	if c.closer != nil {
		c.closer()
		c.closer = nil
	}
}

func (c *Capture) deliver(sampleRate uint32, channels uint32, interleaved []int16) {
	c.direct.publish(Chunk{SampleRate: sampleRate, Channels: channels, Samples: interleaved})
	mono := mixdownToMono(interleaved, int(channels))
	c.mono.publish(Chunk{SampleRate: sampleRate, Channels: 1, Samples: mono})
}

// Start opens the selected input device and begins capture. Callers
// should treat failure as a CaptureError to degrade-and-log per spec.md
// §7: run without the affected stream rather than aborting startup.
func Start(log *slog.Logger) (*Capture, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "audiocapture")

	devices, err := enumerateDevices()
	if err != nil {
		return nil, wire.Wrap(wire.CaptureError, "enumerate devices", err)
	}
	dev, ok := selectDevice(devices)
	if !ok {
		return nil, wire.Wrap(wire.CaptureError, "select device", fmt.Errorf("no input devices available"))
	}
	log.Info("selected input device", "label", dev.Label)

	c := &Capture{direct: newBroadcaster(), mono: newBroadcaster(), log: log}
	closer, err := openStream(dev, c.deliver, log)
	if err != nil {
		return nil, wire.Wrap(wire.CaptureError, "open stream", err)
	}
	c.closer = closer
	return c, nil
}
