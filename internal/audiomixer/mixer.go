// Package audiomixer implements time-bucketed summation of mono
// client-contributed audio fragments, the fallback path used when no
// direct system-audio capture is available.
package audiomixer

import (
	"context"
	"log/slog"
	"time"
)

// ChunkMs is the bucket quantization width.
const ChunkMs = 100

// MaxBucketAgeMs is how long an untouched bucket survives before pruning.
const MaxBucketAgeMs = 2000

const (
	inputQueueCap = 256
	broadcastCap  = 128
)

// Input is one inbound audio fragment to be mixed.
type Input struct {
	StartMs    float64
	SampleRate uint32
	Channels   uint32
	Samples    []int16
}

// Mixed is an emitted, clipped mix of all contributions to one bucket so far.
type Mixed struct {
	StartMs    float64
	SampleRate uint32
	Channels   uint32
	Samples    []int16
}

type bucket struct {
	startMs    float64
	sampleRate uint32
	channels   uint32
	sum        []int32
	maxLen     int
	lastUpdate time.Time
}

// Mixer owns the bucket map on a single goroutine; all mutation is
// serialized through its input channel, so no lock is needed.
type Mixer struct {
	in   chan Input
	subs chan chan Mixed

	log *slog.Logger
}

// New starts the mixer's goroutine and returns a handle. ctx cancellation
// stops the goroutine.
func New(ctx context.Context, log *slog.Logger) *Mixer {
	if log == nil {
		log = slog.Default()
	}
	m := &Mixer{
		in:   make(chan Input, inputQueueCap),
		subs: make(chan chan Mixed, 16),
		log:  log.With("component", "audiomixer"),
	}
	go m.run(ctx)
	return m
}

// Input returns the channel callers use to feed mixer contributions.
func (m *Mixer) Input() chan<- Input {
	return m.in
}

// Subscribe registers a new output channel that receives every emitted
// Mixed chunk. The returned channel has bounded capacity; slow consumers
// lose the oldest unread message on overflow (the mixer never blocks on a
// subscriber).
func (m *Mixer) Subscribe() <-chan Mixed {
	out := make(chan Mixed, broadcastCap)
	select {
	case m.subs <- out:
	default:
		// subscription request itself never blocks startup callers
	}
	return out
}

func (m *Mixer) run(ctx context.Context) {
	buckets := make(map[int64]*bucket)
	var subscribers []chan Mixed
	lastPrune := time.Now()

	broadcast := func(mx Mixed) {
		for _, s := range subscribers {
			select {
			case s <- mx:
			default:
				// drop oldest: make room then retry once
				select {
				case <-s:
				default:
				}
				select {
				case s <- mx:
				default:
				}
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-m.subs:
			subscribers = append(subscribers, s)
		case input, ok := <-m.in:
			if !ok {
				return
			}
			if time.Since(lastPrune) > ChunkMs*time.Millisecond {
				now := time.Now()
				for k, bb := range buckets {
					if now.Sub(bb.lastUpdate) > MaxBucketAgeMs*time.Millisecond {
						delete(buckets, k)
					}
				}
				lastPrune = now
			}
			if input.Channels != 1 {
				continue
			}
			key := int64(input.StartMs / ChunkMs)
			b, exists := buckets[key]
			if !exists {
				b = &bucket{
					startMs:    float64(key) * ChunkMs,
					sampleRate: input.SampleRate,
					channels:   input.Channels,
					lastUpdate: time.Now(),
				}
				buckets[key] = b
			}
			if b.sampleRate != input.SampleRate || b.channels != input.Channels {
				continue
			}
			if len(b.sum) < len(input.Samples) {
				grown := make([]int32, len(input.Samples))
				copy(grown, b.sum)
				b.sum = grown
			}
			if b.maxLen < len(input.Samples) {
				b.maxLen = len(input.Samples)
			}
			for i, s := range input.Samples {
				b.sum[i] = saturatingAddI32(b.sum[i], int32(s))
			}
			b.lastUpdate = time.Now()

			mixed := make([]int16, b.maxLen)
			for i := 0; i < b.maxLen; i++ {
				mixed[i] = clipI16(b.sum[i])
			}
			broadcast(Mixed{
				StartMs:    b.startMs,
				SampleRate: b.sampleRate,
				Channels:   b.channels,
				Samples:    mixed,
			})
		}
	}
}

func saturatingAddI32(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > int64(1<<31-1) {
		return 1<<31 - 1
	}
	if sum < -int64(1<<31) {
		return -(1 << 31)
	}
	return int32(sum)
}

func clipI16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
