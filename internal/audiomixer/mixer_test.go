package audiomixer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Mixed, timeout time.Duration) Mixed {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(timeout):
		t.Fatal("timed out waiting for mixed chunk")
		return Mixed{}
	}
}

func TestMixerScenario3(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, nil)
	out := m.Subscribe()
	time.Sleep(5 * time.Millisecond) // let Subscribe's registration land

	m.Input() <- Input{StartMs: 1234.5, SampleRate: 48000, Channels: 1, Samples: []int16{100, -200}}

	mixed := drain(t, out, time.Second)
	require.Equal(t, float64(12*ChunkMs), mixed.StartMs)
	require.Equal(t, []int16{100, -200}, mixed.Samples)
}

func TestMixerSaturation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, nil)
	out := m.Subscribe()
	time.Sleep(5 * time.Millisecond)

	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 1, Samples: []int16{30000}}
	drain(t, out, time.Second)
	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 1, Samples: []int16{30000}}
	mixed := drain(t, out, time.Second)

	require.Equal(t, int16(32767), mixed.Samples[0])
}

func TestMixerDropsNonMono(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, nil)
	out := m.Subscribe()
	time.Sleep(5 * time.Millisecond)

	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 2, Samples: []int16{1, 2}}
	select {
	case <-out:
		t.Fatal("stereo input must not be mixed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMixerDropsMismatchedContribution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, nil)
	out := m.Subscribe()
	time.Sleep(5 * time.Millisecond)

	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 1, Samples: []int16{10}}
	first := drain(t, out, time.Second)
	require.Equal(t, uint32(48000), first.SampleRate)

	// Mismatched sample rate for the same bucket is dropped silently.
	m.Input() <- Input{StartMs: 0, SampleRate: 44100, Channels: 1, Samples: []int16{20}}
	select {
	case <-out:
		t.Fatal("mismatched contribution must not emit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMixerPruning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, nil)
	out := m.Subscribe()
	time.Sleep(5 * time.Millisecond)

	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 1, Samples: []int16{1}}
	drain(t, out, time.Second)

	// Stay idle beyond MaxBucketAgeMs + ChunkMs, then feed the same bucket
	// again; rely on wall clock since bucket age uses time.Now().
	time.Sleep((MaxBucketAgeMs + ChunkMs + 50) * time.Millisecond)
	m.Input() <- Input{StartMs: 0, SampleRate: 48000, Channels: 1, Samples: []int16{2}}
	mixed := drain(t, out, time.Second)
	// The bucket only contains the new contribution, proving the old
	// bucket's state was pruned rather than merged.
	require.Equal(t, []int16{2}, mixed.Samples)
}
