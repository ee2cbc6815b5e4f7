package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAUD0RoundTrip(t *testing.T) {
	frame := AudioFrame{
		StartMs:    1234.5,
		SampleRate: 48000,
		Channels:   1,
		Samples:    []int16{100, -200, 32767, -32768, 0},
	}

	encoded := EncodeAUD0(frame)
	require.Len(t, encoded, AUD0HeaderSize+2*len(frame.Samples))

	decoded, err := DecodeAUD0(encoded)
	require.NoError(t, err)
	require.Equal(t, frame.StartMs, decoded.StartMs)
	require.Equal(t, frame.SampleRate, decoded.SampleRate)
	require.Equal(t, frame.Channels, decoded.Channels)
	require.Equal(t, uint32(len(frame.Samples)), decoded.SampleCount)
	require.Equal(t, frame.Samples, decoded.Samples)
}

func TestDecodeAUD0RejectsShortBuffers(t *testing.T) {
	_, err := DecodeAUD0([]byte("short"))
	require.Error(t, err)

	frame := AudioFrame{SampleRate: 48000, Channels: 1, Samples: []int16{1, 2, 3}}
	encoded := EncodeAUD0(frame)
	_, err = DecodeAUD0(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestDecodeAUD0BadMagic(t *testing.T) {
	encoded := EncodeAUD0(AudioFrame{})
	encoded[0] = 'X'
	_, err := DecodeAUD0(encoded)
	require.Error(t, err)
}

func TestAUD0ConcreteScenario(t *testing.T) {
	// spec.md §8 scenario 3: the scenario's header fields and samples,
	// encoded and decoded again, yield the expected bucket key
	// (floor(1234.5/100) == 12) and sample values.
	frame := AudioFrame{
		StartMs:    1234.5,
		SampleRate: 48000,
		Channels:   1,
		Samples:    []int16{100, -200},
	}
	encoded := EncodeAUD0(frame)
	decoded, err := DecodeAUD0(encoded)
	require.NoError(t, err)
	require.Equal(t, int64(12), int64(decoded.StartMs/100))
	require.Equal(t, []int16{100, -200}, decoded.Samples)
}
