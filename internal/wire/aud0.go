package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AUD0HeaderSize is the fixed header length before the interleaved i16
// sample payload.
const AUD0HeaderSize = 24

var aud0Magic = [4]byte{'A', 'U', 'D', '0'}

// AudioFrame is the decoded form of an AUD0 binary message.
type AudioFrame struct {
	StartMs     float64
	SampleRate  uint32
	Channels    uint32
	SampleCount uint32
	Samples     []int16
}

// EncodeAUD0 serializes an AudioFrame into its wire representation.
// SampleCount is derived from len(Samples); the caller-supplied
// f.SampleCount is ignored.
func EncodeAUD0(f AudioFrame) []byte {
	count := len(f.Samples)
	out := make([]byte, AUD0HeaderSize+2*count)
	copy(out[0:4], aud0Magic[:])
	binary.LittleEndian.PutUint64(out[4:12], math.Float64bits(f.StartMs))
	binary.LittleEndian.PutUint32(out[12:16], f.SampleRate)
	binary.LittleEndian.PutUint32(out[16:20], f.Channels)
	binary.LittleEndian.PutUint32(out[20:24], uint32(count))
	for i, s := range f.Samples {
		binary.LittleEndian.PutUint16(out[24+2*i:26+2*i], uint16(s))
	}
	return out
}

// DecodeAUD0 parses a wire AUD0 message. It rejects buffers shorter than
// 24 + 2*sample_count, or whose magic does not match.
func DecodeAUD0(data []byte) (AudioFrame, error) {
	if len(data) < AUD0HeaderSize {
		return AudioFrame{}, fmt.Errorf("aud0: message too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != string(aud0Magic[:]) {
		return AudioFrame{}, fmt.Errorf("aud0: bad magic %q", data[0:4])
	}
	startMs := math.Float64frombits(binary.LittleEndian.Uint64(data[4:12]))
	sampleRate := binary.LittleEndian.Uint32(data[12:16])
	channels := binary.LittleEndian.Uint32(data[16:20])
	count := binary.LittleEndian.Uint32(data[20:24])

	need := AUD0HeaderSize + 2*uint64(count)
	if uint64(len(data)) < need {
		return AudioFrame{}, fmt.Errorf("aud0: buffer too short for %d samples: have %d, need %d", count, len(data), need)
	}

	samples := make([]int16, count)
	for i := range samples {
		off := AUD0HeaderSize + 2*i
		samples[i] = int16(binary.LittleEndian.Uint16(data[off : off+2]))
	}

	return AudioFrame{
		StartMs:     startMs,
		SampleRate:  sampleRate,
		Channels:    channels,
		SampleCount: count,
		Samples:     samples,
	}, nil
}
