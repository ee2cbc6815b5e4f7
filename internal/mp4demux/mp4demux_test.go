package mp4demux

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVideoConfigCodecString(t *testing.T) {
	d := &Demuxer{
		width:  1280,
		height: 720,
		avccConfig: []byte{
			0x01,       // version
			0x42,       // profile
			0x00,       // constraints
			0x1f,       // level
			0xFF, 0xE1, // length size / numSPS
		},
	}
	cfg := d.VideoConfig()
	require.Equal(t, "avc1.42001F", cfg.CodecString)
	require.Equal(t, uint32(1280), cfg.Width)
	require.Equal(t, uint32(720), cfg.Height)

	raw, err := base64.StdEncoding.DecodeString(cfg.DescriptionB64)
	require.NoError(t, err)
	require.Equal(t, d.avccConfig, raw)
}

func TestVideoConfigFallbackWhenNoAVCC(t *testing.T) {
	d := &Demuxer{width: 640, height: 480}
	cfg := d.VideoConfig()
	require.Equal(t, "avc1.42E01E", cfg.CodecString)
}

func TestLengthPrefix4(t *testing.T) {
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, lengthPrefix4(5))
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x00}, lengthPrefix4(1<<16))
}

func TestLayoutFromTablesUniformSizeOneChunkPerSample(t *testing.T) {
	// 4 samples, uniform size 100, one sample per chunk, no stss: every
	// sample is a sync sample.
	tbl := stblTables{
		sampleCount:     4,
		uniformSize:     100,
		chunkOffsets:    []uint64{0, 100, 200, 300},
		firstChunk:      []uint32{1},
		samplesPerChunk: []uint32{1},
	}
	layout := layoutFromTables(tbl)
	require.Len(t, layout.offsets, 4)
	require.Equal(t, [2]uint64{0, 100}, layout.offsets[0])
	require.Equal(t, [2]uint64{300, 100}, layout.offsets[3])
	for i := uint32(1); i <= 4; i++ {
		require.True(t, layout.sync[i], "sample %d should default to sync when no stss", i)
	}
}

func TestLayoutFromTablesVariableSizeMultiRunStsc(t *testing.T) {
	// 5 samples across 2 chunks: chunk 1 holds 2 samples, chunk 2 holds 3,
	// expressed as two stsc runs (firstChunk=1 -> 2/chunk, firstChunk=2 ->
	// 3/chunk), with explicit per-sample sizes and an stss marking only
	// sample 1 and 4 as sync.
	tbl := stblTables{
		sampleCount:     5,
		sizes:           []uint32{10, 20, 30, 40, 50},
		chunkOffsets:    []uint64{1000, 2000},
		firstChunk:      []uint32{1, 2},
		samplesPerChunk: []uint32{2, 3},
		hasStss:         true,
		syncSamples:     []uint32{1, 4},
	}
	layout := layoutFromTables(tbl)
	require.Equal(t, [][2]uint64{
		{1000, 10},
		{1010, 20},
		{2000, 30},
		{2030, 40},
		{2070, 50},
	}, layout.offsets)

	require.True(t, layout.sync[1])
	require.False(t, layout.sync[2])
	require.False(t, layout.sync[3])
	require.True(t, layout.sync[4])
	require.False(t, layout.sync[5])
}

func TestFrameIteratorPrependsSPSAndPPSOnKeyframesOnly(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "samples")
	require.NoError(t, err)
	defer f.Close()

	// Sample 1 (keyframe) at offset 0, size 3; sample 2 (non-keyframe) at
	// offset 3, size 4.
	_, err = f.Write([]byte{0xAA, 0xAA, 0xAA, 0xBB, 0xBB, 0xBB, 0xBB})
	require.NoError(t, err)

	spsPPS := []byte{0x00, 0x00, 0x00, 0x02, 0x67, 0x42} // fake length-prefixed SPS

	it := &FrameIterator{
		file: f,
		layout: &sampleLayout{
			offsets: [][2]uint64{{0, 3}, {3, 4}},
			sync:    map[uint32]bool{1: true},
		},
		frameRate: 30.0,
		spsPPS:    spsPPS,
	}

	s1, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s1.IsKeyframe)
	require.Equal(t, 0.0, s1.TimestampSecs)
	require.Equal(t, append(append([]byte{}, spsPPS...), 0xAA, 0xAA, 0xAA), s1.Data)

	s2, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, s2.IsKeyframe)
	require.Equal(t, 1.0/30.0, s2.TimestampSecs)
	require.Equal(t, []byte{0xBB, 0xBB, 0xBB, 0xBB}, s2.Data)

	_, ok, err = it.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFrameIteratorSkipsHoles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "samples")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write([]byte{0xCC, 0xCC})
	require.NoError(t, err)

	it := &FrameIterator{
		file: f,
		layout: &sampleLayout{
			// sample 1 is a zero-size hole and must be skipped; sample 2
			// is the real payload and keeps index-derived timestamp 1/fr.
			offsets: [][2]uint64{{0, 0}, {0, 2}},
			sync:    map[uint32]bool{},
		},
		frameRate: 25.0,
	}

	s, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0xCC, 0xCC}, s.Data)
	require.Equal(t, 1.0/25.0, s.TimestampSecs)
}
