package mp4demux

import (
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/61cygni/foundry/internal/wire"
)

// sampleLayout is the flattened, 1-based-indexable view of a track's
// sample table: for each sample, its absolute byte offset and size in the
// underlying file, plus whether it is a sync (keyframe) sample.
type sampleLayout struct {
	offsets [][2]uint64 // [offset, size], index 0 == sample #1
	sync    map[uint32]bool
}

// stblTables is the sample-table data buildSampleLayout needs, pulled out
// of an mp4ff box tree into plain slices. Isolating the mp4ff field access
// here keeps layoutFromTables (the actual offset/sync math) testable
// against synthetic data without constructing real mp4ff box values.
type stblTables struct {
	sampleCount     int
	uniformSize     uint32   // 0 means "use sizes"
	sizes           []uint32 // per-sample size, used when uniformSize == 0
	chunkOffsets    []uint64
	firstChunk      []uint32 // stsc, parallel to samplesPerChunk
	samplesPerChunk []uint32
	hasStss         bool
	syncSamples     []uint32 // 1-based sample numbers; only meaningful if hasStss
}

func buildSampleLayout(trak *mp4.TrakBox) (*sampleLayout, error) {
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsz/stsc")
	}

	t := stblTables{
		sampleCount:     int(stbl.Stsz.SampleNumber),
		uniformSize:     stbl.Stsz.SampleUniformSize,
		sizes:           stbl.Stsz.SampleSize,
		firstChunk:      stbl.Stsc.FirstChunk,
		samplesPerChunk: stbl.Stsc.SamplesPerChunk,
	}

	switch {
	case stbl.Stco != nil:
		for _, o := range stbl.Stco.ChunkOffset {
			t.chunkOffsets = append(t.chunkOffsets, uint64(o))
		}
	case stbl.Co64 != nil:
		t.chunkOffsets = append(t.chunkOffsets, stbl.Co64.ChunkOffset...)
	default:
		return nil, fmt.Errorf("missing stco/co64")
	}

	if stbl.Stss != nil {
		t.hasStss = true
		t.syncSamples = stbl.Stss.SampleNumber
	}

	return layoutFromTables(t), nil
}

// layoutFromTables flattens stsz/stco(64)/stsc/stss into a per-sample
// offset+size+sync-flag layout. No stss box means every sample is a sync
// sample (common for all-intra tracks).
func layoutFromTables(t stblTables) *sampleLayout {
	sizes := make([]uint32, t.sampleCount)
	if t.uniformSize != 0 {
		for i := range sizes {
			sizes[i] = t.uniformSize
		}
	} else {
		copy(sizes, t.sizes)
	}

	// Expand stsc's parallel (firstChunk, samplesPerChunk) runs into a
	// per-chunk samples-per-chunk lookup covering every chunk up to
	// len(chunkOffsets).
	samplesPerChunk := make([]uint32, len(t.chunkOffsets)+1) // 1-based
	for i := range t.firstChunk {
		first := int(t.firstChunk[i])
		last := len(t.chunkOffsets)
		if i+1 < len(t.firstChunk) {
			last = int(t.firstChunk[i+1]) - 1
		}
		for c := first; c <= last && c <= len(t.chunkOffsets); c++ {
			samplesPerChunk[c] = t.samplesPerChunk[i]
		}
	}

	offsets := make([][2]uint64, 0, t.sampleCount)
	sampleIdx := 0
	for chunk := 1; chunk <= len(t.chunkOffsets) && sampleIdx < t.sampleCount; chunk++ {
		pos := t.chunkOffsets[chunk-1]
		n := int(samplesPerChunk[chunk])
		for i := 0; i < n && sampleIdx < t.sampleCount; i++ {
			offsets = append(offsets, [2]uint64{pos, uint64(sizes[sampleIdx])})
			pos += uint64(sizes[sampleIdx])
			sampleIdx++
		}
	}

	sync := make(map[uint32]bool)
	if t.hasStss {
		for _, n := range t.syncSamples {
			sync[n] = true
		}
	} else {
		for i := 1; i <= t.sampleCount; i++ {
			sync[uint32(i)] = true
		}
	}

	return &sampleLayout{offsets: offsets, sync: sync}
}

// FrameIterator walks a track's samples in order, 1-based, prepending
// SPS/PPS to keyframe payloads.
type FrameIterator struct {
	file      *os.File
	layout    *sampleLayout
	frameRate float64
	spsPPS    []byte

	idx int // 0-based position into layout.offsets
}

// Frames opens its own file handle (independent of the one used for
// header parsing) and returns an iterator positioned at the first sample.
func (d *Demuxer) Frames() (*FrameIterator, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, wire.Wrap(wire.ContainerError, "frames: open", err)
	}
	parsed, err := mp4.DecodeFile(f)
	if err != nil {
		f.Close()
		return nil, wire.Wrap(wire.ContainerError, "frames: decode", err)
	}
	var videoTrak *mp4.TrakBox
	for _, trak := range parsed.Moov.Traks {
		if trak.Tkhd.TrackID == d.videoTrackID {
			videoTrak = trak
			break
		}
	}
	if videoTrak == nil {
		f.Close()
		return nil, wire.Wrap(wire.ContainerError, "frames: find track", fmt.Errorf("track %d vanished", d.videoTrackID))
	}
	layout, err := buildSampleLayout(videoTrak)
	if err != nil {
		f.Close()
		return nil, wire.Wrap(wire.ContainerError, "frames: sample layout", err)
	}

	return &FrameIterator{
		file:      f,
		layout:    layout,
		frameRate: d.frameRate,
		spsPPS:    d.spsPPSAVCC,
	}, nil
}

// Close releases the iterator's file handle.
func (it *FrameIterator) Close() error { return it.file.Close() }

// Next returns the next sample, or (Sample{}, false, nil) once the track
// is exhausted. A hole (zero-size sample) is skipped by advancing to the
// next index; a hard read error is returned and iteration stops.
func (it *FrameIterator) Next() (Sample, bool, error) {
	for {
		if it.idx >= len(it.layout.offsets) {
			return Sample{}, false, nil
		}
		i := it.idx
		oneBased := uint32(i + 1)
		off, size := it.layout.offsets[i][0], it.layout.offsets[i][1]
		it.idx++

		if size == 0 {
			continue // hole: advance and retry
		}

		buf := make([]byte, size)
		if _, err := it.file.ReadAt(buf, int64(off)); err != nil && err != io.EOF {
			return Sample{}, false, wire.Wrap(wire.ContainerError, "read sample", err)
		}

		isKeyframe := it.layout.sync[oneBased]
		data := buf
		if isKeyframe && len(it.spsPPS) > 0 {
			data = make([]byte, 0, len(it.spsPPS)+len(buf))
			data = append(data, it.spsPPS...)
			data = append(data, buf...)
		}

		timestampSecs := float64(i) / it.frameRate
		return Sample{TimestampSecs: timestampSecs, Data: data, IsKeyframe: isKeyframe}, true, nil
	}
}
