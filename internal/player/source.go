package player

import "github.com/61cygni/foundry/internal/mp4demux"

// demuxerSource adapts *mp4demux.Demuxer to Source: Demuxer.Frames returns
// the concrete *mp4demux.FrameIterator, which satisfies the FrameIterator
// interface structurally.
type demuxerSource struct {
	d *mp4demux.Demuxer
}

// NewSource wraps an opened Demuxer as a Source for the pacing loop.
func NewSource(d *mp4demux.Demuxer) Source {
	return demuxerSource{d: d}
}

func (s demuxerSource) Frames() (FrameIterator, error) {
	return s.d.Frames()
}

func (s demuxerSource) VideoConfig() mp4demux.VideoConfig {
	return s.d.VideoConfig()
}
