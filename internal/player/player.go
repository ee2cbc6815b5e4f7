// Package player implements the offline paced player: it walks an MP4
// demuxer's frame iterator in presentation order, sleeping until
// wall-clock matches each frame's timestamp relative to a start offset,
// interleaving audio windows ahead of each video frame.
package player

import (
	"log/slog"
	"time"

	"github.com/61cygni/foundry/internal/audiodecode"
	"github.com/61cygni/foundry/internal/mp4demux"
	"github.com/61cygni/foundry/internal/wire"
)

// audioChunkSeconds is the 40ms window size spec.md §4.8 specifies.
const audioChunkSeconds = 0.04

// Sink receives the player's output. cmd/player adapts a Session to it
// with its sessionSink type.
type Sink interface {
	SendVideoConfig(codec, descriptionB64 string, width, height uint32) error
	SendVideo(data []byte) error
	SendAudio(frame wire.AudioFrame) error
}

// FrameIterator is the subset of *mp4demux.FrameIterator the pacing loop
// needs; expressed as an interface so tests can drive the pacing
// algorithm without a real MP4 file.
type FrameIterator interface {
	Next() (mp4demux.Sample, bool, error)
	Close() error
}

// Source opens fresh frame iterators for repeated (looped) playback.
type Source interface {
	Frames() (FrameIterator, error)
	VideoConfig() mp4demux.VideoConfig
}

// Player drives one playback session.
type Player struct {
	source       Source
	audio        *audiodecode.DecodedAudio
	loopPlayback bool
	startTime    float64
	clock        Clock
	log          *slog.Logger
}

// New builds a Player. audio may be nil if the file has no audio track.
func New(source Source, audio *audiodecode.DecodedAudio, loopPlayback bool, startTime float64, clock Clock, log *slog.Logger) *Player {
	if clock == nil {
		clock = RealClock
	}
	if log == nil {
		log = slog.Default()
	}
	return &Player{
		source:       source,
		audio:        audio,
		loopPlayback: loopPlayback,
		startTime:    startTime,
		clock:        clock,
		log:          log.With("component", "player"),
	}
}

// Run plays the file to sink. It returns when playback ends (non-looping)
// or ctx-less cancellation is requested via the stop channel.
func (p *Player) Run(stop <-chan struct{}, sink Sink) error {
	for {
		if err := p.runOnce(stop, sink); err != nil {
			return err
		}
		select {
		case <-stop:
			return nil
		default:
		}
		if !p.loopPlayback {
			return nil
		}
	}
}

func (p *Player) runOnce(stop <-chan struct{}, sink Sink) error {
	it, err := p.source.Frames()
	if err != nil {
		return err
	}
	defer it.Close()

	playbackStart := p.clock.Now()
	lastAudioTime := p.startTime
	seenFirstKeyframe := false
	configSent := false

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		sample, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if sample.TimestampSecs < p.startTime {
			continue
		}
		if !seenFirstKeyframe {
			if !sample.IsKeyframe {
				continue
			}
			seenFirstKeyframe = true
		}

		if !configSent {
			cfg := p.source.VideoConfig()
			if err := sink.SendVideoConfig(cfg.CodecString, cfg.DescriptionB64, cfg.Width, cfg.Height); err != nil {
				return err
			}
			configSent = true
		}

		if p.audio != nil {
			if err := p.emitAudioWindow(sink, lastAudioTime, sample.TimestampSecs); err != nil {
				return err
			}
		}
		lastAudioTime = sample.TimestampSecs

		relative := sample.TimestampSecs - p.startTime
		target := playbackStart.Add(time.Duration(relative * float64(time.Second)))
		p.clock.SleepUntil(target)

		if err := sink.SendVideo(sample.Data); err != nil {
			return err
		}
	}
}

// emitAudioWindow sends the audio samples covering [winStart, winEnd) as
// 40ms-sized AUD0 chunks in increasing-time order. The decoded channel
// count is always threaded through (spec.md §9 Open Question (a)): it
// never hard-codes channels=2.
func (p *Player) emitAudioWindow(sink Sink, winStart, winEnd float64) error {
	a := p.audio
	if winEnd <= winStart {
		return nil
	}
	chunkFrames := int(float64(a.SampleRate) * audioChunkSeconds)
	if chunkFrames <= 0 {
		return nil
	}
	chunkSamples := chunkFrames * int(a.Channels)

	startFrame := int(winStart * float64(a.SampleRate))
	endFrame := int(winEnd * float64(a.SampleRate))
	startIdx := startFrame * int(a.Channels)
	endIdx := endFrame * int(a.Channels)
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > len(a.Samples) {
		endIdx = len(a.Samples)
	}

	t := winStart
	secondsPerChunk := float64(chunkFrames) / float64(a.SampleRate)
	for idx := startIdx; idx < endIdx; idx += chunkSamples {
		end := idx + chunkSamples
		if end > endIdx {
			end = endIdx
		}
		chunk := a.Samples[idx:end]
		if len(chunk) == 0 {
			break
		}
		if err := sink.SendAudio(wire.AudioFrame{
			StartMs:    t * 1000,
			SampleRate: a.SampleRate,
			Channels:   a.Channels,
			Samples:    chunk,
		}); err != nil {
			return err
		}
		t += secondsPerChunk
	}
	return nil
}
