package main

import (
	"context"

	"github.com/61cygni/foundry/internal/audiocapture"
	"github.com/61cygni/foundry/internal/audiomixer"
	"github.com/61cygni/foundry/internal/downsample"
	"github.com/61cygni/foundry/internal/session"
	"github.com/61cygni/foundry/internal/videoenc"
	"github.com/61cygni/foundry/internal/wire"
)

// runSession drives one connection's producer side: negotiate, construct
// the encoder before acknowledging (spec.md §9's resolved Open Question
// (c) — the client never sees a successful ack followed by a
// contradicting failure), then forward downsampled/encoded video and
// audio until the session ends.
func (b *broadcaster) runSession(ctx context.Context, sess *session.Session) {
	var neg session.NegotiationResult
	select {
	case <-ctx.Done():
		return
	case neg = <-sess.Negotiated():
	}

	codec := videoenc.CodecAVC
	if neg.Codec == wire.CodecHEVC {
		codec = videoenc.CodecHEVC
	}

	enc, err := videoenc.New(codec, b.log)
	if err != nil {
		b.log.Warn("video unavailable for session", "err", err)
		_ = sess.SendJSON(wire.NewModeAckUnavailable())
		sess.Close()
		return
	}
	defer enc.Close()

	if err := sess.SendJSON(wire.NewModeAck(neg.Codec)); err != nil {
		return
	}

	listener, err := b.frames.Subscribe()
	if err != nil {
		b.log.Warn("frame source unavailable for session", "err", err)
		sess.Close()
		return
	}
	defer listener.Close()

	go b.forwardInboundAudio(ctx, sess)

	var direct <-chan audiocapture.Chunk
	var mixed <-chan audiomixer.Mixed
	if b.audio != nil {
		direct = b.audio.Direct()
	} else {
		mixed = b.mixer.Subscribe()
	}

	downsampler := downsample.New()
	forceIDRNext := false
	configSent := false

	for {
		select {
		case <-ctx.Done():
			return

		case <-sess.ForceKeyframeRequests():
			forceIDRNext = true

		case chunk, ok := <-direct:
			if !ok {
				continue
			}
			frame := wire.AudioFrame{
				StartMs:    0,
				SampleRate: chunk.SampleRate,
				Channels:   chunk.Channels,
				Samples:    chunk.Samples,
			}
			if err := sess.SendBinary(wire.EncodeAUD0(frame)); err != nil {
				return
			}

		case m, ok := <-mixed:
			if !ok {
				continue
			}
			frame := wire.AudioFrame{
				StartMs:    m.StartMs,
				SampleRate: m.SampleRate,
				Channels:   m.Channels,
				Samples:    m.Samples,
			}
			if err := sess.SendBinary(wire.EncodeAUD0(frame)); err != nil {
				return
			}

		case f, ok := <-listener.Frames():
			if !ok {
				continue
			}
			ds := downsampler.Downsample(downsample.Frame{Width: f.Width, Height: f.Height, RGBA: f.RGBA})

			force := forceIDRNext
			forceIDRNext = false
			chunk, err := enc.Encode(videoenc.RawFrame{Width: ds.Width, Height: ds.Height, RGBA: ds.RGBA}, force)
			if err != nil {
				b.log.Warn("encode failed", "err", err)
				continue
			}
			if chunk == nil {
				continue
			}

			if !configSent {
				if !enc.ConfigReady() {
					continue
				}
				cfg := enc.Config()
				if err := sess.SendJSON(wire.NewVideoConfigMessage(cfg.Codec, cfg.DescriptionB64, cfg.Width, cfg.Height)); err != nil {
					return
				}
				configSent = true
			}

			if err := sess.SendBinary(chunk.Data); err != nil {
				return
			}
		}
	}
}

// forwardInboundAudio routes client-contributed AUD0 fragments into the
// mixer's input queue; a full queue drops the contribution rather than
// blocking the session's read loop.
func (b *broadcaster) forwardInboundAudio(ctx context.Context, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-sess.AudioIn():
			input := audiomixer.Input{
				StartMs:    f.StartMs,
				SampleRate: f.SampleRate,
				Channels:   f.Channels,
				Samples:    f.Samples,
			}
			select {
			case b.mixer.Input() <- input:
			default:
			}
		}
	}
}
