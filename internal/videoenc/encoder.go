// Package videoenc wraps an H.264 encoder, emitting AVCC-framed NAL units
// and, once, an AVCC configuration record. Only AVC is supported; HEVC
// requests are rejected at construction.
package videoenc

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/61cygni/foundry/internal/wire"
)

// Codec identifies a requested video codec.
type Codec string

const (
	CodecAVC  Codec = "avc"
	CodecHEVC Codec = "hevc"
)

const (
	minBitrate    = 500_000
	maxBitrate    = 15_000_000
	targetFPS     = 60.0
	bitsPerPixel  = 8
)

// RawFrame is one RGBA frame presented to the encoder.
type RawFrame struct {
	Width  int
	Height int
	RGBA   []byte
}

// EncodedChunk is one AVCC-framed encoded access unit.
type EncodedChunk struct {
	Data     []byte
	Keyframe bool
}

// VideoConfig is the codec/description/dimensions tuple sent once in the
// session's video-config control message.
type VideoConfig struct {
	Codec          string
	DescriptionB64 string
	Width          uint32
	Height         uint32
}

// backend is the platform encode implementation (go-gst under cgo; without
// cgo, newBackend returns an error). It is given already-even dimensions and
// a target bitrate, and is torn down and rebuilt by Encoder whenever
// either changes.
type backend interface {
	// Configure (re)builds the encoder pipeline for the given parameters.
	Configure(width, height, bitrateBps int, forceIntraNext bool) error
	// Encode pushes one RGBA frame through the pipeline and returns the
	// raw (possibly Annex-B-or-mixed-framed) encoder output, or nil if the
	// encoder produced no access unit yet.
	Encode(frame RawFrame, forceIDR bool) ([]byte, error)
	// RequestParameterSets asks the backend to emit SPS/PPS out of band,
	// used when no in-band SPS/PPS has been observed after the first
	// productive frame.
	RequestParameterSets() (sps, pps []byte, err error)
	Close()
}

// Encoder is the stateful wrapper described in spec.md §4.3.
type Encoder struct {
	codec Codec
	log   *slog.Logger

	backend backend

	curWidth, curHeight int
	pendingIDR          bool

	sps, pps     []byte
	configB64    string
	configReady  bool
}

// New constructs an Encoder for the requested codec. HEVC is always
// rejected (wire.CodecError).
func New(codec Codec, log *slog.Logger) (*Encoder, error) {
	if codec != CodecAVC {
		return nil, wire.Wrap(wire.CodecError, "videoenc.New", fmt.Errorf("unsupported codec %q: only avc is implemented", codec))
	}
	if log == nil {
		log = slog.Default()
	}
	b, err := newBackend()
	if err != nil {
		return nil, wire.Wrap(wire.CodecError, "videoenc.New", err)
	}
	return newWithBackend(codec, log, b), nil
}

// newWithBackend builds an Encoder around a caller-supplied backend,
// letting tests exercise the resolution-tracking/IDR/config-synthesis
// logic without a real GStreamer pipeline.
func newWithBackend(codec Codec, log *slog.Logger, b backend) *Encoder {
	return &Encoder{
		codec:      codec,
		log:        log.With("component", "videoenc"),
		backend:    b,
		pendingIDR: true,
	}
}

func clampBitrate(w, h int) int {
	b := w * h * bitsPerPixel
	if b < minBitrate {
		return minBitrate
	}
	if b > maxBitrate {
		return maxBitrate
	}
	return b
}

// Encode pushes one raw frame through the encoder. It rebuilds the
// pipeline on any resolution change (forcing a new IDR and clearing the
// synthesized config), applies the IDR policy, and returns an
// AVCC-framed EncodedChunk or nil if the encoder produced no output for
// this input.
func (e *Encoder) Encode(frame RawFrame, forceIDR bool) (*EncodedChunk, error) {
	w := frame.Width &^ 1
	h := frame.Height &^ 1
	if w == 0 || h == 0 {
		return nil, nil
	}

	if w != e.curWidth || h != e.curHeight {
		bitrate := clampBitrate(w, h)
		if err := e.backend.Configure(w, h, bitrate, true); err != nil {
			return nil, wire.Wrap(wire.CodecError, "videoenc.Encode rebuild", err)
		}
		e.curWidth, e.curHeight = w, h
		e.pendingIDR = true
		e.configB64 = ""
		e.configReady = false
		e.sps, e.pps = nil, nil
	}

	forceThis := e.pendingIDR || forceIDR
	raw, err := e.backend.Encode(frame, forceThis)
	if err != nil {
		return nil, wire.Wrap(wire.CodecError, "videoenc.Encode", err)
	}
	if forceThis {
		e.pendingIDR = false
	}
	if raw == nil {
		return nil, nil
	}

	nals := collectNALs(raw)
	if len(nals) == 0 {
		return nil, nil
	}

	keyframe := false
	for _, n := range nals {
		switch nalType(n) {
		case nalTypeSPS:
			e.sps = append([]byte(nil), n...)
		case nalTypePPS:
			e.pps = append([]byte(nil), n...)
		case nalTypeIDR:
			keyframe = true
		}
	}

	if !e.configReady {
		if err := e.synthesizeConfig(); err != nil {
			e.log.Warn("config synthesis deferred", "err", err)
		}
	}

	data := wire.EncodeAVCC(nals)
	return &EncodedChunk{Data: data, Keyframe: keyframe}, nil
}

// synthesizeConfig builds the AVCC config record from whatever SPS/PPS
// have been observed in-band; if either is still missing it explicitly
// requests parameter sets from the backend (the two-path design spec.md
// §9 requires, since some encoder configurations only emit SPS/PPS with
// IDRs).
func (e *Encoder) synthesizeConfig() error {
	if e.sps == nil || e.pps == nil {
		sps, pps, err := e.backend.RequestParameterSets()
		if err != nil {
			return err
		}
		if sps != nil {
			e.sps = sps
		}
		if pps != nil {
			e.pps = pps
		}
	}
	if e.sps == nil || e.pps == nil {
		return fmt.Errorf("no SPS/PPS available yet")
	}
	if len(e.sps) < 4 {
		return fmt.Errorf("SPS too short to derive profile/level")
	}
	record := buildAVCCConfig(e.sps, e.pps)
	e.configB64 = base64.StdEncoding.EncodeToString(record)
	e.configReady = true
	return nil
}

// Config returns the current VideoConfig. Callers should check
// ConfigReady before sending it.
func (e *Encoder) Config() VideoConfig {
	return VideoConfig{
		Codec:          string(e.codec),
		DescriptionB64: e.configB64,
		Width:          uint32(e.curWidth),
		Height:         uint32(e.curHeight),
	}
}

// ConfigReady reports whether Config() currently carries a non-empty
// description.
func (e *Encoder) ConfigReady() bool {
	return e.configReady
}

// ForceIDR requests that the next encoded chunk start a new IDR.
func (e *Encoder) ForceIDR() {
	e.pendingIDR = true
}

// Close releases the underlying encoder pipeline.
func (e *Encoder) Close() {
	e.backend.Close()
}
