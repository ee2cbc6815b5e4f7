// Package mp4demux iterates H.264 samples out of an MP4 file, passing
// them through unchanged except for SPS/PPS reinjection on keyframes, and
// synthesizes an AVCC configuration record and codec string from the
// file's avcC box.
package mp4demux

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/61cygni/foundry/internal/wire"
)

// VideoConfig is the codec string + base64 AVCC descriptor the offline
// pipeline sends once in its video-config message.
type VideoConfig struct {
	CodecString    string
	DescriptionB64 string
	Width          uint32
	Height         uint32
}

// Sample is one demuxed video access unit.
type Sample struct {
	TimestampSecs float64
	Data          []byte
	IsKeyframe    bool
}

// Demuxer exposes Mp4DemuxerState (spec.md §3) and a Frames iterator.
type Demuxer struct {
	path string

	videoTrackID uint32
	width        uint32
	height       uint32
	frameRate    float64
	frameCount   uint32
	hasAudio     bool

	avccConfig []byte // AVCC decoder configuration record
	spsPPSAVCC []byte // 4-byte-length-prefixed SPS+PPS, for keyframe prepending
}

// Open parses path's MP4 header and locates its video (and, if present,
// audio) track.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wire.Wrap(wire.ContainerError, "open", err)
	}
	defer f.Close()

	parsed, err := mp4.DecodeFile(f)
	if err != nil {
		return nil, wire.Wrap(wire.ContainerError, "decode", err)
	}
	if parsed.Moov == nil {
		return nil, wire.Wrap(wire.ContainerError, "decode", fmt.Errorf("no moov box"))
	}

	var videoTrak *mp4.TrakBox
	hasAudio := false
	for _, trak := range parsed.Moov.Traks {
		hdlr := trak.Mdia.Hdlr
		switch hdlr.HandlerType {
		case "vide":
			if videoTrak == nil {
				videoTrak = trak
			}
		case "soun":
			hasAudio = true
		}
	}
	if videoTrak == nil {
		return nil, wire.Wrap(wire.ContainerError, "find video track", fmt.Errorf("no video track"))
	}

	width, height := trackDimensions(videoTrak)
	frameCount := sampleCount(videoTrak)
	frameRate := deriveFrameRate(videoTrak, frameCount)

	avccConfig, spsPPSAVCC, err := extractAVCC(videoTrak)
	if err != nil {
		return nil, wire.Wrap(wire.ContainerError, "extract avcC", err)
	}

	return &Demuxer{
		path:         path,
		videoTrackID: videoTrak.Tkhd.TrackID,
		width:        width,
		height:       height,
		frameRate:    frameRate,
		frameCount:   frameCount,
		hasAudio:     hasAudio,
		avccConfig:   avccConfig,
		spsPPSAVCC:   spsPPSAVCC,
	}, nil
}

func (d *Demuxer) Width() uint32      { return d.width }
func (d *Demuxer) Height() uint32     { return d.height }
func (d *Demuxer) FrameRate() float64 { return d.frameRate }
func (d *Demuxer) FrameCount() uint32 { return d.frameCount }
func (d *Demuxer) HasAudio() bool     { return d.hasAudio }

// VideoConfig builds the codec string ("avc1.PPCCLL") and base64 AVCC
// description from the parsed avcC box.
func (d *Demuxer) VideoConfig() VideoConfig {
	codecString := "avc1.42E01E"
	if len(d.avccConfig) >= 4 {
		codecString = fmt.Sprintf("avc1.%02X%02X%02X", d.avccConfig[1], d.avccConfig[2], d.avccConfig[3])
	}
	return VideoConfig{
		CodecString:    codecString,
		DescriptionB64: base64.StdEncoding.EncodeToString(d.avccConfig),
		Width:          d.width,
		Height:         d.height,
	}
}

func deriveFrameRate(trak *mp4.TrakBox, frameCount uint32) float64 {
	mdhd := trak.Mdia.Mdhd
	if mdhd == nil || mdhd.Timescale == 0 || mdhd.Duration == 0 {
		return 30.0
	}
	durationSecs := float64(mdhd.Duration) / float64(mdhd.Timescale)
	if durationSecs <= 0 {
		return 30.0
	}
	return float64(frameCount) / durationSecs
}

func trackDimensions(trak *mp4.TrakBox) (uint32, uint32) {
	tkhd := trak.Tkhd
	// Tkhd width/height are 16.16 fixed-point; the integer part is the
	// pixel dimension.
	return uint32(tkhd.Width) >> 16, uint32(tkhd.Height) >> 16
}

func sampleCount(trak *mp4.TrakBox) uint32 {
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz != nil {
		return stbl.Stsz.SampleNumber
	}
	return 0
}

// extractAVCC builds the AVCC configuration record (same byte layout as
// spec.md §4.3) plus a 4-byte-length-prefixed SPS+PPS blob for prepending
// to keyframes, from the track's avcC box.
func extractAVCC(trak *mp4.TrakBox) (config []byte, spsPPS []byte, err error) {
	stsd := trak.Mdia.Minf.Stbl.Stsd
	if stsd == nil || len(stsd.Children) == 0 {
		return nil, nil, fmt.Errorf("no sample description")
	}

	var avcC *mp4.AvcCBox
	for _, child := range stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			if vse.AvcC != nil {
				avcC = vse.AvcC
				break
			}
		}
	}
	if avcC == nil {
		return nil, nil, fmt.Errorf("no avcC box found")
	}
	if len(avcC.SPSnalus) == 0 || len(avcC.PPSnalus) == 0 {
		return nil, nil, fmt.Errorf("avcC box has no SPS/PPS")
	}

	cfg := make([]byte, 0, 11+len(avcC.SPSnalus[0])+len(avcC.PPSnalus[0]))
	cfg = append(cfg, 0x01, avcC.AVCProfileIndication, avcC.ProfileCompatibility, avcC.AVCLevelIndication, 0xFF)
	cfg = append(cfg, 0xE0|byte(len(avcC.SPSnalus)))
	for _, s := range avcC.SPSnalus {
		cfg = append(cfg, byte(len(s)>>8), byte(len(s)))
		cfg = append(cfg, s...)
	}
	cfg = append(cfg, byte(len(avcC.PPSnalus)))
	for _, p := range avcC.PPSnalus {
		cfg = append(cfg, byte(len(p)>>8), byte(len(p)))
		cfg = append(cfg, p...)
	}

	var blob []byte
	for _, s := range avcC.SPSnalus {
		blob = append(blob, lengthPrefix4(len(s))...)
		blob = append(blob, s...)
	}
	for _, p := range avcC.PPSnalus {
		blob = append(blob, lengthPrefix4(len(p))...)
		blob = append(blob, p...)
	}

	return cfg, blob, nil
}

func lengthPrefix4(n int) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}
