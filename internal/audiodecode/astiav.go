//go:build cgo

package audiodecode

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// decodeAstiav decodes path's first audio stream to interleaved i16 PCM
// using go-astiav's ffmpeg/libav bindings, applying spec.md §4.7's
// per-sample-format conversion rules and stopping (not erroring) cleanly
// at end of stream.
func decodeAstiav(path string) (*DecodedAudio, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("astiav: alloc format context failed")
	}
	defer fc.Free()

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("astiav: open input: %w", err)
	}
	defer fc.CloseInput()

	if err := fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("astiav: find stream info: %w", err)
	}

	stream := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1, nil, 0)
	if stream == nil {
		return nil, nil // no audio track
	}

	codecParams := stream.CodecParameters()
	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("astiav: no decoder for codec %v", codecParams.CodecID())
	}

	codecCtx := astiav.AllocCodecContext(codec)
	if codecCtx == nil {
		return nil, fmt.Errorf("astiav: alloc codec context failed")
	}
	defer codecCtx.Free()

	if err := codecParams.ToCodecContext(codecCtx); err != nil {
		return nil, fmt.Errorf("astiav: copy codec parameters: %w", err)
	}
	if err := codecCtx.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("astiav: open codec: %w", err)
	}

	sampleRate := uint32(codecCtx.SampleRate())
	channels := uint32(codecCtx.Channels())
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	if channels == 0 {
		channels = defaultChannels
	}

	packet := astiav.AllocPacket()
	defer packet.Free()
	frame := astiav.AllocFrame()
	defer frame.Free()

	var all []int16
	for {
		err := fc.ReadFrame(packet)
		if err != nil {
			break // treat any read termination (including EOF) as stream complete
		}
		if packet.StreamIndex() != stream.Index() {
			packet.Unref()
			continue
		}
		if err := codecCtx.SendPacket(packet); err != nil {
			packet.Unref()
			continue
		}
		for {
			if err := codecCtx.ReceiveFrame(frame); err != nil {
				break
			}
			all = append(all, frameToI16(frame, int(channels))...)
			frame.Unref()
		}
		packet.Unref()
	}

	if len(all) == 0 {
		return nil, nil
	}
	return &DecodedAudio{SampleRate: sampleRate, Channels: channels, Samples: all}, nil
}

// frameToI16 converts one decoded libav audio frame to interleaved i16,
// applying spec.md §4.7's per-format conversion rules.
func frameToI16(frame *astiav.Frame, targetChannels int) []int16 {
	switch frame.SampleFormat() {
	case astiav.SampleFormatFltp:
		planes := planarFloat32(frame)
		return convertF32ToI16(planes, targetChannels)
	case astiav.SampleFormatS16, astiav.SampleFormatS16p:
		planes := planarInt16(frame)
		return convertS16ToI16(planes, targetChannels)
	case astiav.SampleFormatS32, astiav.SampleFormatS32p:
		planes := planarInt32(frame)
		return convertS32ToI16(planes, targetChannels)
	default:
		return nil
	}
}

func planarFloat32(frame *astiav.Frame) [][]float32 {
	n := frame.NbSamples()
	channels := frame.ChannelLayout().Channels()
	out := make([][]float32, channels)
	for c := 0; c < channels; c++ {
		data := frame.Data().Floats(c, n)
		out[c] = data
	}
	return out
}

func planarInt16(frame *astiav.Frame) [][]int16 {
	n := frame.NbSamples()
	channels := frame.ChannelLayout().Channels()
	out := make([][]int16, channels)
	for c := 0; c < channels; c++ {
		out[c] = frame.Data().Int16s(c, n)
	}
	return out
}

func planarInt32(frame *astiav.Frame) [][]int32 {
	n := frame.NbSamples()
	channels := frame.ChannelLayout().Channels()
	out := make([][]int32, channels)
	for c := 0; c < channels; c++ {
		out[c] = frame.Data().Int32s(c, n)
	}
	return out
}
