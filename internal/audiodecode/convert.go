// Package audiodecode decodes an MP4 file's audio track to interleaved
// i16 PCM for the offline paced player, preferring an in-process ffmpeg
// binding with a subprocess fallback when that path fails.
package audiodecode

import "math"

// DecodedAudio is the full decoded audio track.
type DecodedAudio struct {
	SampleRate uint32
	Channels   uint32
	Samples    []int16
}

// convertF32ToI16 implements spec.md §4.7's F32 rule:
// round(clamp(s, -1, 1) * 32767), expanding/duplicating channels to reach
// targetChannels (duplicating the last source channel when the source has
// fewer channels than the target).
func convertF32ToI16(frames [][]float32, targetChannels int) []int16 {
	if len(frames) == 0 {
		return nil
	}
	srcChannels := len(frames)
	frameCount := len(frames[0])
	out := make([]int16, 0, frameCount*targetChannels)
	for f := 0; f < frameCount; f++ {
		for c := 0; c < targetChannels; c++ {
			srcCh := c
			if srcCh >= srcChannels {
				srcCh = srcChannels - 1
			}
			s := frames[srcCh][f]
			if s > 1 {
				s = 1
			}
			if s < -1 {
				s = -1
			}
			out = append(out, int16(math.Round(float64(s)*32767)))
		}
	}
	return out
}

// convertS16ToI16 passes through, expanding channels by duplicating the
// last source channel.
func convertS16ToI16(frames [][]int16, targetChannels int) []int16 {
	if len(frames) == 0 {
		return nil
	}
	srcChannels := len(frames)
	frameCount := len(frames[0])
	out := make([]int16, 0, frameCount*targetChannels)
	for f := 0; f < frameCount; f++ {
		for c := 0; c < targetChannels; c++ {
			srcCh := c
			if srcCh >= srcChannels {
				srcCh = srcChannels - 1
			}
			out = append(out, frames[srcCh][f])
		}
	}
	return out
}

// convertS32ToI16 implements spec.md §4.7's S32 rule: s >> 16.
func convertS32ToI16(frames [][]int32, targetChannels int) []int16 {
	if len(frames) == 0 {
		return nil
	}
	srcChannels := len(frames)
	frameCount := len(frames[0])
	out := make([]int16, 0, frameCount*targetChannels)
	for f := 0; f < frameCount; f++ {
		for c := 0; c < targetChannels; c++ {
			srcCh := c
			if srcCh >= srcChannels {
				srcCh = srcChannels - 1
			}
			out = append(out, int16(frames[srcCh][f]>>16))
		}
	}
	return out
}
