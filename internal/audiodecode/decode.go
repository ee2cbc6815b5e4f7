package audiodecode

import (
	"log/slog"

	"github.com/61cygni/foundry/internal/wire"
)

const (
	defaultSampleRate = 48000
	defaultChannels   = 2
)

// Decode decodes path's audio track to interleaved i16 PCM of its native
// channel count. It first attempts the in-process go-astiav backend; on
// any error it logs a warning and falls back to shelling out to
// ffmpeg/ffprobe, mirroring foundry-player/src/audio_decoder.rs's
// symphonia-then-ffmpeg two-backend resilience. Returns (nil, nil) if the
// file has no audio track or decoded to zero samples.
func Decode(path string, log *slog.Logger) (*DecodedAudio, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "audiodecode")

	audio, err := decodeAstiav(path)
	if err == nil {
		return audio, nil
	}
	log.Warn("astiav decode failed, trying ffmpeg fallback", "err", err)

	audio, err = decodeFfmpeg(path)
	if err != nil {
		return nil, wire.Wrap(wire.CodecError, "audiodecode.Decode", err)
	}
	return audio, nil
}
