package audiodecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// decodeFfmpeg shells out to ffprobe (to learn sample rate/channels) then
// ffmpeg (to decode to raw s16le PCM on stdout), the same two-step
// subprocess strategy as foundry-player/src/audio_decoder.rs's ffmpeg
// fallback.
func decodeFfmpeg(path string) (*DecodedAudio, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	probeOut, err := exec.Command("ffprobe",
		"-v", "quiet",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(probeOut)), ",")
	if len(parts) < 2 {
		return nil, nil // no audio stream
	}
	sampleRate, err := strconv.Atoi(parts[0])
	if err != nil {
		sampleRate = defaultSampleRate
	}
	channels, err := strconv.Atoi(parts[1])
	if err != nil {
		channels = defaultChannels
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-f", "s16le",
		"-",
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w", err)
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, nil
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}

	return &DecodedAudio{
		SampleRate: uint32(sampleRate),
		Channels:   uint32(channels),
		Samples:    samples,
	}, nil
}
