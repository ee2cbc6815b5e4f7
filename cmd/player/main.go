// Command player streams a local MP4 file over WebSocket, pacing frames
// to wall-clock and re-running the pacing loop once per client connection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/61cygni/foundry/internal/audiodecode"
	"github.com/61cygni/foundry/internal/config"
	"github.com/61cygni/foundry/internal/mp4demux"
)

// Options holds the player's CLI surface: positional file, --port,
// --loop-playback, --start, matching spec.md §6's CLI surface exactly.
type Options struct {
	File         string
	Port         int
	LoopPlayback bool
	Start        float64
}

func NewOptions() *Options {
	return &Options{Port: 23646}
}

func newRootCmd() *cobra.Command {
	opts := NewOptions()

	cmd := &cobra.Command{
		Use:   "player <file>",
		Short: "Stream an MP4 file over WebSocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.File = args[0]
			return runPlayer(opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", opts.Port, "port to listen on")
	cmd.Flags().BoolVar(&opts.LoopPlayback, "loop-playback", false, "restart playback when the file ends")
	cmd.Flags().Float64Var(&opts.Start, "start", 0, "start time in seconds")

	return cmd
}

func main() {
	config.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPlayer(opts *Options) error {
	log := config.NewLogger()

	if _, err := os.Stat(opts.File); err != nil {
		return fmt.Errorf("file not found: %s", opts.File)
	}

	log.Info("loading", "file", opts.File)
	demuxer, err := mp4demux.Open(opts.File)
	if err != nil {
		return err
	}
	log.Info("video loaded",
		"width", demuxer.Width(), "height", demuxer.Height(),
		"fps", demuxer.FrameRate(), "frames", demuxer.FrameCount(),
	)

	var audio *audiodecode.DecodedAudio
	if demuxer.HasAudio() {
		log.Info("decoding audio")
		audio, err = audiodecode.Decode(opts.File, log)
		if err != nil {
			log.Warn("audio decode failed, continuing without audio", "err", err)
			audio = nil
		} else if audio != nil {
			durationSecs := float64(len(audio.Samples)) / float64(audio.SampleRate) / float64(audio.Channels)
			log.Info("audio decoded", "sample_rate", audio.SampleRate, "channels", audio.Channels, "duration_s", durationSecs)
		}
	} else {
		log.Info("no audio track")
	}

	srv := newServer(demuxer, audio, opts.LoopPlayback, opts.Start, log)
	return srv.listenAndServe(opts.Port)
}
