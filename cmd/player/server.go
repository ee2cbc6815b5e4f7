package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/61cygni/foundry/internal/audiodecode"
	"github.com/61cygni/foundry/internal/mp4demux"
	"github.com/61cygni/foundry/internal/player"
	"github.com/61cygni/foundry/internal/session"
	"github.com/61cygni/foundry/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 256 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type server struct {
	demuxer      *mp4demux.Demuxer
	audio        *audiodecode.DecodedAudio
	loopPlayback bool
	startTime    float64
	log          *slog.Logger
}

func newServer(demuxer *mp4demux.Demuxer, audio *audiodecode.DecodedAudio, loopPlayback bool, startTime float64, log *slog.Logger) *server {
	return &server{demuxer: demuxer, audio: audio, loopPlayback: loopPlayback, startTime: startTime, log: log}
}

func (s *server) listenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.log.Info("player listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}

	sess := session.New(conn, session.OfflineOutboundCapacity, s.log)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sess.Run(ctx)
		cancel()
	}()

	go s.runSession(ctx, sess)
}

// runSession negotiates, acknowledges, then drives the Player to
// completion (or looped indefinitely) against a Session-backed Sink.
func (s *server) runSession(ctx context.Context, sess *session.Session) {
	var neg session.NegotiationResult
	select {
	case <-ctx.Done():
		return
	case neg = <-sess.Negotiated():
	}

	if neg.Codec == wire.CodecHEVC {
		_ = sess.SendJSON(wire.NewModeAckUnavailable())
		sess.Close()
		return
	}

	if err := sess.SendJSON(wire.NewModeAck(wire.CodecAVC)); err != nil {
		return
	}

	p := player.New(player.NewSource(s.demuxer), s.audio, s.loopPlayback, s.startTime, player.RealClock, s.log)
	sink := &sessionSink{sess: sess}

	stop := ctx.Done()
	if err := p.Run(stop, sink); err != nil {
		s.log.Warn("playback ended with error", "err", err)
	}
	sess.Close()
}

// sessionSink adapts *session.Session to player.Sink.
type sessionSink struct {
	sess *session.Session
}

func (s *sessionSink) SendVideoConfig(codec, descriptionB64 string, width, height uint32) error {
	return s.sess.SendJSON(wire.NewVideoConfigMessage(codec, descriptionB64, width, height))
}

func (s *sessionSink) SendVideo(data []byte) error {
	return s.sess.SendBinary(data)
}

func (s *sessionSink) SendAudio(frame wire.AudioFrame) error {
	return s.sess.SendBinary(wire.EncodeAUD0(frame))
}
