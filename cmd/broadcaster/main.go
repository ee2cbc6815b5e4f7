// Command broadcaster streams the local desktop and system audio over a
// WebSocket, one Session per connection, sharing a single capture source
// across all connected clients; each session runs its own encoder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/61cygni/foundry/internal/audiocapture"
	"github.com/61cygni/foundry/internal/audiomixer"
	"github.com/61cygni/foundry/internal/capture"
	"github.com/61cygni/foundry/internal/config"
	"github.com/61cygni/foundry/internal/session"
)

const listenAddr = "0.0.0.0:23646"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 256 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func main() {
	config.Load()
	log := config.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	frames := capture.New(capture.NewGstScreenBackend(), log)

	audio, err := audiocapture.Start(log)
	if err != nil {
		log.Warn("system audio capture unavailable, falling back to mixer-only audio", "err", err)
	} else {
		defer audio.Close()
	}

	mixer := audiomixer.New(ctx, log)

	b := &broadcaster{
		frames: frames,
		audio:  audio,
		mixer:  mixer,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	httpServer := &http.Server{Addr: listenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		log.Info("broadcaster listening", "addr", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("http server failed", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

type broadcaster struct {
	frames *capture.Source
	audio  *audiocapture.Capture
	mixer  *audiomixer.Mixer
	log    *slog.Logger
}

func (b *broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Error("websocket upgrade failed", "err", err)
		return
	}

	sess := session.New(conn, session.LiveOutboundCapacity, b.log)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sess.Run(ctx)
		cancel()
	}()

	go b.runSession(ctx, sess)
}
