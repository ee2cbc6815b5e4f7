// Package session implements the Session & Multiplex component shared by
// the live broadcaster and the offline player: one duplex WebSocket, a
// bounded outbound queue, mode negotiation, and the heartbeat/backpressure
// discipline of spec.md §4.1/§5.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/61cygni/foundry/internal/wire"
)

// LiveOutboundCapacity and OfflineOutboundCapacity are the two bounded
// outbound queue sizes spec.md §4.1 names.
const (
	LiveOutboundCapacity    = 1024
	OfflineOutboundCapacity = 256
	negotiationTimeout      = 500 * time.Millisecond
	heartbeatInterval       = 10 * time.Second
)

// message is one queued outbound item; exactly one of Text/Binary is set.
type message struct {
	text   []byte
	binary []byte
}

// NegotiationResult is delivered once, after accept, once the client's
// mode message has been read or the negotiation timeout elapsed.
type NegotiationResult struct {
	Codec    wire.Codec
	TimedOut bool
}

// Session owns one WebSocket peer.
type Session struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	out chan message

	negotiated     chan NegotiationResult
	forceKeyframes chan struct{}
	audioIn        chan wire.AudioFrame

	closed chan struct{}
	closeC func()
}

// New builds a Session around an already-upgraded WebSocket connection.
// outboundCapacity should be LiveOutboundCapacity or OfflineOutboundCapacity.
func New(conn *websocket.Conn, outboundCapacity int, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	s := &Session{
		id:             id,
		conn:           conn,
		log:            log.With("component", "session", "session_id", id),
		out:            make(chan message, outboundCapacity),
		negotiated:     make(chan NegotiationResult, 1),
		forceKeyframes: make(chan struct{}, 1),
		audioIn:        make(chan wire.AudioFrame, 64),
		closed:         make(chan struct{}),
	}
	return s
}

// Run starts the outbound drainer and inbound handler goroutines and
// blocks until either one ends (peer close, send failure, or ctx
// cancellation). It does not start a producer; callers drive Send from
// their own producer goroutine.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.closeC = cancel
	defer cancel()

	done := make(chan struct{}, 2)
	go func() { s.outboundLoop(ctx); done <- struct{}{} }()
	go func() { s.inboundLoop(ctx); done <- struct{}{} }()

	<-done
	close(s.closed)
	cancel()
	s.conn.Close()
}

// Closed is signaled once the session has ended.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// Close ends the session immediately, e.g. after a producer determines
// video cannot be made available and has sent the mode-ack saying so.
func (s *Session) Close() {
	if s.closeC != nil {
		s.closeC()
	}
}

// Negotiated delivers the single negotiation outcome.
func (s *Session) Negotiated() <-chan NegotiationResult { return s.negotiated }

// ForceKeyframeRequests delivers one notification per `force-keyframe`
// client message (coalesced: a pending unread request is not duplicated).
func (s *Session) ForceKeyframeRequests() <-chan struct{} { return s.forceKeyframes }

// AudioIn delivers decoded AUD0 fragments received from the client,
// destined for the mixer.
func (s *Session) AudioIn() <-chan wire.AudioFrame { return s.audioIn }

// SendText enqueues a text control message. Blocks while the outbound
// queue is full (backpressure); returns an error if the session has
// closed.
func (s *Session) SendText(payload []byte) error {
	select {
	case s.out <- message{text: payload}:
		return nil
	case <-s.closed:
		return wire.Wrap(wire.TransportError, "SendText", context.Canceled)
	}
}

// SendJSON marshals v and enqueues it as a text message.
func (s *Session) SendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SendText(b)
}

// SendBinary enqueues a binary media message (AVCC video or AUD0 audio).
func (s *Session) SendBinary(payload []byte) error {
	select {
	case s.out <- message{binary: payload}:
		return nil
	case <-s.closed:
		return wire.Wrap(wire.TransportError, "SendBinary", context.Canceled)
	}
}

func (s *Session) outboundLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	idle := true
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.out:
			idle = false
			if err := s.write(m); err != nil {
				s.log.Warn("outbound send failed", "err", err)
				return
			}
		case <-ticker.C:
			if idle {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(wire.Heartbeat)); err != nil {
					s.log.Warn("heartbeat send failed", "err", err)
					return
				}
			}
			idle = true
		}
	}
}

func (s *Session) write(m message) error {
	if m.text != nil {
		return s.conn.WriteMessage(websocket.TextMessage, m.text)
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, m.binary)
}

func (s *Session) inboundLoop(ctx context.Context) {
	negotiated := false
	negTimer := time.NewTimer(negotiationTimeout)
	defer negTimer.Stop()

	type readResult struct {
		mt      int
		payload []byte
		err     error
	}
	reads := make(chan readResult, 1)
	readNext := func() {
		go func() {
			mt, payload, err := s.conn.ReadMessage()
			reads <- readResult{mt, payload, err}
		}()
	}
	readNext()

	for {
		select {
		case <-ctx.Done():
			return
		case <-negTimer.C:
			if !negotiated {
				negotiated = true
				s.negotiated <- NegotiationResult{Codec: wire.CodecAVC, TimedOut: true}
			}
		case r := <-reads:
			if r.err != nil {
				return
			}
			s.handleInbound(r.mt, r.payload, &negotiated, negTimer)
			readNext()
		}
	}
}

func (s *Session) handleInbound(mt int, payload []byte, negotiated *bool, negTimer *time.Timer) {
	switch mt {
	case websocket.TextMessage:
		kind, codec, err := wire.ParseInbound(payload)
		if err != nil {
			// ProtocolError: malformed messages are silently discarded.
			return
		}
		switch kind {
		case wire.InboundMode:
			if !*negotiated {
				*negotiated = true
				negTimer.Stop()
				if codec == "" {
					codec = wire.CodecAVC
				}
				s.negotiated <- NegotiationResult{Codec: codec}
			}
		case wire.InboundForceKeyframe:
			select {
			case s.forceKeyframes <- struct{}{}:
			default:
			}
		}
	case websocket.BinaryMessage:
		frame, err := wire.DecodeAUD0(payload)
		if err != nil {
			s.log.Debug("dropping malformed inbound audio", "err", err)
			return
		}
		select {
		case s.audioIn <- frame:
		default:
			// bounded inbound-audio routing: drop under backpressure rather
			// than block the inbound read loop.
		}
	case websocket.PingMessage:
		_ = s.conn.WriteMessage(websocket.PongMessage, nil)
	}
}
