package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/61cygni/foundry/internal/wire"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func newTestServer(t *testing.T, handler func(s *Session)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s := New(conn, OfflineOutboundCapacity, nil)
		go s.Run(context.Background())
		handler(s)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestNegotiationDefaultsAfterTimeout(t *testing.T) {
	resultCh := make(chan NegotiationResult, 1)
	srv, url := newTestServer(t, func(s *Session) {
		go func() {
			resultCh <- <-s.Negotiated()
		}()
	})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	select {
	case res := <-resultCh:
		require.True(t, res.TimedOut)
		require.Equal(t, wire.CodecAVC, res.Codec)
	case <-time.After(2 * time.Second):
		t.Fatal("negotiation never resolved")
	}
}

func TestNegotiationExplicitMode(t *testing.T) {
	resultCh := make(chan NegotiationResult, 1)
	srv, url := newTestServer(t, func(s *Session) {
		go func() {
			resultCh <- <-s.Negotiated()
		}()
	})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	msg, _ := json.Marshal(wire.ModeMessage{Type: "mode", Codec: wire.CodecHEVC})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	select {
	case res := <-resultCh:
		require.False(t, res.TimedOut)
		require.Equal(t, wire.CodecHEVC, res.Codec)
	case <-time.After(2 * time.Second):
		t.Fatal("negotiation never resolved")
	}
}

func TestConfigPrecedesFirstVideoBinary(t *testing.T) {
	srv, url := newTestServer(t, func(s *Session) {
		go func() {
			<-s.Negotiated()
			_ = s.SendJSON(wire.NewModeAck(wire.CodecAVC))
			_ = s.SendJSON(wire.NewVideoConfigMessage("avc1.42001f", "AAAA", 640, 480))
			_ = s.SendBinary([]byte{0, 0, 0, 1, 0x67})
		}()
	})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	var sawConfig, sawBinaryAfterConfig bool
	for i := 0; i < 3; i++ {
		mt, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		if mt == websocket.TextMessage && strings.Contains(string(payload), "video-config") {
			sawConfig = true
		}
		if mt == websocket.BinaryMessage {
			sawBinaryAfterConfig = sawConfig
		}
	}
	require.True(t, sawConfig)
	require.True(t, sawBinaryAfterConfig)
}

func TestForceKeyframeRequestDelivered(t *testing.T) {
	received := make(chan struct{}, 1)
	srv, url := newTestServer(t, func(s *Session) {
		go func() {
			<-s.ForceKeyframeRequests()
			received <- struct{}{}
		}()
	})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	msg, _ := json.Marshal(wire.ForceKeyframeMessage{Type: "force-keyframe"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("force-keyframe request never delivered")
	}
}

func TestMalformedInboundJSONIgnored(t *testing.T) {
	srv, url := newTestServer(t, func(s *Session) {})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The connection must remain usable: a follow-up valid heartbeat-style
	// roundtrip would still work. We just assert no panic/close happened
	// within a short window.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.PingMessage, nil))
}

func TestInboundAUD0Routed(t *testing.T) {
	got := make(chan wire.AudioFrame, 1)
	srv, url := newTestServer(t, func(s *Session) {
		go func() {
			got <- <-s.AudioIn()
		}()
	})
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	frame := wire.AudioFrame{StartMs: 5, SampleRate: 48000, Channels: 1, Samples: []int16{1, 2, 3}}
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, wire.EncodeAUD0(frame)))

	select {
	case f := <-got:
		require.Equal(t, frame.Samples, f.Samples)
	case <-time.After(time.Second):
		t.Fatal("audio frame never routed")
	}
}
