package wire

import "encoding/json"

// Codec identifies the negotiated video codec for a session.
type Codec string

const (
	CodecAVC  Codec = "avc"
	CodecHEVC Codec = "hevc"
)

// ModeMessage is the client-to-server `{"type":"mode",...}` control message.
type ModeMessage struct {
	Type  string `json:"type"`
	Codec Codec  `json:"codec"`
}

// ForceKeyframeMessage is the client-to-server force-keyframe request.
type ForceKeyframeMessage struct {
	Type string `json:"type"`
}

// ModeAck is the server-to-client mode acknowledgement. Reason is omitted
// when negotiation succeeded.
type ModeAck struct {
	Type   string `json:"type"`
	Mode   string `json:"mode"`
	Codec  Codec  `json:"codec,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewModeAck builds a successful mode-ack for the given codec.
func NewModeAck(codec Codec) ModeAck {
	return ModeAck{Type: "mode-ack", Mode: "video", Codec: codec}
}

// NewModeAckUnavailable builds the mode-ack sent when video cannot be
// produced for the session.
func NewModeAckUnavailable() ModeAck {
	return ModeAck{Type: "mode-ack", Mode: "video", Reason: "video-unavailable"}
}

// VideoConfigPayload is the nested `config` object of a video-config message.
type VideoConfigPayload struct {
	Codec       string `json:"codec"`
	Description string `json:"description"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
}

// VideoConfigMessage is the server-to-client `video-config` control
// message, sent exactly once, strictly before the first video binary.
type VideoConfigMessage struct {
	Type   string              `json:"type"`
	Config VideoConfigPayload  `json:"config"`
}

// NewVideoConfigMessage builds a video-config message.
func NewVideoConfigMessage(codec, descriptionB64 string, width, height uint32) VideoConfigMessage {
	return VideoConfigMessage{
		Type: "video-config",
		Config: VideoConfigPayload{
			Codec:       codec,
			Description: descriptionB64,
			Width:       width,
			Height:      height,
		},
	}
}

// Heartbeat is the plain-text idle keepalive; it is not JSON.
const Heartbeat = "heartbeat"

// inboundEnvelope is used only to sniff the `type` field of a client text
// message before deciding which concrete struct to unmarshal into.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// InboundKind enumerates the control messages a server can receive.
type InboundKind int

const (
	InboundUnknown InboundKind = iota
	InboundMode
	InboundForceKeyframe
)

// ParseInbound sniffs a client text message and returns its kind plus, for
// `mode` messages, the requested codec. Malformed JSON yields
// (InboundUnknown, "", ProtocolError-wrapped err) — callers discard this
// per spec: ProtocolError is silently ignored.
func ParseInbound(data []byte) (InboundKind, Codec, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return InboundUnknown, "", Wrap(ProtocolError, "parse inbound", err)
	}
	switch env.Type {
	case "mode":
		var m ModeMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return InboundUnknown, "", Wrap(ProtocolError, "parse mode", err)
		}
		return InboundMode, m.Codec, nil
	case "force-keyframe":
		return InboundForceKeyframe, "", nil
	default:
		return InboundUnknown, "", nil
	}
}
