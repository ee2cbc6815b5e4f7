// Package wire implements the on-the-wire framing shared by the live
// broadcaster and the offline player: JSON control messages, AVCC-framed
// H.264 binary messages, and AUD0-framed PCM audio binary messages.
package wire

import "fmt"

// Kind tags an error with the propagation rule that applies to it, per
// the broadcaster's error taxonomy. Kind is not itself an error; attach it
// to a cause with Wrap and recover it with errors.As against *Error.
type Kind int

const (
	// ConfigError is fatal at startup: bad CLI, missing file.
	ConfigError Kind = iota
	// CaptureError degrades at startup: no device, open failed, read error.
	CaptureError
	// CodecError is fatal to a session: encoder init failed, HEVC requested, decode error.
	CodecError
	// ContainerError is fatal to a session: probe failed, no track, unreadable sample.
	ContainerError
	// ProtocolError is ignored: malformed client JSON.
	ProtocolError
	// TransportError ends a session: peer closed, send failed.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "config"
	case CaptureError:
		return "capture"
	case CodecError:
		return "codec"
	case ContainerError:
		return "container"
	case ProtocolError:
		return "protocol"
	case TransportError:
		return "transport"
	default:
		return "unknown"
	}
}

// Error wraps a cause with the Kind that determines how a caller should
// propagate it.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap builds a *Error of the given kind, recording op as context.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}
