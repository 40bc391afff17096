package castsession

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a session failure per spec.md 7.
type ErrorKind int

const (
	KindTransportError ErrorKind = iota
	KindProtocolError
	KindMediaError
	KindConnectTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportError:
		return "TransportError"
	case KindProtocolError:
		return "ProtocolError"
	case KindMediaError:
		return "MediaError"
	case KindConnectTimeout:
		return "ConnectTimeout"
	default:
		return "UnknownError"
	}
}

// SessionError wraps an underlying cause with the taxonomy kind, so
// callers can errors.Is/errors.As past it to the cause.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

var (
	// ErrSessionNotReady indicates a media message was about to be sent with
	// no session_id/transport_id recorded yet. Delivered as the Err on a
	// KindMediaError SessionError passed to OnError; the triggering call is
	// otherwise dropped.
	ErrSessionNotReady = errors.New("castsession: session_id/transport_id not yet established")
	// ErrNoMediaSession indicates PLAY/PAUSE/STOP/SEEK was about to be sent
	// with media_session_id == 0. Delivered the same way as
	// ErrSessionNotReady.
	ErrNoMediaSession = errors.New("castsession: no active media_session_id")
)
