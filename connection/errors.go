package connection

import "errors"

// DisconnectReason classifies why a connection's run loop stopped a cycle,
// per spec.md §4.F / §7.
type DisconnectReason int

const (
	ReasonTransportError DisconnectReason = iota
	ReasonTimeout
	ReasonClosed
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonTransportError:
		return "TransportError"
	case ReasonTimeout:
		return "Timeout"
	case ReasonClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

var (
	// errClosed signals a deliberate Close(), never triggers reconnect.
	errClosed = errors.New("connection: closed")
	// errHeartbeatTimeout signals a missed PONG, triggers reconnect as if
	// transport had failed.
	errHeartbeatTimeout = errors.New("connection: heartbeat timeout waiting for PONG")
	// ErrAuthFailed names a rejected PASS/NICK handshake. Nothing in this
	// package returns it: a rejected login arrives as an ordinary NOTICE
	// event and the connection does not reach Active.
	ErrAuthFailed = errors.New("connection: authentication failed")
	// ErrReconnectsExhausted is returned from Run once max_reconnects is
	// exceeded.
	ErrReconnectsExhausted = errors.New("connection: exhausted max reconnect attempts")
)
