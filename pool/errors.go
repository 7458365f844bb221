package pool

import "errors"

var (
	// ErrChannelNotJoined is returned when PrivMsg/Part target a channel no
	// connection currently owns.
	ErrChannelNotJoined = errors.New("pool: channel not joined")
	// ErrUnsupportedInPool is returned for Nick/Pass/CapRequest, which a
	// pool manages itself and rejects from application input.
	ErrUnsupportedInPool = errors.New("pool: command unsupported when managed by a pool")
	// ErrNewConnectionFailed is returned when a Join needs a new
	// connection and either connection_limit is reached or the spawn
	// itself fails.
	ErrNewConnectionFailed = errors.New("pool: failed to spin up a new connection")
	// ErrEventOverflow marks an event dropped because a subscriber's
	// buffer was full.
	ErrEventOverflow = errors.New("pool: subscriber lagged, event dropped")
	// ErrEventClosed marks the final event a subscriber sees before its
	// event channel closes, e.g. when Close tears the whole pool down.
	ErrEventClosed = errors.New("pool: event stream closed")
)
