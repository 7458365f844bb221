// Package twitchchat is the public facade over the Twitch chat client:
// multiplexing many channel subscriptions over a bounded pool of
// authenticated connections (ConnectPool), or driving a single connection
// directly (ConnectSingle). See spec.md §4.H.
package twitchchat

import (
	"context"
	"fmt"

	"github.com/kappopher/twitchchat/connection"
	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/pool"
)

// Sender submits outbound commands and awaits their one-shot response.
// Both SingleHandle and PoolHandle implement it, and clone_sender()/sender()
// from spec.md §4.H return this narrower view.
type Sender interface {
	Submit(cmd irc.Command) <-chan irc.Response
}

// SingleHandle drives one directly-managed connection, per spec.md §4.H's
// connect_single(cfg) entry point.
type SingleHandle struct {
	conn   *connection.Conn
	cancel context.CancelFunc
	done   chan error
}

// ConnectSingle opens one connection with cfg and blocks until it first
// reaches Active or ctx is done. A failed dial or handshake does not end the
// wait: the connection's run loop retries it after its reconnect delay.
func ConnectSingle(ctx context.Context, cfg Config) (*SingleHandle, error) {
	conn := connection.New(cfg.toConnectionConfig())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- conn.Run(runCtx) }()

	if err := conn.WaitUntilActive(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("twitchchat: connecting: %w", err)
	}

	return &SingleHandle{conn: conn, cancel: cancel, done: done}, nil
}

// Submit hands cmd to the connection's outbound middleware chain.
func (h *SingleHandle) Submit(cmd irc.Command) <-chan irc.Response {
	result := make(chan irc.Response, 1)
	h.conn.Submit(cmd, result)
	return result
}

// CloneSender returns an owned Sender handle, per spec.md §4.H's
// clone_sender(). A SingleHandle's sender is itself, since there is only
// ever one underlying connection to route to.
func (h *SingleHandle) CloneSender() Sender { return h }

// Sender borrows the same Sender view as CloneSender.
func (h *SingleHandle) Sender() Sender { return h }

// SubscribeEvents returns this connection's inbound event channel. Every
// call returns the same channel; events are not copied per subscriber, so
// concurrent readers each receive only part of the stream.
func (h *SingleHandle) SubscribeEvents() <-chan irc.Event { return h.conn.Events() }

// State reports the connection's current lifecycle position.
func (h *SingleHandle) State() connection.State { return h.conn.State() }

// Close tears the connection down and waits for its run loop to exit.
func (h *SingleHandle) Close() error {
	h.conn.Close()
	h.cancel()
	err := <-h.done
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// PoolHandle drives a connection pool, per spec.md §4.H's
// connect_pool(cfg, pool_cfg) entry point.
type PoolHandle struct {
	p *pool.Pool
}

// ConnectPool creates the dedicated whisper connection plus
// pool_cfg.InitConnections-1 more, all authenticated with cfg, per
// spec.md §4.G. It blocks until every started connection is Active.
func ConnectPool(ctx context.Context, cfg Config, poolCfg PoolConfig) (*PoolHandle, error) {
	p, err := pool.New(ctx, poolCfg.toPoolConfig(cfg.toConnectionConfig()))
	if err != nil {
		return nil, fmt.Errorf("twitchchat: connecting pool: %w", err)
	}
	return &PoolHandle{p: p}, nil
}

// Submit routes cmd per spec.md §4.G's placement rules.
func (h *PoolHandle) Submit(cmd irc.Command) <-chan irc.Response {
	return h.p.Submit(cmd)
}

// CloneSender returns an owned Sender handle onto the same pool.
func (h *PoolHandle) CloneSender() Sender { return h }

// Sender borrows a Sender backed by the same pool; for PoolHandle this is
// identical to CloneSender since the pool itself is already shared by
// reference (spec.md §4.H distinguishes an owned vs. borrowed sender only
// for handles that wrap non-shared state).
func (h *PoolHandle) Sender() Sender { return h }

// SubscribeEvents subscribes to the pool's fanned-in event stream with the
// given buffer size. Call the returned func to unsubscribe.
func (h *PoolHandle) SubscribeEvents(buffer int) (events <-chan irc.Event, unsubscribe func()) {
	return h.p.Events(buffer)
}

// Close broadcasts Close to every pool connection and waits for the result.
func (h *PoolHandle) Close(ctx context.Context) error {
	return h.p.Close(ctx)
}
