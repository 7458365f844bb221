// Package connection drives a single IRC-over-WebSocket connection through
// the Disconnected -> Established -> Active lifecycle: capability
// negotiation, login, channel-join replay, heartbeat, and reconnect.
package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/middleware"
	"github.com/kappopher/twitchchat/ratelimit"
)

// Transport is the subset of transport.Conn (or transport.Fake in tests)
// that the driver is given: frame I/O plus control-frame hooks. The
// heartbeat sends an IRC-level PING through WriteFrame; the driver does not
// call WritePing, SetReadDeadline or SetPongHandler.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(line string) error
	WriteClose() error
	WritePing(data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetPongHandler(fn func(string) error)
}

// Dialer opens a new Transport, e.g. transport.Dial bound to a fixed URL.
type Dialer func(ctx context.Context) (Transport, error)

// Config configures one Conn. Zero-value fields are filled with spec.md §6
// defaults by New.
type Config struct {
	Username string
	Token    string

	CapMembership bool
	CapCommands   bool
	CapTags       bool

	MaxReconnects     int
	ChannelBuffer     int
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	LineLimit         int

	Limiter *ratelimit.Limiter
	Logger  zerolog.Logger
	Dial    Dialer
}

func (c *Config) applyDefaults() {
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 20
	}
	if c.ChannelBuffer == 0 {
		c.ChannelBuffer = 20
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.LineLimit == 0 {
		c.LineLimit = middleware.DefaultLineLimit
	}
	if c.Limiter == nil {
		c.Limiter = ratelimit.New(ratelimit.Global())
	}
	if !c.CapCommands && !c.CapTags && !c.CapMembership {
		c.CapCommands = true
		c.CapTags = true
	}
}

func (c *Config) capabilities() []string {
	var caps []string
	if c.CapMembership {
		caps = append(caps, "twitch.tv/membership")
	}
	if c.CapCommands {
		caps = append(caps, "twitch.tv/commands")
	}
	if c.CapTags {
		caps = append(caps, "twitch.tv/tags")
	}
	return caps
}

// Conn is a single managed connection to Twitch chat.
type Conn struct {
	cfg Config

	state *stateWatch

	joinedMu sync.RWMutex
	joined   map[string]struct{}

	// latch is the "connecting latch" from spec.md §5: held for writing
	// during reconnect, acquired for reading by every outbound submission
	// so writes suspend while a reconnect is in flight.
	latch sync.RWMutex

	submit chan middleware.Submission
	events chan irc.Event

	closing    chan struct{}
	closeOnce  sync.Once
	reconnects int
}

// New constructs a Conn. Call Run to drive it.
func New(cfg Config) *Conn {
	cfg.applyDefaults()
	return &Conn{
		cfg:     cfg,
		state:   newStateWatch(),
		joined:  make(map[string]struct{}),
		submit:  make(chan middleware.Submission, cfg.ChannelBuffer),
		events:  make(chan irc.Event, cfg.ChannelBuffer),
		closing: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State { return c.state.Get() }

// WaitUntilActive blocks until the connection first reaches Active, ctx is
// done, or Close is called. This is what gives the public facade's
// connect() its "returns only after first reaching Active" contract.
func (c *Conn) WaitUntilActive(ctx context.Context) error {
	for {
		state, changed := c.state.changed()
		if state == Active {
			return nil
		}
		select {
		case <-changed:
		case <-c.closing:
			return errClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Events returns the channel inbound events are forwarded to. Internal
// Ping/Pong events never appear here.
func (c *Conn) Events() <-chan irc.Event { return c.events }

// Submit hands a command to this connection's outbound middleware chain.
// The caller's response slot is completed once the command is written, or
// with an error.
func (c *Conn) Submit(cmd irc.Command, result chan<- irc.Response) {
	c.latch.RLock()
	defer c.latch.RUnlock()

	select {
	case c.submit <- middleware.Submission{Command: cmd, Result: result}:
	case <-c.closing:
		select {
		case result <- irc.Response{Kind: irc.ConnectionClosed, Err: errClosed}:
		default:
		}
	}
}

// JoinedChannels returns a snapshot of the channels this connection
// currently owns.
func (c *Conn) JoinedChannels() []string {
	c.joinedMu.RLock()
	defer c.joinedMu.RUnlock()
	out := make([]string, 0, len(c.joined))
	for ch := range c.joined {
		out = append(out, ch)
	}
	return out
}

// JoinedCount reports how many channels this connection owns.
func (c *Conn) JoinedCount() int {
	c.joinedMu.RLock()
	defer c.joinedMu.RUnlock()
	return len(c.joined)
}

// HasJoined reports whether this connection owns channel.
func (c *Conn) HasJoined(channel string) bool {
	c.joinedMu.RLock()
	defer c.joinedMu.RUnlock()
	_, ok := c.joined[strings.TrimPrefix(channel, "#")]
	return ok
}

func (c *Conn) setJoined(channel string, joined bool) {
	channel = strings.TrimPrefix(channel, "#")
	c.joinedMu.Lock()
	defer c.joinedMu.Unlock()
	if joined {
		c.joined[channel] = struct{}{}
	} else {
		delete(c.joined, channel)
	}
}

// Close tears the connection down permanently; Run returns nil shortly
// after without reconnecting.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closing) })
}

// Run drives the connect/serve/reconnect lifecycle until Close is called,
// ctx is done, or max_reconnects is exhausted.
func (c *Conn) Run(ctx context.Context) error {
	for {
		select {
		case <-c.closing:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		reason, err := c.runOnce(ctx)

		if reason == ReasonClosed {
			return nil
		}
		select {
		case <-c.closing:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.state.Set(Disconnected)
		c.reconnects++
		if c.reconnects > c.cfg.MaxReconnects {
			return fmt.Errorf("%w: %v", ErrReconnectsExhausted, err)
		}
		c.cfg.Logger.Warn().Err(err).Str("reason", reason.String()).Int("attempt", c.reconnects).Msg("reconnecting")

		select {
		case <-time.After(c.cfg.ReconnectDelay):
		case <-c.closing:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce executes steps 1-9 of spec.md §4.F's run loop for one connection
// lifetime, returning once it disconnects for any reason.
func (c *Conn) runOnce(ctx context.Context) (DisconnectReason, error) {
	// The connecting latch is held for writing from here until the
	// subtasks start, so outbound Submit calls suspend during (re)connect
	// and resume once steady-state reading/writing begins (spec.md §5).
	c.latch.Lock()

	tp, err := c.cfg.Dial(ctx)
	if err != nil {
		c.latch.Unlock()
		return ReasonTransportError, fmt.Errorf("connection: dial: %w", err)
	}
	defer tp.Close()

	c.state.Set(Established)

	if err := c.handshake(tp); err != nil {
		c.latch.Unlock()
		return ReasonTransportError, err
	}
	if err := c.replayJoins(tp); err != nil {
		c.latch.Unlock()
		return ReasonTransportError, err
	}

	group, gctx := errgroup.WithContext(ctx)
	internalOut := make(chan irc.Command, c.cfg.ChannelBuffer)
	pongReceived := make(chan struct{}, 1)
	chainOut := middleware.NewChain(c.cfg.Limiter, c.cfg.LineLimit).Run(gctx, c.submit)

	group.Go(func() error { return c.readLoop(gctx, tp, internalOut, pongReceived) })
	group.Go(func() error { return c.writeLoop(gctx, tp, chainOut, internalOut) })
	group.Go(func() error { return c.heartbeatLoop(gctx, internalOut, pongReceived) })

	// Closing the transport once the group is cancelled unblocks a readLoop
	// waiting in ReadFrame, so a heartbeat timeout or Close ends this cycle.
	go func() {
		<-gctx.Done()
		tp.Close()
	}()

	c.latch.Unlock()

	err = group.Wait()

	select {
	case <-c.closing:
		return ReasonClosed, nil
	default:
	}

	switch {
	case err == nil:
		return ReasonClosed, nil
	case errors.Is(err, errHeartbeatTimeout):
		return ReasonTimeout, err
	default:
		return ReasonTransportError, err
	}
}

func (c *Conn) handshake(tp Transport) error {
	caps := c.cfg.capabilities()
	if len(caps) > 0 {
		line, _ := irc.NewCapRequest(caps...).Serialize()
		if err := tp.WriteFrame(line); err != nil {
			return fmt.Errorf("connection: requesting capabilities: %w", err)
		}
	}
	passLine, _ := irc.NewPass(c.cfg.Token).Serialize()
	if err := tp.WriteFrame(passLine); err != nil {
		return fmt.Errorf("connection: sending PASS: %w", err)
	}
	nickLine, _ := irc.NewNick(c.cfg.Username).Serialize()
	if err := tp.WriteFrame(nickLine); err != nil {
		return fmt.Errorf("connection: sending NICK: %w", err)
	}
	return nil
}

func (c *Conn) replayJoins(tp Transport) error {
	for _, channel := range c.JoinedChannels() {
		line, _ := irc.NewJoin(channel).Serialize()
		if err := tp.WriteFrame(line); err != nil {
			return fmt.Errorf("connection: replaying join #%s: %w", channel, err)
		}
	}
	return nil
}
