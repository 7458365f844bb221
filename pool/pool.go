// Package pool manages a set of connection.Conn instances behind one
// routed API: PrivMsg/Part go to whichever connection owns the channel,
// Join places a channel by load, and Whisper/Ping/Pong are pinned to a
// single dedicated connection. See spec.md §4.G.
package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/rs/zerolog"

	"github.com/kappopher/twitchchat/connection"
	"github.com/kappopher/twitchchat/irc"
)

const staleGCInterval = 30 * time.Second

// Config configures a Pool. Zero-value fields are filled with defaults by
// New.
type Config struct {
	InitConnections int
	ConnectionLimit int
	Threshold       int
	ChannelBuffer   int

	// Conn is the template connection.Config every pool-managed connection
	// is started from; its Dial is reused unchanged across all of them.
	Conn connection.Config

	Logger zerolog.Logger
}

func (c *Config) applyDefaults() {
	if c.InitConnections == 0 {
		c.InitConnections = 2
	}
	if c.ConnectionLimit == 0 {
		c.ConnectionLimit = 10
	}
	if c.Threshold == 0 {
		c.Threshold = 50
	}
	if c.ChannelBuffer == 0 {
		c.ChannelBuffer = 20
	}
}

// entry pairs a managed connection with the means to stop it. The Pool's
// conns slice and whisper field hold the only strong references; the
// channel-ownership map holds weak ones so a GC'd/closed connection just
// disappears from routing instead of needing explicit invalidation.
type entry struct {
	conn   *connection.Conn
	cancel context.CancelFunc
}

// Pool is a routed collection of connections sharing one event stream.
type Pool struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	conns   []*entry
	whisper *entry

	channelMu  sync.RWMutex
	channelMap map[string]weak.Pointer[entry]

	broadcaster *broadcaster
	gcStop      chan struct{}
}

// New creates the dedicated whisper connection, init_connections-1
// additional connections, and starts the stale-connection reaper. It
// blocks until every started connection has reached Active.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	cfg.applyDefaults()

	pctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		cfg:         cfg,
		ctx:         pctx,
		cancel:      cancel,
		channelMap:  make(map[string]weak.Pointer[entry]),
		broadcaster: newBroadcaster(),
		gcStop:      make(chan struct{}),
	}

	whisper, err := p.spawn()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("pool: starting whisper connection: %w", err)
	}
	p.whisper = whisper

	for i := 1; i < cfg.InitConnections; i++ {
		e, err := p.spawn()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("pool: starting connection %d: %w", i, err)
		}
		p.conns = append(p.conns, e)
	}

	go p.gcLoop()
	return p, nil
}

func (p *Pool) spawn() (*entry, error) {
	conn := connection.New(p.cfg.Conn)
	cctx, cancel := context.WithCancel(p.ctx)
	e := &entry{conn: conn, cancel: cancel}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := conn.Run(cctx); err != nil {
			p.cfg.Logger.Error().Err(err).Msg("pool connection exited")
		}
	}()
	go p.forwardEvents(cctx, conn)

	if err := conn.WaitUntilActive(cctx); err != nil {
		cancel()
		return nil, err
	}
	return e, nil
}

func (p *Pool) forwardEvents(ctx context.Context, conn *connection.Conn) {
	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			p.broadcaster.publish(ev)
		case <-ctx.Done():
			return
		}
	}
}

// Submit routes cmd to the connection spec.md §4.G assigns it to and
// returns a buffered channel that receives exactly one Response.
func (p *Pool) Submit(cmd irc.Command) <-chan irc.Response {
	result := make(chan irc.Response, 1)

	switch cmd.Kind {
	case irc.CmdWhisper, irc.CmdPing, irc.CmdPong:
		p.whisper.conn.Submit(cmd, result)

	case irc.CmdPrivMsg, irc.CmdPart:
		owner := p.ownerOf(cmd.Channel)
		if owner == nil {
			result <- irc.Response{Kind: irc.NotJoined, Err: ErrChannelNotJoined}
			return result
		}
		owner.conn.Submit(cmd, result)

	case irc.CmdJoin:
		p.routeJoin(cmd, result)

	case irc.CmdNick, irc.CmdPass, irc.CmdCapRequest:
		result <- irc.Response{Kind: irc.UnsupportedInPool, Err: ErrUnsupportedInPool}

	case irc.CmdClose:
		go p.closeAll(result)

	default:
		result <- irc.Response{Kind: irc.UnsupportedInPool, Err: ErrUnsupportedInPool}
	}

	return result
}

// routeJoin implements the placement rule: forward to an existing owner,
// else pick the least-loaded connection at or under threshold (ties
// broken by insertion order), else spawn a new one.
func (p *Pool) routeJoin(cmd irc.Command, result chan<- irc.Response) {
	channel := strings.TrimPrefix(cmd.Channel, "#")

	if owner := p.ownerOf(channel); owner != nil {
		owner.conn.Submit(cmd, result)
		return
	}

	p.mu.Lock()
	var chosen *entry
	chosenCount := -1
	for _, e := range p.conns {
		count := e.conn.JoinedCount()
		if count > p.cfg.Threshold {
			continue
		}
		if chosen == nil || count < chosenCount {
			chosen, chosenCount = e, count
		}
	}

	if chosen != nil {
		p.mu.Unlock()
		p.setOwner(channel, chosen)
		chosen.conn.Submit(cmd, result)
		return
	}

	// connection_limit bounds the pool's total connection count, the
	// dedicated whisper connection included.
	if len(p.conns)+1 >= p.cfg.ConnectionLimit {
		p.mu.Unlock()
		result <- irc.Response{Kind: irc.NewConnectionFailed, Err: ErrNewConnectionFailed}
		return
	}
	p.mu.Unlock()

	spawned, err := p.spawn()
	if err != nil {
		result <- irc.Response{Kind: irc.NewConnectionFailed, Err: fmt.Errorf("%w: %v", ErrNewConnectionFailed, err)}
		return
	}

	p.mu.Lock()
	p.conns = append(p.conns, spawned)
	p.mu.Unlock()

	p.setOwner(channel, spawned)
	spawned.conn.Submit(cmd, result)
}

func (p *Pool) setOwner(channel string, e *entry) {
	p.channelMu.Lock()
	defer p.channelMu.Unlock()
	p.channelMap[channel] = weak.Make(e)
}

// ownerOf resolves channel's owning connection, clearing the map entry if
// the owning connection has already been reclaimed by GC.
func (p *Pool) ownerOf(channel string) *entry {
	channel = strings.TrimPrefix(channel, "#")

	p.channelMu.RLock()
	wp, ok := p.channelMap[channel]
	p.channelMu.RUnlock()
	if !ok {
		return nil
	}

	e := wp.Value()
	if e == nil {
		p.channelMu.Lock()
		delete(p.channelMap, channel)
		p.channelMu.Unlock()
		return nil
	}
	return e
}

// Events subscribes to the pool's fanned-in event stream. Call the
// returned func to unsubscribe and release the channel.
func (p *Pool) Events(buffer int) (events <-chan irc.Event, unsubscribe func()) {
	id, ch := p.broadcaster.subscribe(buffer)
	return ch, func() { p.broadcaster.unsubscribe(id) }
}

// Close broadcasts Close to every connection (whisper included), waiting
// for the first error or for all of them to finish.
func (p *Pool) Close(ctx context.Context) error {
	result := make(chan irc.Response, 1)
	go p.closeAll(result)

	select {
	case resp := <-result:
		return resp.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) closeAll(result chan<- irc.Response) {
	p.mu.RLock()
	all := make([]*entry, 0, len(p.conns)+1)
	all = append(all, p.whisper)
	all = append(all, p.conns...)
	p.mu.RUnlock()

	var firstErr error
	for _, e := range all {
		r := make(chan irc.Response, 1)
		e.conn.Submit(irc.NewClose(), r)
		resp := <-r
		if resp.Err != nil {
			firstErr = resp.Err
			break
		}
	}

	close(p.gcStop)
	p.cancel()
	p.wg.Wait()
	p.broadcaster.close()

	if firstErr != nil {
		result <- irc.Response{Kind: irc.ConnectionClosed, Err: firstErr}
		return
	}
	result <- irc.Response{Kind: irc.Ok}
}

func (p *Pool) gcLoop() {
	ticker := time.NewTicker(staleGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.gcOnce()
		case <-p.gcStop:
			return
		case <-p.ctx.Done():
			return
		}
	}
}

// gcOnce removes every non-whisper connection with no joined channels from
// the pool's routing set and closes it in the background. The whisper
// connection is never a candidate.
func (p *Pool) gcOnce() {
	p.mu.Lock()
	kept := p.conns[:0:0]
	var stale []*entry
	for _, e := range p.conns {
		if e.conn.JoinedCount() == 0 {
			stale = append(stale, e)
		} else {
			kept = append(kept, e)
		}
	}
	p.conns = kept
	p.mu.Unlock()

	for _, e := range stale {
		go func(e *entry) {
			e.conn.Close()
			e.cancel()
		}(e)
	}
}
