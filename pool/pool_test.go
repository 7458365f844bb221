package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kappopher/twitchchat/connection"
	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/pool"
	"github.com/kappopher/twitchchat/transport"
)

// newFakeDialer returns a connection.Dialer that hands out a fresh
// transport.Fake per call, each pre-loaded with the end-of-MOTD reply so
// every spawned connection reaches Active without further setup, and a
// func to fetch the fakes handed out so far (in spawn order).
func newFakeDialer() (dial connection.Dialer, fakes func() []*transport.Fake) {
	var mu sync.Mutex
	var made []*transport.Fake

	dial = func(ctx context.Context) (connection.Transport, error) {
		f := transport.NewFake(20)
		f.Push(":tmi.twitch.tv 376 bot :>")
		mu.Lock()
		made = append(made, f)
		mu.Unlock()
		return f, nil
	}
	fakes = func() []*transport.Fake {
		mu.Lock()
		defer mu.Unlock()
		out := make([]*transport.Fake, len(made))
		copy(out, made)
		return out
	}
	return dial, fakes
}

func newTestPool(t *testing.T, initConnections, threshold, connectionLimit int) (*pool.Pool, func() []*transport.Fake) {
	t.Helper()
	dial, fakes := newFakeDialer()
	p, err := pool.New(context.Background(), pool.Config{
		InitConnections: initConnections,
		Threshold:       threshold,
		ConnectionLimit: connectionLimit,
		Conn: connection.Config{
			Username:          "bot",
			Token:             "oauth:token",
			Dial:              dial,
			HeartbeatInterval: time.Hour,
			ReconnectDelay:    time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	return p, fakes
}

func mustSubmit(t *testing.T, p *pool.Pool, cmd irc.Command) irc.Response {
	t.Helper()
	select {
	case resp := <-p.Submit(cmd):
		return resp
	case <-time.After(2 * time.Second):
		t.Fatalf("submit of %v never completed", cmd.Kind)
		return irc.Response{}
	}
}

func TestPool_WhisperAlwaysRoutesToDedicatedConnection(t *testing.T) {
	p, fakes := newTestPool(t, 2, 50, 10)

	resp := mustSubmit(t, p, irc.NewWhisper("ronni", "hi"))
	if resp.Kind != irc.Ok {
		t.Fatalf("whisper response = %+v", resp)
	}

	all := fakes()
	// The whisper connection is always the first one spawned by New.
	sent := all[0].Sent()
	found := false
	for _, line := range sent {
		if line == "PRIVMSG #jtv :/w ronni hi" {
			found = true
		}
	}
	if !found {
		t.Errorf("whisper connection sent = %v", sent)
	}
	for i, f := range all[1:] {
		for _, line := range f.Sent() {
			if line == "PRIVMSG #jtv :/w ronni hi" {
				t.Errorf("whisper leaked onto non-whisper connection %d", i+1)
			}
		}
	}
}

func TestPool_PrivMsgToUnjoinedChannelIsRejected(t *testing.T) {
	p, _ := newTestPool(t, 2, 50, 10)

	resp := mustSubmit(t, p, irc.NewPrivMsg("#dallas", "hi"))
	if resp.Kind != irc.NotJoined {
		t.Fatalf("response = %+v, want NotJoined", resp)
	}
}

func TestPool_ManagedCommandsRejected(t *testing.T) {
	p, _ := newTestPool(t, 2, 50, 10)

	for _, cmd := range []irc.Command{irc.NewNick("x"), irc.NewPass("y"), irc.NewCapRequest("twitch.tv/tags")} {
		resp := mustSubmit(t, p, cmd)
		if resp.Kind != irc.UnsupportedInPool {
			t.Errorf("%v response = %+v, want UnsupportedInPool", cmd.Kind, resp)
		}
	}
}

func TestPool_JoinPlacementBalancesAcrossTwoOrdinaryConnections(t *testing.T) {
	// 1 whisper + 2 ordinary connections, threshold=3.
	p, fakes := newTestPool(t, 3, 3, 10)

	channels := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, ch := range channels {
		resp := mustSubmit(t, p, irc.NewJoin(ch))
		if resp.Kind != irc.Ok {
			t.Fatalf("join #%s = %+v", ch, resp)
		}
	}

	if got := len(fakes()); got != 3 {
		t.Fatalf("expected no spawn after 7 joins at threshold 3, got %d connections", got)
	}

	// Per the literal placement rule (eligible while count <= threshold,
	// minimum count wins ties by insertion order), 7 sequential joins
	// across 2 equally-eligible ordinary connections land as (4, 3): the
	// earlier connection absorbs every tie.
	sentCounts := make([]int, 0, 2)
	for _, f := range fakes()[1:] {
		n := 0
		for _, line := range f.Sent() {
			if len(line) > 5 && line[:5] == "JOIN " {
				n++
			}
		}
		sentCounts = append(sentCounts, n)
	}
	total := sentCounts[0] + sentCounts[1]
	if total != 7 {
		t.Fatalf("join counts %v do not sum to 7", sentCounts)
	}
	if sentCounts[0] != 4 || sentCounts[1] != 3 {
		t.Errorf("join distribution = %v, want [4 3]", sentCounts)
	}

	// A further join at a brand new channel should tip a connection over
	// threshold (4 > 3) but the other ordinary connection is still at 3,
	// i.e. still eligible, so the 8th join lands on it rather than
	// spawning. A spawn only occurs once every existing connection
	// exceeds the threshold, which this rule reaches one join later than
	// the round-number "8th join spawns" framing suggests.
	resp := mustSubmit(t, p, irc.NewJoin("h"))
	if resp.Kind != irc.Ok {
		t.Fatalf("8th join = %+v", resp)
	}
	if got := len(fakes()); got != 3 {
		t.Errorf("8th join should not spawn yet, got %d connections", got)
	}

	resp = mustSubmit(t, p, irc.NewJoin("i"))
	if resp.Kind != irc.Ok {
		t.Fatalf("9th join = %+v", resp)
	}
	if got := len(fakes()); got != 4 {
		t.Errorf("9th join should spawn a new connection once both existing ones exceed threshold, got %d connections", got)
	}
}

func TestPool_JoinIsIdempotentOnExistingOwner(t *testing.T) {
	p, fakes := newTestPool(t, 2, 50, 10)

	mustSubmit(t, p, irc.NewJoin("#dallas"))
	mustSubmit(t, p, irc.NewJoin("#dallas"))

	owner := fakes()[1]
	n := 0
	for _, line := range owner.Sent() {
		if line == "JOIN #dallas" {
			n++
		}
	}
	if n != 2 {
		t.Errorf("expected both JOINs forwarded to the same owning connection, got %d on it", n)
	}
}

func TestPool_ConnectionLimitRejectsFurtherSpawns(t *testing.T) {
	// init_connections=2 (whisper + 1 ordinary), threshold=0 so a
	// connection is full once it owns one channel (the first join still
	// fits the empty ordinary connection, 0 <= 0), connection_limit=2 so no
	// more than 2 total connections may ever exist.
	p, fakes := newTestPool(t, 2, 0, 2)

	resp := mustSubmit(t, p, irc.NewJoin("a"))
	if resp.Kind != irc.Ok {
		t.Fatalf("join a = %+v", resp)
	}
	if got := len(fakes()); got != 2 {
		t.Fatalf("expected still 2 connections (threshold 0, ordinary connection has 0<=0), got %d", got)
	}

	resp = mustSubmit(t, p, irc.NewJoin("b"))
	if resp.Kind != irc.NewConnectionFailed {
		t.Fatalf("join b = %+v, want NewConnectionFailed once at connection_limit", resp)
	}
}
