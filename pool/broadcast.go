package pool

import (
	"sync"

	"github.com/kappopher/twitchchat/irc"
)

// broadcaster fans every connection's inbound events out to every
// subscriber. A lagging subscriber never blocks the others or the
// connection it's reading from: its buffer full means that event is
// replaced with a KindError carrying ErrEventOverflow, best-effort.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan irc.Event
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan irc.Event)}
}

func (b *broadcaster) subscribe(buffer int) (id int, events <-chan irc.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++
	ch := make(chan irc.Event, buffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

func (b *broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *broadcaster) publish(ev irc.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case ch <- irc.Event{Kind: irc.KindError, Err: ErrEventOverflow}:
		default:
		}
	}
}

// close tears the broadcaster down: every subscriber first gets a
// best-effort final KindError event carrying ErrEventClosed, mirroring how
// publish surfaces ErrEventOverflow, and then its channel is closed.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		select {
		case ch <- irc.Event{Kind: irc.KindError, Err: ErrEventClosed}:
		default:
		}
		close(ch)
		delete(b.subs, id)
	}
}
