package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/kappopher/twitchchat/irc"
)

// dedupWindow is how long a channel remembers its last sent PRIVMSG text
// for evasion purposes.
const dedupWindow = 30 * time.Second

type dedupEntry struct {
	text string
	at   time.Time
}

// Deduplicator defeats Twitch's duplicate-message suppression: if the same
// PRIVMSG text is sent twice to a channel within the dedup window, it
// appends an invisible U+0000 suffix so the second copy is not byte-
// identical to the first. Non-PRIVMSG commands, and PRIVMSGs outside the
// window, pass through unchanged.
type Deduplicator struct {
	mu   sync.Mutex
	last map[string]dedupEntry
	now  func() time.Time
}

// NewDeduplicator returns a ready Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{last: make(map[string]dedupEntry), now: time.Now}
}

// Run implements Stage.
func (d *Deduplicator) Run(ctx context.Context, in <-chan Submission, out chan<- Submission) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case sub, ok := <-in:
			if !ok {
				return
			}
			d.process(&sub)
			select {
			case out <- sub:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *Deduplicator) process(sub *Submission) {
	if sub.Command.Kind != irc.CmdPrivMsg {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	channel := sub.Command.Channel
	now := d.now()
	prev, seen := d.last[channel]
	if seen && now.Sub(prev.at) < dedupWindow && prev.text == sub.Command.Message {
		sub.Command.Message += "\u0000"
	}
	d.last[channel] = dedupEntry{text: sub.Command.Message, at: now}
}
