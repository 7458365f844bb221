// Package ratelimit enforces Twitch's per-channel chat slow-mode limits
// using a token bucket per channel, modeled on the per-key limiter maps
// used elsewhere in the stack for per-IP connection throttling.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SlowModeLimit describes the send budget for one channel.
type SlowModeLimit struct {
	// interval is the token refill rate, rate.Every of the minimum gap
	// between two messages; rate.Inf means the channel is unthrottled.
	interval rate.Limit
	burst    int
}

// Channel returns the limit Twitch applies to a regular (non-mod) user
// chatting in a channel with slow mode set to seconds.
func Channel(seconds float64) SlowModeLimit {
	if seconds <= 0 {
		return Unlimited()
	}
	return SlowModeLimit{interval: rate.Every(time.Duration(seconds * float64(time.Second))), burst: 1}
}

// Global is Twitch's default chat rate limit absent any slow-mode setting:
// one message per second, burst of one.
func Global() SlowModeLimit {
	return SlowModeLimit{interval: rate.Every(time.Second), burst: 1}
}

// Unlimited removes throttling entirely, used for moderators and the bot's
// own broadcaster channel once USERSTATE badges confirm elevated privilege.
func Unlimited() SlowModeLimit {
	return SlowModeLimit{interval: rate.Inf, burst: 1}
}

// Limiter enforces one SlowModeLimit per channel. The zero value is not
// usable; construct with New.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	def      SlowModeLimit
}

// New returns a Limiter that applies def to any channel it has not seen a
// SetLimit call for yet.
func New(def SlowModeLimit) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		def:      def,
	}
}

// SetLimit overrides the limit for one channel, e.g. when ROOMSTATE reports
// a slow-mode change or USERSTATE reports moderator status.
func (l *Limiter) SetLimit(channel string, limit SlowModeLimit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[channel] = rate.NewLimiter(limit.interval, limit.burst)
}

// SetUnlimited is shorthand for SetLimit(channel, Unlimited()).
func (l *Limiter) SetUnlimited(channel string) {
	l.SetLimit(channel, Unlimited())
}

func (l *Limiter) limiterFor(channel string) *rate.Limiter {
	l.mu.RLock()
	rl, ok := l.limiters[channel]
	l.mu.RUnlock()
	if ok {
		return rl
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rl, ok = l.limiters[channel]; ok {
		return rl
	}
	rl = rate.NewLimiter(l.def.interval, l.def.burst)
	l.limiters[channel] = rl
	return rl
}

// Ready reports whether a message to channel may be sent right now without
// waiting, without consuming the token.
func (l *Limiter) Ready(channel string) bool {
	return l.limiterFor(channel).Tokens() >= 1
}

// Wait blocks until channel's limiter admits one message, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, channel string) error {
	return l.limiterFor(channel).Wait(ctx)
}

// Reserve takes the channel's next token immediately, returning how long the
// caller should sleep before the message actually goes out. The middleware
// chain does not call it: its rate stage blocks in Wait one submission at a
// time and keeps no buffer of parked sends.
func (l *Limiter) Reserve(channel string) *rate.Reservation {
	return l.limiterFor(channel).Reserve()
}
