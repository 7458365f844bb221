package middleware

import (
	"context"

	"github.com/kappopher/twitchchat/ratelimit"
)

// chainBuffer is the bounded capacity of the channel between two stages.
const chainBuffer = 32

// Chain wires the deduplicator, splitter, and rate limiter into the order
// the spec requires: deduplicator -> oversize splitter -> rate limiter.
type Chain struct {
	dedup    *Deduplicator
	splitter *Splitter
	limiter  *RateLimiter
}

// NewChain builds the standard three-stage outbound chain sharing limiter
// across a pool.
func NewChain(limiter *ratelimit.Limiter, lineLimit int) *Chain {
	s := NewSplitter()
	if lineLimit > 0 {
		s.Limit = lineLimit
	}
	return &Chain{
		dedup:    NewDeduplicator(),
		splitter: s,
		limiter:  NewRateLimiter(limiter),
	}
}

// Run starts every stage's goroutine wired in series and returns the
// channel the connection driver should read ready-to-write Submissions
// from. The returned channel closes once in is closed and every stage has
// drained.
func (c *Chain) Run(ctx context.Context, in <-chan Submission) <-chan Submission {
	afterDedup := make(chan Submission, chainBuffer)
	afterSplit := make(chan Submission, chainBuffer)
	out := make(chan Submission, chainBuffer)

	go c.dedup.Run(ctx, in, afterDedup)
	go c.splitter.Run(ctx, afterDedup, afterSplit)
	go c.limiter.Run(ctx, afterSplit, out)

	return out
}
