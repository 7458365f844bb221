package middleware

import (
	"context"

	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/ratelimit"
)

// RateLimiter is the final stage of the outbound chain: it blocks a
// rate-limited Submission until its channel's token bucket admits it, then
// forwards it unchanged. Global (non-channel) commands pass straight
// through.
type RateLimiter struct {
	limiter *ratelimit.Limiter
}

// NewRateLimiter wraps an existing ratelimit.Limiter, shared across every
// connection in a pool so slow-mode budgets are enforced pool-wide rather
// than per connection.
func NewRateLimiter(limiter *ratelimit.Limiter) *RateLimiter {
	return &RateLimiter{limiter: limiter}
}

// Run implements Stage.
func (r *RateLimiter) Run(ctx context.Context, in <-chan Submission, out chan<- Submission) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case sub, ok := <-in:
			if !ok {
				return
			}
			if sub.Command.RateLimited() {
				if err := r.limiter.Wait(ctx, sub.Command.Channel); err != nil {
					complete(sub, irc.Response{Kind: irc.ConnectionClosed, Err: err})
					continue
				}
			}
			select {
			case out <- sub:
			case <-ctx.Done():
				return
			}
		}
	}
}
