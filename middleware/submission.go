// Package middleware implements the outbound send pipeline: deduplication,
// oversize-message splitting, and per-channel rate limiting, composed as a
// chain of stream transformers that each consume and emit
// (command, response-slot) pairs while preserving per-message
// acknowledgement.
package middleware

import (
	"context"

	"github.com/kappopher/twitchchat/irc"
)

// Submission pairs one outbound Command with the channel its eventual
// Response is delivered on. Result is buffered by at least one so a stage
// can always complete it without blocking on a slow or abandoned caller.
type Submission struct {
	Command irc.Command
	Result  chan<- irc.Response
}

// complete is a convenience for stages that need to finish a Submission
// without forwarding it further down the chain.
func complete(s Submission, resp irc.Response) {
	select {
	case s.Result <- resp:
	default:
	}
}

// Stage is one transformer in the outbound chain. It reads from in until in
// is closed or ctx is done, and must close out before returning so the next
// stage (or the chain's final consumer) can observe end-of-pipeline.
type Stage interface {
	Run(ctx context.Context, in <-chan Submission, out chan<- Submission)
}
