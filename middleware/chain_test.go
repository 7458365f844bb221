package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/ratelimit"
)

func TestChain_PassesSubmissionThroughEveryStage(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Unlimited())
	chain := NewChain(limiter, 500)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan Submission, 1)
	result := make(chan irc.Response, 1)
	in <- Submission{Command: irc.NewPrivMsg("#c", "hello"), Result: result}
	close(in)

	out := chain.Run(ctx, in)

	select {
	case sub, ok := <-out:
		if !ok {
			t.Fatalf("chain closed before emitting a submission")
		}
		if sub.Command.Message != "hello" {
			t.Errorf("got %q", sub.Command.Message)
		}
	case <-time.After(time.Second):
		t.Fatalf("chain did not emit a submission")
	}
}

func TestChain_ClosesOutputWhenInputCloses(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Unlimited())
	chain := NewChain(limiter, 500)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan Submission)
	close(in)
	out := chain.Run(ctx, in)

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed output channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("output channel never closed")
	}
}
