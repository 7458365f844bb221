package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_DefaultReady(t *testing.T) {
	l := New(Global())
	if !l.Ready("dallas") {
		t.Fatalf("expected first message to be ready")
	}
}

func TestLimiter_PerChannelIndependence(t *testing.T) {
	l := New(Global())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "dallas"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// dallas just spent its burst-of-one token; a different channel must be
	// unaffected.
	if !l.Ready("onlyhour") {
		t.Fatalf("expected onlyhour to be independently rate limited")
	}
}

func TestLimiter_SetUnlimitedBypassesThrottle(t *testing.T) {
	l := New(Channel(30))
	l.SetUnlimited("dallas")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx, "dallas"); err != nil {
			t.Fatalf("unexpected error on iteration %d: %v", i, err)
		}
	}
}

func TestLimiter_SlowModeThrottlesSecondSend(t *testing.T) {
	l := New(Global())
	l.SetLimit("dallas", Channel(60))

	if err := l.Wait(context.Background(), "dallas"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Ready("dallas") {
		t.Fatalf("expected channel to be throttled immediately after a send")
	}
}
