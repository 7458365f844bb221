package middleware

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kappopher/twitchchat/irc"
)

func TestSplitter_NoSplitNeeded(t *testing.T) {
	s := NewSplitter()
	got := runStage(t, s, []irc.Command{irc.NewPrivMsg("#c", "hello")})
	if len(got) != 1 || got[0].Message != "hello" {
		t.Fatalf("got %+v", got)
	}
}

func TestSplitter_OversizeSplitAdditivity(t *testing.T) {
	s := &Splitter{Limit: 500}
	text := strings.Repeat("a", 550)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan Submission, 1)
	out := make(chan Submission, 8)
	result := make(chan irc.Response, 1)
	in <- Submission{Command: irc.NewPrivMsg("#c", text), Result: result}
	close(in)

	go s.Run(ctx, in, out)

	var chunks []irc.Command
	for sub := range out {
		chunks = append(chunks, sub.Command)
		// Acknowledge each chunk the way the connection's writer would.
		sub.Result <- irc.Response{Kind: irc.Ok}
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Message) != 500 || len(chunks[1].Message) != 50 {
		t.Fatalf("chunk lengths = %d, %d", len(chunks[0].Message), len(chunks[1].Message))
	}
	if chunks[0].Message+chunks[1].Message != text {
		t.Fatalf("chunks do not concatenate back to the original text")
	}

	select {
	case resp := <-result:
		if resp.Err != nil {
			t.Errorf("unexpected error completing split: %v", resp.Err)
		}
	case <-time.After(time.Second):
		t.Fatalf("parent result never completed")
	}
}

func TestSplitter_WhisperBudgetAccountsForPrefix(t *testing.T) {
	s := &Splitter{Limit: 20}
	cmd := irc.NewWhisper("someone", strings.Repeat("b", 30))
	chunks := s.split(cmd)
	if len(chunks) < 2 {
		t.Fatalf("expected whisper to split under the reduced budget, got %d chunks", len(chunks))
	}
	budget := 20 - len("/w someone ")
	for i, c := range chunks {
		if len(c.Message) > budget {
			t.Errorf("chunk %d length %d exceeds whisper budget %d", i, len(c.Message), budget)
		}
	}
}

func TestSplitter_DoesNotSplitUTF8Codepoints(t *testing.T) {
	s := &Splitter{Limit: 3}
	text := "aébéc" // interleaved multi-byte runes, 5 runes total
	chunks := s.split(irc.NewPrivMsg("#c", text))
	var rebuilt string
	for _, c := range chunks {
		rebuilt += c.Message
		for _, r := range c.Message {
			if r == '�' {
				t.Fatalf("chunk contains a replacement rune: split a codepoint")
			}
		}
	}
	if rebuilt != text {
		t.Fatalf("rebuilt = %q, want %q", rebuilt, text)
	}
}
