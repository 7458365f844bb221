package middleware

import (
	"context"
	"fmt"

	"github.com/kappopher/twitchchat/irc"
)

// DefaultLineLimit is the maximum message length the splitter allows
// through unsplit.
const DefaultLineLimit = 500

// Splitter breaks a PRIVMSG or Whisper whose message exceeds the configured
// line limit into several sub-messages, split on UTF-8 codepoint
// boundaries. The original response slot resolves with the last chunk's
// result once every chunk has resolved, or, as soon as a chunk result
// carries an error, with that result. Chunks already handed downstream are
// not withdrawn after such an error and are still sent.
type Splitter struct {
	Limit int
}

// NewSplitter returns a Splitter using DefaultLineLimit.
func NewSplitter() *Splitter {
	return &Splitter{Limit: DefaultLineLimit}
}

// Run implements Stage.
func (s *Splitter) Run(ctx context.Context, in <-chan Submission, out chan<- Submission) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case sub, ok := <-in:
			if !ok {
				return
			}
			if !s.forward(ctx, sub, out) {
				return
			}
		}
	}
}

func (s *Splitter) forward(ctx context.Context, sub Submission, out chan<- Submission) bool {
	chunks := s.split(sub.Command)
	if len(chunks) <= 1 {
		select {
		case out <- sub:
			return true
		case <-ctx.Done():
			return false
		}
	}

	results := make(chan irc.Response, len(chunks))
	for _, chunk := range chunks {
		child := Submission{Command: chunk, Result: results}
		select {
		case out <- child:
		case <-ctx.Done():
			return false
		}
	}

	go s.joinResults(sub, len(chunks), results)
	return true
}

// joinResults waits for every chunk's result and resolves the parent slot
// with the last one, or stops waiting at the first result with a non-nil Err
// and resolves the parent with that result.
func (s *Splitter) joinResults(parent Submission, n int, results chan irc.Response) {
	var last irc.Response
	for i := 0; i < n; i++ {
		resp, ok := <-results
		if !ok {
			break
		}
		last = resp
		if resp.Err != nil {
			break
		}
	}
	complete(parent, last)
}

// split returns the sub-commands chunks should be sent as. A single-element
// slice means no splitting was necessary.
func (s *Splitter) split(cmd irc.Command) []irc.Command {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLineLimit
	}

	switch cmd.Kind {
	case irc.CmdPrivMsg:
		return splitMessage(cmd.Message, limit, func(chunk string) irc.Command {
			c := cmd
			c.Message = chunk
			return c
		})
	case irc.CmdWhisper:
		budget := limit - len(fmt.Sprintf("/w %s ", cmd.Recipient))
		if budget <= 0 {
			budget = limit
		}
		return splitMessage(cmd.Message, budget, func(chunk string) irc.Command {
			c := cmd
			c.Message = chunk
			return c
		})
	default:
		return []irc.Command{cmd}
	}
}

// splitMessage divides text into chunks of at most limit runes, calling
// build to turn each chunk back into a full Command.
func splitMessage(text string, limit int, build func(string) irc.Command) []irc.Command {
	runes := []rune(text)
	if len(runes) <= limit {
		return []irc.Command{build(text)}
	}

	var out []irc.Command
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, build(string(runes[start:end])))
	}
	return out
}
