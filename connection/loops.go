package connection

import (
	"context"
	"time"

	"github.com/kappopher/twitchchat/irc"
	"github.com/kappopher/twitchchat/middleware"
	"github.com/kappopher/twitchchat/transport"
)

// readLoop implements spec.md §4.F step 6(a): read frames, classify every
// line, handle internally-significant events, and forward the rest.
func (c *Conn) readLoop(ctx context.Context, tp Transport, internalOut chan<- irc.Command, pongReceived chan<- struct{}) error {
	for {
		data, err := tp.ReadFrame()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			// spec.md §4.C: a close frame emits a Close event and ends the
			// inbound stream; any other I/O error emits a terminal error
			// item. Either way the caller treats this as a reconnect
			// trigger once the event has been forwarded.
			if transport.IsCloseError(err) {
				c.forward(ctx, irc.Event{Kind: irc.KindClose})
			} else {
				c.forward(ctx, irc.Event{Kind: irc.KindError, Err: err})
			}
			return err
		}

		messages, suffix, parseErr := irc.ParseStream(string(data))
		if parseErr == nil && suffix != "" {
			// A frame is itself a message boundary, so a last line without
			// a trailing CRLF is complete rather than partial.
			var last *irc.Message
			if last, parseErr = irc.ParseMessage(suffix); parseErr == nil {
				messages = append(messages, last)
			}
		}
		if parseErr != nil {
			c.cfg.Logger.Warn().Err(parseErr).Msg("dropping unparseable frame")
		}

		for _, msg := range messages {
			ev, classifyErr := irc.Classify(msg)
			if classifyErr != nil {
				c.cfg.Logger.Warn().Err(classifyErr).Str("raw", msg.Raw).Msg("unrecognized IRC message")
				c.forward(ctx, irc.AsErrorEvent(msg, classifyErr))
				continue
			}
			c.handleEvent(ctx, ev, internalOut, pongReceived)
		}
		if parseErr != nil {
			c.forward(ctx, irc.Event{Kind: irc.KindError, Raw: string(data), Err: parseErr})
		}
	}
}

// handleEvent applies spec.md §4.F steps 7-10 and forwards everything that
// isn't purely internal plumbing.
func (c *Conn) handleEvent(ctx context.Context, ev irc.Event, internalOut chan<- irc.Command, pongReceived chan<- struct{}) {
	switch ev.Kind {
	case irc.KindPing:
		select {
		case internalOut <- irc.NewPong(ev.Message):
		case <-ctx.Done():
		}
		return

	case irc.KindPong:
		select {
		case pongReceived <- struct{}{}:
		default:
		}
		return

	case irc.KindUserState:
		if ev.Tags.HasBadge("moderator") || ev.Tags.HasBadge("broadcaster") || ev.Tags.HasBadge("vip") {
			c.cfg.Limiter.SetUnlimited(ev.Channel)
		}

	case irc.KindConnectMessage:
		if ev.ReplyCode == "376" {
			c.state.Set(Active)
		}

	case irc.KindJoin:
		if ev.Sender == c.cfg.Username {
			c.setJoined(ev.Channel, true)
		}

	case irc.KindPart:
		if ev.Sender == c.cfg.Username {
			c.setJoined(ev.Channel, false)
		}
	}

	c.forward(ctx, ev)
}

func (c *Conn) forward(ctx context.Context, ev irc.Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// writeLoop implements spec.md §4.F step 6(b): drain the outbound
// middleware chain and the internal command channel (heartbeat PING,
// auto-PONG) onto the wire. A single goroutine owns the transport's write
// side so concurrent writes never race.
func (c *Conn) writeLoop(ctx context.Context, tp Transport, chainOut <-chan middleware.Submission, internalOut <-chan irc.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd, ok := <-internalOut:
			if !ok {
				return nil
			}
			line, err := cmd.Serialize()
			if err != nil {
				continue
			}
			if err := tp.WriteFrame(line); err != nil {
				return err
			}

		case sub, ok := <-chainOut:
			if !ok {
				return nil
			}
			if err := c.writeSubmission(tp, sub); err != nil {
				return err
			}
		}
	}
}

func (c *Conn) writeSubmission(tp Transport, sub middleware.Submission) error {
	if sub.Command.ManagedByPool() {
		completeResponse(sub, irc.Response{Kind: irc.UnsupportedInPool})
		return nil
	}
	if sub.Command.Kind == irc.CmdClose {
		completeResponse(sub, irc.Response{Kind: irc.Ok})
		c.Close()
		return errClosed
	}

	line, err := sub.Command.Serialize()
	if err != nil {
		completeResponse(sub, irc.Response{Kind: irc.ConnectionClosed, Err: err})
		return nil
	}

	if err := tp.WriteFrame(line); err != nil {
		completeResponse(sub, irc.Response{Kind: irc.ConnectionClosed, Err: err})
		return err
	}

	switch sub.Command.Kind {
	case irc.CmdJoin:
		c.setJoined(sub.Command.Channel, true)
	case irc.CmdPart:
		c.setJoined(sub.Command.Channel, false)
	}

	completeResponse(sub, irc.Response{Kind: irc.Ok})
	return nil
}

func completeResponse(sub middleware.Submission, resp irc.Response) {
	if sub.Result == nil {
		return
	}
	select {
	case sub.Result <- resp:
	default:
	}
}

// heartbeatLoop implements spec.md §4.F's heartbeat: an IRC PING every
// HeartbeatInterval, terminating the run loop if no PONG arrives before the
// next tick.
func (c *Conn) heartbeatLoop(ctx context.Context, internalOut chan<- irc.Command, pongReceived <-chan struct{}) error {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			select {
			case internalOut <- irc.NewPing():
			case <-ctx.Done():
				return nil
			}

			select {
			case <-pongReceived:
			case <-time.After(c.cfg.HeartbeatInterval):
				return errHeartbeatTimeout
			case <-ctx.Done():
				return nil
			}
		}
	}
}
