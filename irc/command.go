package irc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CommandKind identifies which outbound IRC command a Command carries.
type CommandKind int

const (
	CmdPrivMsg CommandKind = iota
	CmdWhisper
	CmdJoin
	CmdPart
	CmdNick
	CmdPass
	CmdCapRequest
	CmdPing
	CmdPong
	CmdClose
)

func (k CommandKind) String() string {
	switch k {
	case CmdPrivMsg:
		return "PrivMsg"
	case CmdWhisper:
		return "Whisper"
	case CmdJoin:
		return "Join"
	case CmdPart:
		return "Part"
	case CmdNick:
		return "Nick"
	case CmdPass:
		return "Pass"
	case CmdCapRequest:
		return "CapRequest"
	case CmdPing:
		return "Ping"
	case CmdPong:
		return "Pong"
	case CmdClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// Command is the outbound command tagged union from spec §3: PrivMsg,
// Whisper, Join, Part, Nick, Pass, CapRequest, Ping, Pong, Close. Only the
// fields documented for a given Kind are populated.
type Command struct {
	Kind CommandKind

	Channel           string // PrivMsg, Join, Part
	Message           string // PrivMsg, Whisper
	ReplyParentMsgID  string // PrivMsg: optional @reply-parent-msg-id tag
	Recipient         string // Whisper
	Nick              string // Nick
	Pass              string // Pass
	Capabilities      []string // CapRequest
	PongToken         string // Pong

	// CorrelationID is a random ID stamped on every Whisper. Each chunk the
	// splitter cuts from a Whisper keeps the same value; the splitter itself
	// joins chunk results through a per-split channel and does not read it.
	CorrelationID string
}

// NewPrivMsg builds a PRIVMSG command to channel.
func NewPrivMsg(channel, message string) Command {
	return Command{Kind: CmdPrivMsg, Channel: trimHash(channel), Message: message}
}

// NewReply builds a PRIVMSG command threaded as a reply to parentMsgID.
func NewReply(channel, parentMsgID, message string) Command {
	return Command{Kind: CmdPrivMsg, Channel: trimHash(channel), Message: message, ReplyParentMsgID: parentMsgID}
}

// NewWhisper builds a whisper to recipient, stamped with a random
// correlation ID (see Command.CorrelationID).
func NewWhisper(recipient, message string) Command {
	return Command{Kind: CmdWhisper, Recipient: recipient, Message: message, CorrelationID: uuid.NewString()}
}

// NewJoin builds a JOIN command.
func NewJoin(channel string) Command { return Command{Kind: CmdJoin, Channel: trimHash(channel)} }

// NewPart builds a PART command.
func NewPart(channel string) Command { return Command{Kind: CmdPart, Channel: trimHash(channel)} }

// NewNick builds a library-managed NICK command.
func NewNick(nick string) Command { return Command{Kind: CmdNick, Nick: nick} }

// NewPass builds a library-managed PASS command.
func NewPass(token string) Command { return Command{Kind: CmdPass, Pass: token} }

// NewCapRequest builds a library-managed CAP REQ command.
func NewCapRequest(caps ...string) Command { return Command{Kind: CmdCapRequest, Capabilities: caps} }

// NewPing builds the heartbeat PING the driver issues every 20s.
func NewPing() Command { return Command{Kind: CmdPing} }

// NewPong builds the PONG issued in reply to a server PING.
func NewPong(token string) Command { return Command{Kind: CmdPong, PongToken: token} }

// NewClose builds the internal directive that tears a connection down.
func NewClose() Command { return Command{Kind: CmdClose} }

// ManagedByPool reports whether a command kind is rejected from user input
// when a pool is in charge of the connection (spec §3: Nick/Pass/CapRequest
// are library-managed).
func (c Command) ManagedByPool() bool {
	switch c.Kind {
	case CmdNick, CmdPass, CmdCapRequest:
		return true
	default:
		return false
	}
}

// Serialize renders a Command as the single IRC line Twitch expects, with
// no trailing CRLF — the WebSocket text frame is the message boundary.
func (c Command) Serialize() (string, error) {
	switch c.Kind {
	case CmdPrivMsg:
		if c.ReplyParentMsgID != "" {
			return fmt.Sprintf("@reply-parent-msg-id=%s PRIVMSG #%s :%s", c.ReplyParentMsgID, c.Channel, c.Message), nil
		}
		return fmt.Sprintf("PRIVMSG #%s :%s", c.Channel, c.Message), nil
	case CmdWhisper:
		// Twitch has no WHISPER wire command for a chat client; whispers are
		// issued as a /w meta-command embedded in a PRIVMSG to #jtv.
		return fmt.Sprintf("PRIVMSG #jtv :/w %s %s", c.Recipient, c.Message), nil
	case CmdJoin:
		return fmt.Sprintf("JOIN #%s", c.Channel), nil
	case CmdPart:
		return fmt.Sprintf("PART #%s", c.Channel), nil
	case CmdNick:
		return "NICK " + c.Nick, nil
	case CmdPass:
		return "PASS " + c.Pass, nil
	case CmdCapRequest:
		return "CAP REQ :" + strings.Join(c.Capabilities, " "), nil
	case CmdPing:
		return "PING :tmi.twitch.tv", nil
	case CmdPong:
		return "PONG :" + c.PongToken, nil
	case CmdClose:
		return "", fmt.Errorf("irc: Close is an internal directive, not a wire command")
	default:
		return "", fmt.Errorf("irc: unknown command kind %v", c.Kind)
	}
}

// RateLimited reports whether a command is subject to per-channel slow-mode
// rate limiting. Internal protocol plumbing (Ping/Pong/Nick/Pass/CapRequest)
// and Close bypass the limiter.
func (c Command) RateLimited() bool {
	return c.Kind == CmdPrivMsg || c.Kind == CmdWhisper
}

// ResponseKind is the outcome of submitting one Command.
type ResponseKind int

const (
	Ok ResponseKind = iota
	NotJoined
	UnsupportedInPool
	ConnectionClosed
	NewConnectionFailed
)

func (r ResponseKind) String() string {
	switch r {
	case Ok:
		return "Ok"
	case NotJoined:
		return "NotJoined"
	case UnsupportedInPool:
		return "UnsupportedInPool"
	case ConnectionClosed:
		return "ConnectionClosed"
	case NewConnectionFailed:
		return "NewConnectionFailed"
	default:
		return "Unknown"
	}
}

// Response is the one-shot result every submitted Command eventually
// receives.
type Response struct {
	Kind ResponseKind
	Err  error
}
