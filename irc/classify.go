package irc

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant of Event a message classified to.
type Kind int

const (
	KindPrivMsg Kind = iota
	KindWhisper
	KindJoin
	KindPart
	KindMode
	KindNames
	KindEndOfNames
	KindClearChat
	KindClearMsg
	KindHost
	KindNotice
	KindReconnect
	KindRoomState
	KindUserNotice
	KindUserState
	KindCapability
	KindConnectMessage
	KindGlobalUserState
	KindPing
	KindPong
	KindClose
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindPrivMsg:
		return "PrivMsg"
	case KindWhisper:
		return "Whisper"
	case KindJoin:
		return "Join"
	case KindPart:
		return "Part"
	case KindMode:
		return "Mode"
	case KindNames:
		return "Names"
	case KindEndOfNames:
		return "EndOfNames"
	case KindClearChat:
		return "ClearChat"
	case KindClearMsg:
		return "ClearMsg"
	case KindHost:
		return "Host"
	case KindNotice:
		return "Notice"
	case KindReconnect:
		return "Reconnect"
	case KindRoomState:
		return "RoomState"
	case KindUserNotice:
		return "UserNotice"
	case KindUserState:
		return "UserState"
	case KindCapability:
		return "Capability"
	case KindConnectMessage:
		return "ConnectMessage"
	case KindGlobalUserState:
		return "GlobalUserState"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindClose:
		return "Close"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is the library's single concrete event type. Every variant carries
// an optional Sender, the raw tag map (Tags, with typed accessors), and a
// payload that is only meaningful for the fields documented under its Kind.
type Event struct {
	Kind   Kind
	Sender string
	Tags   Tags
	Raw    string

	// PrivMsg, Join, Part, ClearChat, ClearMsg, Notice, Host, Names,
	// EndOfNames, RoomState, UserNotice, UserState, Mode: channel name
	// without '#'.
	Channel string

	// PrivMsg, Whisper, UserNotice, ClearChat (cleared user), ClearMsg,
	// Notice: free-text payload.
	Message string

	// Whisper: recipient nick (from Params[0]).
	Recipient string

	// Mode: the mode change token, e.g. "+o" or "-o", and the nick it
	// applies to.
	ModeChange string
	ModeNick   string

	// Names: usernames in this NAMES reply fragment.
	Names []string

	// Host: target channel ("" + HostEnded when hosting stopped).
	HostTarget string
	HostEnded  bool
	// Host: optional viewer count, nil when not provided.
	HostViewers *int

	// Notice, UserNotice: machine-readable type/id (msg-id tag).
	MsgID string

	// ConnectMessage: the numeric reply code (e.g. "001", "376").
	ReplyCode string

	// Capability: the CAP subcommand (e.g. "ACK", "NAK") and the
	// space-separated capability list from the trailing param.
	CapSubcommand string
	Capabilities  []string

	// Error (KindError): a non-hidden error the single-connection driver
	// surfaces to subscribers instead of silently dropping, per spec.md §7:
	// an unrecognized command or wrong parameter count, a parse error, or a
	// transport read error. Tag values are decoded only by the Tags
	// accessors, which return their errors to the caller.
	Err error
}

// AsErrorEvent wraps a classification failure as an Event of KindError so
// the connection driver can forward it to subscribers instead of treating
// an unrecognized command as a fatal condition.
func AsErrorEvent(msg *Message, err error) Event {
	return Event{Kind: KindError, Raw: msg.Raw, Err: err}
}

// ClassifyError reports that a message could not be classified: either its
// command is unrecognized, or its parameter count doesn't match what that
// command requires.
type ClassifyError struct {
	Command string
	Reason  string
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("irc: cannot classify %q: %s", e.Command, e.Reason)
}

// connectMessageCodes are the seven MOTD-family numeric replies Twitch sends
// on successful login, collapsed into one ConnectMessage event per spec.
var connectMessageCodes = map[string]bool{
	"001": true, // RPL_WELCOME
	"002": true, // RPL_YOURHOST
	"003": true, // RPL_CREATED
	"004": true, // RPL_MYINFO
	"372": true, // RPL_MOTD
	"375": true, // RPL_MOTDSTART
	"376": true, // RPL_ENDOFMOTD
}

const (
	rplNamReply   = "353"
	rplEndOfNames = "366"
)

// allParams flattens positional params and the trailing param (if any) into
// one slice, so parameter-count rules can be stated as a single number
// regardless of which Twitch reply packs data positionally vs. trailing.
func allParams(msg *Message) []string {
	if !msg.HasTrailing {
		return msg.Params
	}
	all := make([]string, 0, len(msg.Params)+1)
	all = append(all, msg.Params...)
	return append(all, msg.Trailing)
}

// Classify is a total function from a parsed Message to an Event: every
// recognized command name with a valid parameter count produces an Event;
// every other input produces a *ClassifyError so the caller can log and
// drop it instead of the library guessing at unrecognized traffic.
func Classify(msg *Message) (Event, error) {
	base := Event{Sender: msg.Sender(), Tags: msg.Tags, Raw: msg.Raw}
	p := allParams(msg)

	switch msg.Command {
	case "PRIVMSG":
		if err := exactly(msg, p, 2); err != nil {
			return Event{}, err
		}
		base.Kind = KindPrivMsg
		base.Channel = trimHash(p[0])
		base.Message = p[1]
		return base, nil

	case "WHISPER":
		if err := exactly(msg, p, 2); err != nil {
			return Event{}, err
		}
		base.Kind = KindWhisper
		base.Recipient = p[0]
		base.Message = p[1]
		return base, nil

	case "CLEARMSG":
		if err := exactly(msg, p, 2); err != nil {
			return Event{}, err
		}
		base.Kind = KindClearMsg
		base.Channel = trimHash(p[0])
		base.Message = p[1]
		return base, nil

	case "NOTICE":
		if err := exactly(msg, p, 2); err != nil {
			return Event{}, err
		}
		base.Kind = KindNotice
		base.Channel = trimHash(p[0])
		base.Message = p[1]
		base.MsgID = msg.Tags["msg-id"]
		return base, nil

	case "USERNOTICE":
		if err := exactly(msg, p, 2); err != nil {
			return Event{}, err
		}
		base.Kind = KindUserNotice
		base.Channel = trimHash(p[0])
		base.Message = p[1]
		base.MsgID = msg.Tags["msg-id"]
		return base, nil

	case "MODE":
		if err := exactly(msg, p, 3); err != nil {
			return Event{}, err
		}
		base.Kind = KindMode
		base.Channel = trimHash(p[0])
		base.ModeChange = p[1]
		base.ModeNick = p[2]
		return base, nil

	case "CAP":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindCapability
		base.CapSubcommand = p[len(p)-1]
		if msg.HasTrailing {
			base.Capabilities = strings.Fields(msg.Trailing)
			if len(msg.Params) > 0 {
				base.CapSubcommand = msg.Params[len(msg.Params)-1]
			}
		}
		return base, nil

	case "HOSTTARGET":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindHost
		base.Channel = trimHash(p[0])
		fields := strings.Fields(msg.Trailing)
		if len(fields) == 0 || fields[0] == "-" {
			base.HostEnded = true
		} else {
			base.HostTarget = trimHash(fields[0])
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					base.HostViewers = &n
				}
			}
		}
		return base, nil

	case "JOIN":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindJoin
		base.Channel = trimHash(p[0])
		return base, nil

	case "PART":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindPart
		base.Channel = trimHash(p[0])
		return base, nil

	case "CLEARCHAT":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindClearChat
		base.Channel = trimHash(p[0])
		base.Message = msg.Trailing
		return base, nil

	case "ROOMSTATE":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindRoomState
		base.Channel = trimHash(p[0])
		return base, nil

	case "USERSTATE":
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindUserState
		base.Channel = trimHash(p[0])
		return base, nil

	case "GLOBALUSERSTATE":
		base.Kind = KindGlobalUserState
		return base, nil

	case rplNamReply:
		if err := exactly(msg, p, 4); err != nil {
			return Event{}, err
		}
		base.Kind = KindNames
		base.Channel = trimHash(p[2])
		base.Names = strings.Fields(p[3])
		return base, nil

	case rplEndOfNames:
		if err := atLeast(msg, p, 1); err != nil {
			return Event{}, err
		}
		base.Kind = KindEndOfNames
		// RPL_ENDOFNAMES is "<nick> <channel> :End of /NAMES list".
		channel := p[0]
		if len(p) > 1 {
			channel = p[1]
		}
		base.Channel = trimHash(channel)
		return base, nil

	case "RECONNECT":
		base.Kind = KindReconnect
		return base, nil

	case "PING":
		base.Kind = KindPing
		base.Message = msg.Trailing
		return base, nil

	case "PONG":
		base.Kind = KindPong
		base.Message = msg.Trailing
		return base, nil

	default:
		if connectMessageCodes[msg.Command] {
			base.Kind = KindConnectMessage
			base.ReplyCode = msg.Command
			base.Message = msg.Trailing
			return base, nil
		}
		return Event{}, &ClassifyError{Command: msg.Command, Reason: "unrecognized command"}
	}
}

func exactly(msg *Message, p []string, n int) error {
	if len(p) != n {
		return &ClassifyError{Command: msg.Command, Reason: fmt.Sprintf("requires exactly %d params, got %d", n, len(p))}
	}
	return nil
}

func atLeast(msg *Message, p []string, n int) error {
	if len(p) < n {
		return &ClassifyError{Command: msg.Command, Reason: fmt.Sprintf("requires >= %d params, got %d", n, len(p))}
	}
	return nil
}

func trimHash(s string) string {
	return strings.TrimPrefix(s, "#")
}
