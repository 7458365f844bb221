package irc

import "strings"

// ParseMessage parses a single UTF-8 IRC line (no trailing CRLF) into a
// Message. It never panics; malformed input yields a *ParseError.
//
// Grammar: [@tags] [:prefix] command [params...] [:trailing]
func ParseMessage(raw string) (*Message, error) {
	msg := &Message{Raw: raw, Tags: Tags{}}

	if raw == "" {
		return nil, &ParseError{Raw: raw, Pos: 0, Msg: "empty line"}
	}

	rest := raw

	if rest[0] == '@' {
		end := strings.IndexByte(rest, ' ')
		if end == -1 {
			return nil, &ParseError{Raw: raw, Pos: 0, Msg: "tag block not terminated"}
		}
		msg.Tags = parseTags(rest[1:end])
		rest = strings.TrimLeft(rest[end:], " ")
	}

	if len(rest) > 0 && rest[0] == ':' {
		end := strings.IndexByte(rest, ' ')
		var prefixStr string
		if end == -1 {
			prefixStr = rest[1:]
			rest = ""
		} else {
			prefixStr = rest[1:end]
			rest = strings.TrimLeft(rest[end:], " ")
		}
		msg.Prefix = parsePrefix(prefixStr)
	}

	if rest == "" {
		return nil, &ParseError{Raw: raw, Pos: len(raw), Msg: "missing command"}
	}

	end := strings.IndexByte(rest, ' ')
	var command string
	if end == -1 {
		command = rest
		rest = ""
	} else {
		command = rest[:end]
		rest = strings.TrimLeft(rest[end:], " ")
	}

	if !isValidCommand(command) {
		return nil, &ParseError{Raw: raw, Pos: len(raw) - len(rest), Msg: "invalid command token " + command}
	}
	msg.Command = command

	for rest != "" {
		if rest[0] == ':' {
			msg.Trailing = rest[1:]
			msg.HasTrailing = true
			break
		}
		end := strings.IndexByte(rest, ' ')
		if end == -1 {
			msg.Params = append(msg.Params, rest)
			break
		}
		msg.Params = append(msg.Params, rest[:end])
		rest = strings.TrimLeft(rest[end:], " ")
	}

	return msg, nil
}

// ParseStream parses a buffer that may contain multiple \r\n-separated
// lines, returning every well-formed message parsed so far, the unconsumed
// suffix (a partial line with no terminating \r\n yet), and the first parse
// error encountered, if any. Parsing stops at the first error; messages
// parsed before it are still returned.
func ParseStream(data string) (messages []*Message, suffix string, err error) {
	lines := strings.Split(data, "\r\n")
	suffix = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	for _, line := range lines {
		if line == "" {
			continue
		}
		msg, perr := ParseMessage(line)
		if perr != nil {
			return messages, suffix, perr
		}
		messages = append(messages, msg)
	}
	return messages, suffix, nil
}

func parsePrefix(s string) *Prefix {
	bang := strings.IndexByte(s, '!')
	at := strings.IndexByte(s, '@')
	switch {
	case bang != -1 && at != -1 && at > bang:
		return &Prefix{Nick: s[:bang], User: s[bang+1 : at], Host: s[at+1:]}
	case bang != -1:
		return &Prefix{Nick: s[:bang], User: s[bang+1:]}
	case at != -1:
		return &Prefix{Nick: s[:at], Host: s[at+1:]}
	default:
		return &Prefix{Server: s}
	}
}

func isValidCommand(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 3 && isDigits(s) {
		return true
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseTags parses an IRCv3 `k=v;k=v` tag block, applying escape decoding
// per-value (\: -> ;, \s -> space, \\ -> \, \r, \n).
func parseTags(block string) Tags {
	tags := Tags{}
	if block == "" {
		return tags
	}
	for _, pair := range strings.Split(block, ";") {
		if pair == "" {
			continue
		}
		if eq := strings.IndexByte(pair, '='); eq != -1 {
			tags[pair[:eq]] = unescapeTag(pair[eq+1:])
		} else {
			tags[pair] = ""
		}
	}
	return tags
}

func unescapeTag(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case ':':
				b.WriteByte(';')
			case 's':
				b.WriteByte(' ')
			case '\\':
				b.WriteByte('\\')
			case 'r':
				b.WriteByte('\r')
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
