package irc

import (
	"fmt"
	"strconv"
	"strings"
)

// Tags is the decoded IRCv3 tag block of a message, keyed by tag name with
// escape sequences already resolved. Typed accessors decode individual tags
// on demand and report a TagError for a value that doesn't match the tag's
// expected shape.
type Tags map[string]string

// TagError reports a tag present but not parseable in its expected shape.
type TagError struct {
	Tag   string
	Value string
	Cause error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("irc: tag %q has unparseable value %q: %v", e.Tag, e.Value, e.Cause)
}

func (e *TagError) Unwrap() error { return e.Cause }

// Badge is one entry of a badges/badge-info tag (e.g. "moderator/1").
type Badge struct {
	Name    string
	Version string
}

// EmoteRange is one [Start,End] codepoint-index occurrence of an emote.
type EmoteRange struct {
	Start int
	End   int
}

// Emote is one emote_id with every range it occurs at in the message text.
type Emote struct {
	ID     string
	Ranges []EmoteRange
}

func parseBadgeList(raw string) []Badge {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	badges := make([]Badge, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		name, version, _ := strings.Cut(part, "/")
		badges = append(badges, Badge{Name: name, Version: version})
	}
	return badges
}

// Badges decodes the "badges" tag. It never fails: a badge entry with no
// "/version" suffix simply decodes with an empty Version.
func (t Tags) Badges() ([]Badge, error) { return parseBadgeList(t["badges"]), nil }

// BadgeInfo decodes the "badge-info" tag (same shape as badges).
func (t Tags) BadgeInfo() ([]Badge, error) { return parseBadgeList(t["badge-info"]), nil }

// HasBadge reports whether a named badge (e.g. "moderator", "vip",
// "broadcaster") is present, regardless of version.
func (t Tags) HasBadge(name string) bool {
	badges, _ := t.Badges()
	for _, b := range badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Emotes decodes the "emotes" tag: `id:start-end,start-end/id:start-end`.
func (t Tags) Emotes() ([]Emote, error) {
	raw := t["emotes"]
	if raw == "" {
		return nil, nil
	}
	var emotes []Emote
	for _, part := range strings.Split(raw, "/") {
		if part == "" {
			continue
		}
		id, ranges, ok := strings.Cut(part, ":")
		if !ok {
			return nil, &TagError{Tag: "emotes", Value: raw, Cause: fmt.Errorf("missing ':' in %q", part)}
		}
		e := Emote{ID: id}
		for _, r := range strings.Split(ranges, ",") {
			startStr, endStr, ok := strings.Cut(r, "-")
			if !ok {
				return nil, &TagError{Tag: "emotes", Value: raw, Cause: fmt.Errorf("missing '-' in range %q", r)}
			}
			start, err := strconv.Atoi(startStr)
			if err != nil {
				return nil, &TagError{Tag: "emotes", Value: raw, Cause: err}
			}
			end, err := strconv.Atoi(endStr)
			if err != nil {
				return nil, &TagError{Tag: "emotes", Value: raw, Cause: err}
			}
			e.Ranges = append(e.Ranges, EmoteRange{Start: start, End: end})
		}
		emotes = append(emotes, e)
	}
	return emotes, nil
}

// EmoteSets decodes the "emote-sets" tag into a list of set ids.
func (t Tags) EmoteSets() ([]int, error) {
	raw := t["emote-sets"]
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	sets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &TagError{Tag: "emote-sets", Value: raw, Cause: err}
		}
		sets = append(sets, n)
	}
	return sets, nil
}

// Mod reports the boolean "mod" tag ("1" => true).
func (t Tags) Mod() bool { return t["mod"] == "1" }

// Bool decodes an arbitrary "0"/"1" tag.
func (t Tags) Bool(key string) bool { return t[key] == "1" }

// Int decodes an arbitrary integer tag, defaulting to 0 when absent.
func (t Tags) Int(key string) (int, error) {
	v, ok := t[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &TagError{Tag: key, Value: v, Cause: err}
	}
	return n, nil
}

// TmiSentTS decodes the "tmi-sent-ts" tag as a millisecond Unix timestamp.
func (t Tags) TmiSentTS() (uint64, error) {
	v, ok := t["tmi-sent-ts"]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &TagError{Tag: "tmi-sent-ts", Value: v, Cause: err}
	}
	return n, nil
}

// Bits decodes the "bits" tag, defaulting to 0 when absent.
func (t Tags) Bits() (int, error) { return t.Int("bits") }

// BanDuration decodes the "ban-duration" tag, defaulting to 0 (permanent)
// when absent.
func (t Tags) BanDuration() (int, error) { return t.Int("ban-duration") }

// TargetMsgID returns the "target-msg-id" tag used by CLEARMSG.
func (t Tags) TargetMsgID() string { return t["target-msg-id"] }

// MsgParams extracts every "msg-param-*" tag into a map keyed by the
// suffix after "msg-param-", as USERNOTICE carries its type-specific data.
func (t Tags) MsgParams() map[string]string {
	params := make(map[string]string)
	for k, v := range t {
		if rest, ok := strings.CutPrefix(k, "msg-param-"); ok {
			params[rest] = v
		}
	}
	return params
}
