package irc

import "testing"

func TestCommand_SerializePrivMsg(t *testing.T) {
	cmd := NewPrivMsg("#dallas", "hello")
	line, err := cmd.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "PRIVMSG #dallas :hello" {
		t.Errorf("got %q", line)
	}
}

func TestCommand_SerializeReply(t *testing.T) {
	cmd := NewReply("dallas", "abc-123", "hello")
	line, err := cmd.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "@reply-parent-msg-id=abc-123 PRIVMSG #dallas :hello"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestCommand_SerializeWhisper(t *testing.T) {
	cmd := NewWhisper("ronni", "psst")
	line, err := cmd.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "PRIVMSG #jtv :/w ronni psst"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestCommand_SerializeJoinPart(t *testing.T) {
	if line, _ := NewJoin("#dallas").Serialize(); line != "JOIN #dallas" {
		t.Errorf("join: got %q", line)
	}
	if line, _ := NewPart("dallas").Serialize(); line != "PART #dallas" {
		t.Errorf("part: got %q", line)
	}
}

func TestCommand_SerializeNickPass(t *testing.T) {
	if line, _ := NewNick("justinfan123").Serialize(); line != "NICK justinfan123" {
		t.Errorf("nick: got %q", line)
	}
	if line, _ := NewPass("oauth:token").Serialize(); line != "PASS oauth:token" {
		t.Errorf("pass: got %q", line)
	}
}

func TestCommand_SerializeCapRequest(t *testing.T) {
	cmd := NewCapRequest("twitch.tv/tags", "twitch.tv/commands", "twitch.tv/membership")
	line, err := cmd.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestCommand_SerializePingPong(t *testing.T) {
	if line, _ := NewPing().Serialize(); line != "PING :tmi.twitch.tv" {
		t.Errorf("ping: got %q", line)
	}
	if line, _ := NewPong("tmi.twitch.tv").Serialize(); line != "PONG :tmi.twitch.tv" {
		t.Errorf("pong: got %q", line)
	}
}

func TestCommand_SerializeCloseFails(t *testing.T) {
	if _, err := NewClose().Serialize(); err == nil {
		t.Fatalf("expected error serializing Close")
	}
}

func TestCommand_ManagedByPool(t *testing.T) {
	managed := []Command{NewNick("n"), NewPass("p"), NewCapRequest("c")}
	for _, c := range managed {
		if !c.ManagedByPool() {
			t.Errorf("%v: expected ManagedByPool true", c.Kind)
		}
	}
	unmanaged := []Command{NewPrivMsg("#c", "m"), NewWhisper("r", "m"), NewJoin("#c"), NewPart("#c"), NewPing(), NewPong("t"), NewClose()}
	for _, c := range unmanaged {
		if c.ManagedByPool() {
			t.Errorf("%v: expected ManagedByPool false", c.Kind)
		}
	}
}

func TestCommand_RateLimited(t *testing.T) {
	limited := []Command{NewPrivMsg("#c", "m"), NewWhisper("r", "m")}
	for _, c := range limited {
		if !c.RateLimited() {
			t.Errorf("%v: expected RateLimited true", c.Kind)
		}
	}
	unlimited := []Command{NewJoin("#c"), NewPart("#c"), NewNick("n"), NewPass("p"), NewCapRequest("c"), NewPing(), NewPong("t"), NewClose()}
	for _, c := range unlimited {
		if c.RateLimited() {
			t.Errorf("%v: expected RateLimited false", c.Kind)
		}
	}
}

func TestResponseKind_String(t *testing.T) {
	tests := map[ResponseKind]string{
		Ok:                  "Ok",
		NotJoined:           "NotJoined",
		UnsupportedInPool:   "UnsupportedInPool",
		ConnectionClosed:    "ConnectionClosed",
		NewConnectionFailed: "NewConnectionFailed",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
