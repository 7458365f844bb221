package irc

import "testing"

func TestTags_Badges(t *testing.T) {
	tags := Tags{"badges": "moderator/1,subscriber/24"}
	badges, err := tags.Badges()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(badges) != 2 {
		t.Fatalf("got %v", badges)
	}
	if badges[0] != (Badge{Name: "moderator", Version: "1"}) {
		t.Errorf("badges[0] = %+v", badges[0])
	}
	if !tags.HasBadge("subscriber") {
		t.Errorf("expected HasBadge(subscriber) true")
	}
	if tags.HasBadge("vip") {
		t.Errorf("expected HasBadge(vip) false")
	}
}

func TestTags_Emotes(t *testing.T) {
	tags := Tags{"emotes": "25:0-4,6-10/1902:12-16"}
	emotes, err := tags.Emotes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emotes) != 2 {
		t.Fatalf("got %v", emotes)
	}
	if emotes[0].ID != "25" || len(emotes[0].Ranges) != 2 {
		t.Errorf("emotes[0] = %+v", emotes[0])
	}
	if emotes[0].Ranges[0] != (EmoteRange{Start: 0, End: 4}) {
		t.Errorf("range[0] = %+v", emotes[0].Ranges[0])
	}
	if emotes[1].ID != "1902" {
		t.Errorf("emotes[1] = %+v", emotes[1])
	}
}

func TestTags_EmotesMalformed(t *testing.T) {
	tags := Tags{"emotes": "25:not-a-range"}
	if _, err := tags.Emotes(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTags_EmoteSets(t *testing.T) {
	tags := Tags{"emote-sets": "0,33,42"}
	sets, err := tags.EmoteSets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 33, 42}
	if len(sets) != len(want) {
		t.Fatalf("got %v", sets)
	}
	for i := range want {
		if sets[i] != want[i] {
			t.Errorf("sets[%d] = %d, want %d", i, sets[i], want[i])
		}
	}
}

func TestTags_ModAndBool(t *testing.T) {
	tags := Tags{"mod": "1", "subscriber": "0"}
	if !tags.Mod() {
		t.Errorf("expected mod true")
	}
	if tags.Bool("subscriber") {
		t.Errorf("expected subscriber false")
	}
}

func TestTags_TmiSentTS(t *testing.T) {
	tags := Tags{"tmi-sent-ts": "1530129959808"}
	ts, err := tags.TmiSentTS()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 1530129959808 {
		t.Errorf("ts = %d", ts)
	}
}

func TestTags_TmiSentTSMalformed(t *testing.T) {
	tags := Tags{"tmi-sent-ts": "not-a-number"}
	if _, err := tags.TmiSentTS(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTags_MsgParams(t *testing.T) {
	tags := Tags{
		"msg-id":                 "raid",
		"msg-param-viewerCount":  "15",
		"msg-param-displayName":  "SomeRaider",
		"unrelated":              "x",
	}
	params := tags.MsgParams()
	if params["viewerCount"] != "15" || params["displayName"] != "SomeRaider" {
		t.Errorf("got %v", params)
	}
	if _, ok := params["unrelated"]; ok {
		t.Errorf("did not expect unrelated key to leak through")
	}
}
