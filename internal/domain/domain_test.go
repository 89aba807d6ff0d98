package domain

import "testing"

func TestParseView(t *testing.T) {
	for _, v := range Views() {
		got, ok := ParseView(string(v))
		if !ok || got != v {
			t.Errorf("ParseView(%q) = %q, %v", v, got, ok)
		}
	}
	if _, ok := ParseView("admin"); ok {
		t.Error("expected unknown view to be rejected")
	}
	if ViewLanding.Authenticated() {
		t.Error("landing must not require a session")
	}
	if !ViewStore.Authenticated() {
		t.Error("store must require a session")
	}
}

func TestChatSettingsNormalize(t *testing.T) {
	got := ChatSettings{Temperature: 3}.Normalize()
	if got.Persona != "Helpful Assistant" || got.Tone != "Neutral" {
		t.Errorf("expected default labels, got %+v", got)
	}
	if got.Temperature != 1 {
		t.Errorf("expected temperature clamped to 1, got %v", got.Temperature)
	}
	if neg := (ChatSettings{Temperature: -0.5}).Normalize(); neg.Temperature != 0 {
		t.Errorf("expected temperature clamped to 0, got %v", neg.Temperature)
	}
}

func TestFindPackage(t *testing.T) {
	p, ok := FindPackage(120)
	if !ok || !p.Popular || p.PriceUSD != 10 {
		t.Fatalf("unexpected package: %+v, %v", p, ok)
	}
	if _, ok := FindPackage(7); ok {
		t.Fatal("expected unknown package to be rejected")
	}
}

func TestAppStateCloneIsDeep(t *testing.T) {
	s := DefaultAppState()
	s.CurrentUser = &User{Name: "Demo", Email: "demo@x.com"}
	s.ChatHistory = []ChatTurn{NewTurn(RoleUser, "hi")}

	c := s.Clone()
	c.CurrentUser.Name = "Other"
	c.ChatHistory[0].Parts[0].Text = "changed"

	if s.CurrentUser.Name != "Demo" {
		t.Error("clone aliased the user")
	}
	if s.ChatHistory[0].Text() != "hi" {
		t.Error("clone aliased chat history parts")
	}
}

func TestChatTurnTextJoinsParts(t *testing.T) {
	tests := []struct {
		parts []Part
		want  string
	}{
		{nil, ""},
		{[]Part{{Text: "one"}}, "one"},
		{[]Part{{Text: "a"}, {Text: "b"}, {Text: "c"}}, "abc"},
	}
	for _, tt := range tests {
		turn := ChatTurn{Role: RoleModel, Parts: tt.parts}
		if got := turn.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}
