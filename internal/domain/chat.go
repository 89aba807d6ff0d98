package domain

import "strings"

// Chat roles accepted by the generative API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one text fragment of a chat turn.
type Part struct {
	Text string `json:"text"`
}

// ChatTurn is a single role-tagged message.
type ChatTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTurn builds a single-part turn.
func NewTurn(role, text string) ChatTurn {
	return ChatTurn{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates every part of the turn.
func (t ChatTurn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ChatSettings steer the chat assistant.
type ChatSettings struct {
	Persona     string  `json:"persona"`
	Tone        string  `json:"tone"`
	Temperature float64 `json:"temperature"`
}

// DefaultChatSettings returns the settings used before the user saves any.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		Persona:     "Helpful Assistant",
		Tone:        "Neutral",
		Temperature: 0.7,
	}
}

// Normalize fills blank labels with defaults and clamps temperature to [0, 1].
func (s ChatSettings) Normalize() ChatSettings {
	def := DefaultChatSettings()
	if s.Persona == "" {
		s.Persona = def.Persona
	}
	if s.Tone == "" {
		s.Tone = def.Tone
	}
	switch {
	case s.Temperature < 0:
		s.Temperature = 0
	case s.Temperature > 1:
		s.Temperature = 1
	}
	return s
}

// CloneHistory copies a history slice so callers cannot alias store internals.
func CloneHistory(h []ChatTurn) []ChatTurn {
	if h == nil {
		return []ChatTurn{}
	}
	out := make([]ChatTurn, len(h))
	for i, t := range h {
		parts := make([]Part, len(t.Parts))
		copy(parts, t.Parts)
		out[i] = ChatTurn{Role: t.Role, Parts: parts}
	}
	return out
}
