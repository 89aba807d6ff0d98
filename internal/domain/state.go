package domain

// AppState is the single record owned by a device's state store.
type AppState struct {
	CurrentView  View
	CurrentUser  *User
	Credits      int
	SavedPrompts []SavedPrompt
	ChatHistory  []ChatTurn
	ChatSettings ChatSettings

	// PromptForCodeBuilder carries a finished prompt into the code builder.
	// It is consumed once and never persisted.
	PromptForCodeBuilder string
}

// DefaultAppState is the logged-out, zero-credit starting point.
func DefaultAppState() AppState {
	return AppState{
		CurrentView:  ViewLanding,
		SavedPrompts: []SavedPrompt{},
		ChatHistory:  []ChatTurn{},
		ChatSettings: DefaultChatSettings(),
	}
}

// LoggedIn reports whether a session is present.
func (s AppState) LoggedIn() bool {
	return s.CurrentUser != nil
}

// Clone returns a deep copy.
func (s AppState) Clone() AppState {
	out := s
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	out.SavedPrompts = make([]SavedPrompt, len(s.SavedPrompts))
	copy(out.SavedPrompts, s.SavedPrompts)
	out.ChatHistory = CloneHistory(s.ChatHistory)
	return out
}
