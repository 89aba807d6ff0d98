package domain

// PromptIdeas are the structured suggestions for the prompt builder form.
type PromptIdeas struct {
	Audience  string   `json:"audience"`
	Features  []string `json:"features"`
	Framework string   `json:"framework"`
	Tone      string   `json:"tone"`
	Style     string   `json:"style"`
}

// PromptDetails is the full prompt builder form.
type PromptDetails struct {
	Description string
	PromptIdeas
}
