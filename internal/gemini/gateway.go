package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
)

// Generator issues a single generateContent call.
type Generator interface {
	GenerateContent(ctx context.Context, model string, req Request) (string, error)
}

// Models selects which model serves each operation.
type Models struct {
	Flash string
	Pro   string
}

// Gateway exposes the generative operations the application uses. Every
// call is independent: no retries, no caching, no streaming. Failures are
// wrapped with ErrRequestFailed.
type Gateway struct {
	gen    Generator
	models Models
}

// NewGateway creates a gateway over gen.
func NewGateway(gen Generator, models Models) *Gateway {
	return &Gateway{gen: gen, models: models}
}

// ChatTurn sends the full history and returns the model's reply.
func (g *Gateway) ChatTurn(ctx context.Context, history []domain.ChatTurn, settings domain.ChatSettings) (string, error) {
	contents := make([]Content, 0, len(history))
	for _, turn := range history {
		parts := make([]Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, Part{Text: p.Text})
		}
		contents = append(contents, Content{Role: turn.Role, Parts: parts})
	}

	temp := settings.Temperature
	req := Request{
		Contents:         contents,
		SystemInstruct:   systemInstruction(personaInstruction(settings.Persona, settings.Tone)),
		GenerationConfig: &GenerationConfig{Temperature: &temp},
	}
	return g.call(ctx, "chat_turn", g.models.Flash, req)
}

// SuggestIdeas asks for structured suggestions for an app description.
func (g *Gateway) SuggestIdeas(ctx context.Context, description string) (domain.PromptIdeas, error) {
	prompt := fmt.Sprintf(
		`Based on the app description "%s", generate a JSON object with suggestions for building a detailed prompt. `+
			`The JSON should have keys: 'audience' (string), 'features' (array of strings), `+
			`'framework' (string, e.g., 'React', 'Vue', 'HTML/CSS/JS'), 'tone' (string), and 'style' (string).`,
		description)

	req := Request{
		Contents: userContent(prompt),
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   ideasSchema(),
		},
	}

	text, err := g.call(ctx, "suggest_ideas", g.models.Flash, req)
	if err != nil {
		return domain.PromptIdeas{}, err
	}

	ideas, err := ParseIdeas(text)
	if err != nil {
		slog.Warn("AI returned malformed ideas", "operation", "suggest_ideas", "error", err)
		return domain.PromptIdeas{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return ideas, nil
}

// SynthesizePrompt turns the builder form into a Markdown prompt.
func (g *Gateway) SynthesizePrompt(ctx context.Context, d domain.PromptDetails) (string, error) {
	var b strings.Builder
	b.WriteString("Create a comprehensive, detailed, and well-structured prompt in Markdown format for an AI to build an application.\n")
	b.WriteString("The application details are as follows:\n")
	fmt.Fprintf(&b, "- One-sentence description: %q\n", d.Description)
	fmt.Fprintf(&b, "- Target Audience: %q\n", d.Audience)
	fmt.Fprintf(&b, "- Key Features: %s\n", strings.Join(d.Features, ", "))
	fmt.Fprintf(&b, "- Technology/Framework: %q\n", d.Framework)
	fmt.Fprintf(&b, "- Desired Tone: %q\n", d.Tone)
	fmt.Fprintf(&b, "- Desired Style: %q\n\n", d.Style)
	b.WriteString("The final output should be a complete prompt that an AI developer can use to understand and build the entire application. Structure it logically with clear headings.")

	return g.call(ctx, "synthesize_prompt", g.models.Pro, Request{Contents: userContent(b.String())})
}

// GenerateCode returns raw source for prompt in the target language.
func (g *Gateway) GenerateCode(ctx context.Context, prompt, language string) (string, error) {
	instruction := strings.Join([]string{
		"You are an expert code generator. Your task is to generate clean, functional, and complete code based on the user's prompt.",
		"- The target language/framework is " + language + ".",
		"- ONLY output the raw code.",
		"- Do NOT include any explanations, comments, or markdown formatting like ```html or ```javascript.",
		"- If the request is for a complete HTML file, include the <!DOCTYPE html>, <html>, <head>, and <body> tags.",
		"- If asked for React or Vue, provide the component code. Assume necessary imports are handled.",
	}, "\n")

	req := Request{
		Contents:       userContent(prompt),
		SystemInstruct: systemInstruction(instruction),
	}
	return g.call(ctx, "generate_code", g.models.Pro, req)
}

// Generate answers a freeform prompt with the given persona and tone.
func (g *Gateway) Generate(ctx context.Context, prompt, persona, tone string) (string, error) {
	req := Request{
		Contents:       userContent(prompt),
		SystemInstruct: systemInstruction(personaInstruction(persona, tone)),
	}
	return g.call(ctx, "generate", g.models.Flash, req)
}

func (g *Gateway) call(ctx context.Context, op, model string, req Request) (string, error) {
	start := time.Now()
	text, err := g.gen.GenerateContent(ctx, model, req)
	if err != nil {
		slog.Error("AI request failed",
			"operation", op,
			"model", model,
			"duration", time.Since(start),
			"error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrRequestFailed, op, err)
	}
	slog.Info("AI request completed",
		"operation", op,
		"model", model,
		"duration", time.Since(start),
		"chars", len(text))
	return text, nil
}

func personaInstruction(persona, tone string) string {
	return fmt.Sprintf("You are an AI assistant. Adopt the following persona: %q. Respond with the following tone: %q.", persona, tone)
}

func systemInstruction(text string) *SystemInstruct {
	return &SystemInstruct{Parts: []Part{{Text: text}}}
}

func userContent(text string) []Content {
	return []Content{{Role: domain.RoleUser, Parts: []Part{{Text: text}}}}
}

func ideasSchema() *Schema {
	str := func() *Schema { return &Schema{Type: "STRING"} }
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"audience":  str(),
			"features":  {Type: "ARRAY", Items: str()},
			"framework": str(),
			"tone":      str(),
			"style":     str(),
		},
		Required: []string{"audience", "features", "framework", "tone", "style"},
	}
}

type rawIdeas struct {
	Audience  *string   `json:"audience"`
	Features  *[]string `json:"features"`
	Framework *string   `json:"framework"`
	Tone      *string   `json:"tone"`
	Style     *string   `json:"style"`
}

// ParseIdeas decodes a suggestion object. Every key must be present with the
// right type and no other keys are allowed.
func ParseIdeas(text string) (domain.PromptIdeas, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	dec.DisallowUnknownFields()

	var raw rawIdeas
	if err := dec.Decode(&raw); err != nil {
		return domain.PromptIdeas{}, fmt.Errorf("decode ideas: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return domain.PromptIdeas{}, fmt.Errorf("decode ideas: trailing data")
	}

	missing := make([]string, 0, 5)
	if raw.Audience == nil {
		missing = append(missing, "audience")
	}
	if raw.Features == nil {
		missing = append(missing, "features")
	}
	if raw.Framework == nil {
		missing = append(missing, "framework")
	}
	if raw.Tone == nil {
		missing = append(missing, "tone")
	}
	if raw.Style == nil {
		missing = append(missing, "style")
	}
	if len(missing) > 0 {
		return domain.PromptIdeas{}, fmt.Errorf("decode ideas: missing keys %s", strings.Join(missing, ", "))
	}

	return domain.PromptIdeas{
		Audience:  *raw.Audience,
		Features:  *raw.Features,
		Framework: *raw.Framework,
		Tone:      *raw.Tone,
		Style:     *raw.Style,
	}, nil
}
