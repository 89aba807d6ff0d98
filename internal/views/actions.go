package views

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/notify"
	"github.com/go-chi/chi/v5"
)

// Default identity for the mock login form.
const (
	defaultUserName  = "Demo User"
	defaultUserEmail = "demo@example.com"
)

// OpenAuth shows the login or signup form.
func (h *Handler) OpenAuth(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	kind := notify.ModalKind(chi.URLParam(r, "kind"))
	if kind != notify.ModalLogin && kind != notify.ModalSignup {
		http.NotFound(w, r)
		return
	}
	h.hub.ShowModal(deviceID, notify.Modal{Kind: kind})
	redirectHome(w, r)
}

// Login accepts any submission and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = defaultUserName
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		email = defaultUserEmail
	}

	st.Login(domain.User{Name: name, Email: email})
	h.hub.HideModal(deviceID)
	slog.Info("Device logged in", "device_id", deviceID, "ip", identity.IPFromRequest(r), "credits", st.Credits())
	redirectHome(w, r)
}

// Logout ends the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	st.Logout()
	h.hub.HideModal(deviceID)
	slog.Info("Device logged out", "device_id", deviceID)
	redirectHome(w, r)
}

// ContactSales acknowledges the enterprise plan button.
func (h *Handler) ContactSales(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	h.hub.Toast(deviceID, "Contacting sales!")
	redirectHome(w, r)
}

// CloseModal empties the modal slot.
func (h *Handler) CloseModal(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	h.hub.HideModal(deviceID)
	redirectHome(w, r)
}

// GoToStore is the action behind every out-of-credits modal.
func (h *Handler) GoToStore(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	st.Navigate(domain.ViewStore)
	h.hub.HideModal(deviceID)
	redirectHome(w, r)
}

// Copied confirms a client-side clipboard copy. The toast is returned in the
// response and pushed to the device's other tabs.
func (h *Handler) Copied(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	h.hub.Toast(deviceID, "Copied to clipboard!")

	toasts := h.hub.Drain(deviceID)
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"toasts": toasts}); err != nil {
		slog.Debug("Failed to write toasts", "device_id", deviceID, "error", err)
	}
}

// outOfCredits shows the standard purchase prompt.
func (h *Handler) outOfCredits(deviceID, message string) {
	h.hub.ShowModal(deviceID, notify.Modal{Kind: notify.ModalOutOfCredits, Message: message})
}

// --- chat ---

// OpenChatSettings shows the settings dialog.
func (h *Handler) OpenChatSettings(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	h.hub.ShowModal(deviceID, notify.Modal{Kind: notify.ModalChatSettings})
	redirectHome(w, r)
}

// SaveChatSettings replaces the chat settings.
func (h *Handler) SaveChatSettings(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	current := st.Snapshot().ChatSettings

	next := domain.ChatSettings{
		Persona:     strings.TrimSpace(r.FormValue("persona")),
		Tone:        strings.TrimSpace(r.FormValue("tone")),
		Temperature: current.Temperature,
	}
	if raw := r.FormValue("temperature"); raw != "" {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			next.Temperature = t
		}
	}

	st.UpdateChatSettings(next)
	h.hub.HideModal(deviceID)
	redirectHome(w, r)
}

// ChatSend sends one message.
func (h *Handler) ChatSend(w http.ResponseWriter, r *http.Request) {
	h.sendChat(w, r, r.FormValue("message"))
}

// ChatRegenerate resends the user message that preceded a model turn.
func (h *Handler) ChatRegenerate(w http.ResponseWriter, r *http.Request) {
	_, st := h.store(r)
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	history := st.Snapshot().ChatHistory
	if err != nil || idx < 1 || idx >= len(history) || history[idx-1].Role != domain.RoleUser {
		redirectHome(w, r)
		return
	}
	h.sendChat(w, r, history[idx-1].Text())
}

func (h *Handler) sendChat(w http.ResponseWriter, r *http.Request, message string) {
	deviceID, st := h.store(r)
	if strings.TrimSpace(message) == "" {
		redirectHome(w, r)
		return
	}

	release, ok := h.acquire(deviceID, st, "chat")
	if !ok {
		h.rejectBusy(w, r, deviceID)
		return
	}
	defer release()

	const noCredits = "You've used all your credits. Please purchase more to continue using the AI features."
	if !st.CanAfford(1) {
		h.outOfCredits(deviceID, noCredits)
		redirectHome(w, r)
		return
	}

	st.AppendFromPrevious(func(prev []domain.ChatTurn) []domain.ChatTurn {
		return append(prev, domain.NewTurn(domain.RoleUser, message))
	})
	h.scratch.Apply(deviceID, domain.ViewChat, func(s *Scratch) { s.Chat.Input = "" })

	if !st.DeductCredits(1) {
		st.AppendFromPrevious(dropLastTurn)
		h.outOfCredits(deviceID, noCredits)
		redirectHome(w, r)
		return
	}

	snap := st.Snapshot()
	ctx, cancel := aiContext(r)
	defer cancel()
	reply, err := h.ai.ChatTurn(ctx, snap.ChatHistory, snap.ChatSettings)
	if err != nil {
		slog.Warn("Chat turn failed", "device_id", deviceID, "error", err)
		h.hub.Toast(deviceID, "Error communicating with AI.")
		st.AppendFromPrevious(dropLastTurn)
		h.scratch.Apply(deviceID, domain.ViewChat, func(s *Scratch) { s.Chat.Input = message })
		redirectHome(w, r)
		return
	}

	st.AppendFromPrevious(func(prev []domain.ChatTurn) []domain.ChatTurn {
		return append(prev, domain.NewTurn(domain.RoleModel, reply))
	})
	redirectHome(w, r)
}

func dropLastTurn(prev []domain.ChatTurn) []domain.ChatTurn {
	if len(prev) == 0 {
		return prev
	}
	return prev[:len(prev)-1]
}

// --- prompt builder ---

func readIdeas(r *http.Request) domain.PromptIdeas {
	var features []string
	for _, f := range r.Form["feature"] {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if features == nil {
		features = []string{}
	}
	return domain.PromptIdeas{
		Audience:  r.FormValue("audience"),
		Features:  features,
		Framework: r.FormValue("framework"),
		Tone:      r.FormValue("tone"),
		Style:     r.FormValue("style"),
	}
}

// BuilderIdeas runs step one: description to structured suggestions.
func (h *Handler) BuilderIdeas(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	description := r.FormValue("description")
	h.scratch.Update(deviceID, domain.ViewPromptBuilder, func(s *Scratch) { s.Builder.Description = description })

	if strings.TrimSpace(description) == "" {
		h.hub.Toast(deviceID, "Please enter a description.")
		redirectHome(w, r)
		return
	}

	release, ok := h.acquire(deviceID, st, "builder")
	if !ok {
		h.rejectBusy(w, r, deviceID)
		return
	}
	defer release()

	if !st.CanAfford(1) || !st.DeductCredits(1) {
		h.outOfCredits(deviceID, "Please purchase more credits to use the Prompt Builder.")
		redirectHome(w, r)
		return
	}

	ctx, cancel := aiContext(r)
	defer cancel()
	ideas, err := h.ai.SuggestIdeas(ctx, description)
	if err != nil {
		slog.Warn("Idea suggestion failed", "device_id", deviceID, "error", err)
		h.hub.Toast(deviceID, "Failed to generate ideas. Please try again.")
		redirectHome(w, r)
		return
	}

	h.scratch.Apply(deviceID, domain.ViewPromptBuilder, func(s *Scratch) {
		s.Builder.Ideas = ideas
		s.Builder.Step = stepRefine
	})
	redirectHome(w, r)
}

// BuilderPrompt runs step two: the edited form to a full Markdown prompt.
func (h *Handler) BuilderPrompt(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ideas := readIdeas(r)
	sc := h.scratch.Update(deviceID, domain.ViewPromptBuilder, func(s *Scratch) { s.Builder.Ideas = ideas })

	release, ok := h.acquire(deviceID, st, "builder")
	if !ok {
		h.rejectBusy(w, r, deviceID)
		return
	}
	defer release()

	if !st.CanAfford(1) || !st.DeductCredits(1) {
		h.outOfCredits(deviceID, "Please purchase more credits to use the Prompt Builder.")
		redirectHome(w, r)
		return
	}

	ctx, cancel := aiContext(r)
	defer cancel()
	prompt, err := h.ai.SynthesizePrompt(ctx, domain.PromptDetails{
		Description: sc.Builder.Description,
		PromptIdeas: ideas,
	})
	if err != nil {
		slog.Warn("Prompt synthesis failed", "device_id", deviceID, "error", err)
		h.hub.Toast(deviceID, "Failed to generate the final prompt. Please try again.")
		redirectHome(w, r)
		return
	}

	h.scratch.Apply(deviceID, domain.ViewPromptBuilder, func(s *Scratch) {
		s.Builder.FinalPrompt = prompt
		s.Builder.Step = stepResult
	})
	redirectHome(w, r)
}

// BuilderBack returns to the previous step, keeping what was entered.
func (h *Handler) BuilderBack(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	h.scratch.Update(deviceID, domain.ViewPromptBuilder, func(s *Scratch) {
		if s.Builder.Step == stepRefine && r.Form.Has("audience") {
			s.Builder.Ideas = readIdeas(r)
		}
		if s.Builder.Step > stepDescribe {
			s.Builder.Step--
		}
	})
	redirectHome(w, r)
}

// BuilderSave saves the final prompt under its description.
func (h *Handler) BuilderSave(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	sc := h.scratch.Get(deviceID, domain.ViewPromptBuilder)
	if sc.Builder.FinalPrompt == "" {
		redirectHome(w, r)
		return
	}
	st.SavePrompt(sc.Builder.Description, sc.Builder.FinalPrompt)
	h.hub.Toast(deviceID, "Prompt Saved!")
	redirectHome(w, r)
}

// BuilderHandoff passes the final prompt to the code builder and opens it.
func (h *Handler) BuilderHandoff(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	sc := h.scratch.Get(deviceID, domain.ViewPromptBuilder)
	if sc.Builder.FinalPrompt == "" {
		redirectHome(w, r)
		return
	}
	st.SetPromptForCodeBuilder(sc.Builder.FinalPrompt)
	st.Navigate(domain.ViewCodeBuilder)
	redirectHome(w, r)
}

// --- code builder ---

func readCodeForm(r *http.Request, s *Scratch) {
	if r.Form.Has("prompt") {
		s.Code.Prompt = r.FormValue("prompt")
	}
	if lang := r.FormValue("language"); lang != "" {
		for _, t := range domain.CodeTargets {
			if t == lang {
				s.Code.Language = lang
			}
		}
	}
}

// CodeTab switches between the full-app and quick-snippet editors.
func (h *Handler) CodeTab(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	tab := chi.URLParam(r, "tab")
	if tab != domain.TabFullApp && tab != domain.TabQuickSnippet {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	h.scratch.Update(deviceID, domain.ViewCodeBuilder, func(s *Scratch) {
		readCodeForm(r, s)
		s.Code.Tab = tab
	})
	redirectHome(w, r)
}

// CodeGenerate generates code from the editor.
func (h *Handler) CodeGenerate(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sc := h.scratch.Update(deviceID, domain.ViewCodeBuilder, func(s *Scratch) { readCodeForm(r, s) })
	h.generateCode(w, r, sc.Code)
}

// CodeRegenerate repeats the last generation.
func (h *Handler) CodeRegenerate(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	sc := h.scratch.Get(deviceID, domain.ViewCodeBuilder)
	h.generateCode(w, r, sc.Code)
}

func (h *Handler) generateCode(w http.ResponseWriter, r *http.Request, c CodeScratch) {
	deviceID, st := h.store(r)
	if strings.TrimSpace(c.Prompt) == "" {
		h.hub.Toast(deviceID, "Please enter a prompt.")
		redirectHome(w, r)
		return
	}

	release, ok := h.acquire(deviceID, st, "code")
	if !ok {
		h.rejectBusy(w, r, deviceID)
		return
	}
	defer release()

	cost := h.opts.CodeCost
	if !st.CanAfford(cost) || !st.DeductCredits(cost) {
		h.hub.ShowModal(deviceID, notify.Modal{
			Kind:    notify.ModalInsufficientCredits,
			Message: fmt.Sprintf("You need at least %d credits to generate code. Please purchase more.", cost),
			Cost:    cost,
		})
		redirectHome(w, r)
		return
	}

	ctx, cancel := aiContext(r)
	defer cancel()
	code, err := h.ai.GenerateCode(ctx, c.Prompt, c.Language)
	if err != nil {
		slog.Warn("Code generation failed", "device_id", deviceID, "language", c.Language, "error", err)
		h.hub.Toast(deviceID, "Failed to generate code. Please try again.")
		code = ""
	}

	h.scratch.Apply(deviceID, domain.ViewCodeBuilder, func(s *Scratch) { s.Code.Generated = code })
	redirectHome(w, r)
}

// CodeBack leaves the result view for the editor.
func (h *Handler) CodeBack(w http.ResponseWriter, r *http.Request) {
	deviceID, _ := h.store(r)
	h.scratch.Apply(deviceID, domain.ViewCodeBuilder, func(s *Scratch) { s.Code.Generated = "" })
	redirectHome(w, r)
}

// --- generator ---

func pick(value string, allowed []string) string {
	for _, a := range allowed {
		if a == value {
			return value
		}
	}
	return allowed[0]
}

// GeneratorGenerate answers a freeform prompt.
func (h *Handler) GeneratorGenerate(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	prompt := r.FormValue("prompt")
	persona := pick(r.FormValue("persona"), domain.GeneratorPersonas)
	tone := pick(r.FormValue("tone"), domain.GeneratorTones)

	h.scratch.Update(deviceID, domain.ViewGenerator, func(s *Scratch) {
		s.Generator.Prompt = prompt
		s.Generator.Persona = persona
		s.Generator.Tone = tone
	})

	if strings.TrimSpace(prompt) == "" {
		h.hub.Toast(deviceID, "Please enter a prompt.")
		redirectHome(w, r)
		return
	}

	release, ok := h.acquire(deviceID, st, "generator")
	if !ok {
		h.rejectBusy(w, r, deviceID)
		return
	}
	defer release()

	if !st.CanAfford(1) || !st.DeductCredits(1) {
		h.outOfCredits(deviceID, "Please purchase more credits to use the generator.")
		redirectHome(w, r)
		return
	}

	h.scratch.Apply(deviceID, domain.ViewGenerator, func(s *Scratch) { s.Generator.Response = "" })

	ctx, cancel := aiContext(r)
	defer cancel()
	text, err := h.ai.Generate(ctx, prompt, persona, tone)
	if err != nil {
		slog.Warn("Generation failed", "device_id", deviceID, "error", err)
		h.hub.Toast(deviceID, "Failed to generate response. Please try again.")
		redirectHome(w, r)
		return
	}

	h.scratch.Apply(deviceID, domain.ViewGenerator, func(s *Scratch) { s.Generator.Response = text })
	redirectHome(w, r)
}

// GeneratorSave saves the response titled by the prompt's first 30 characters.
func (h *Handler) GeneratorSave(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	sc := h.scratch.Get(deviceID, domain.ViewGenerator)
	if sc.Generator.Response == "" {
		redirectHome(w, r)
		return
	}
	st.SavePrompt(truncateRunes(sc.Generator.Prompt, 30), sc.Generator.Response)
	h.hub.Toast(deviceID, "Response Saved!")
	redirectHome(w, r)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// --- history ---

// HistoryView opens a saved prompt in the modal.
func (h *Handler) HistoryView(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	id := chi.URLParam(r, "id")
	if _, ok := st.FindPrompt(id); !ok {
		http.NotFound(w, r)
		return
	}
	h.hub.ShowModal(deviceID, notify.Modal{Kind: notify.ModalPromptView, Ref: id})
	redirectHome(w, r)
}

// HistoryDelete removes a saved prompt.
func (h *Handler) HistoryDelete(w http.ResponseWriter, r *http.Request) {
	_, st := h.store(r)
	st.DeletePrompt(chi.URLParam(r, "id"))
	redirectHome(w, r)
}

// --- store ---

// Purchase adds a credit package. No payment is taken.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	deviceID, st := h.store(r)
	credits, err := strconv.Atoi(chi.URLParam(r, "credits"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	pkg, ok := domain.FindPackage(credits)
	if !ok {
		http.NotFound(w, r)
		return
	}

	st.AddCredits(pkg.Credits)
	h.hub.Toast(deviceID, fmt.Sprintf("%d credits added!", pkg.Credits))
	slog.Info("Credits purchased", "device_id", deviceID, "credits", pkg.Credits, "balance", st.Credits())
	redirectHome(w, r)
}
