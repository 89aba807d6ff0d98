// Package views renders the application's screens and handles their form
// actions. Each device sees exactly one view at a time; devices without a
// session only ever see the landing page.
package views

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/middleware"
	"github.com/ashureev/prompt-forge/internal/notify"
	"github.com/ashureev/prompt-forge/internal/preview"
	"github.com/ashureev/prompt-forge/internal/state"
	"github.com/go-chi/chi/v5"
)

// AI is the generative backend the views call.
type AI interface {
	ChatTurn(ctx context.Context, history []domain.ChatTurn, settings domain.ChatSettings) (string, error)
	SuggestIdeas(ctx context.Context, description string) (domain.PromptIdeas, error)
	SynthesizePrompt(ctx context.Context, d domain.PromptDetails) (string, error)
	GenerateCode(ctx context.Context, prompt, language string) (string, error)
	Generate(ctx context.Context, prompt, persona, tone string) (string, error)
}

// Options tune costs and client timings.
type Options struct {
	CodeCost       int
	StarterCredits int
	ToastTTL       time.Duration
	PreviewGrace   time.Duration
	AIEnabled      bool
}

// Handler serves every view and action.
type Handler struct {
	registry *state.Registry
	hub      *notify.Hub
	ai       AI
	renderer *Renderer
	opts     Options
	scratch  *scratchPads
	busy     busyGuard
}

// NewHandler creates the view handler.
func NewHandler(registry *state.Registry, hub *notify.Hub, ai AI, renderer *Renderer, opts Options) *Handler {
	if opts.CodeCost <= 0 {
		opts.CodeCost = 5
	}
	return &Handler{
		registry: registry,
		hub:      hub,
		ai:       ai,
		renderer: renderer,
		opts:     opts,
		scratch:  newScratchPads(),
	}
}

// RegisterRoutes registers page and action routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Current)
	r.Get("/v/{view}", h.Navigate)

	r.Post("/auth/modal/{kind}", h.OpenAuth)
	r.Post("/auth/login", h.Login)
	r.Post("/sales/contact", h.ContactSales)
	r.Post("/modal/close", h.CloseModal)
	r.Post("/copied", h.Copied)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.hasSession, "/"))

		r.Post("/auth/logout", h.Logout)
		r.Post("/modal/store", h.GoToStore)

		r.Post("/chat/send", h.ChatSend)
		r.Post("/chat/regenerate/{index}", h.ChatRegenerate)
		r.Post("/chat/settings/open", h.OpenChatSettings)
		r.Post("/chat/settings", h.SaveChatSettings)

		r.Post("/builder/ideas", h.BuilderIdeas)
		r.Post("/builder/prompt", h.BuilderPrompt)
		r.Post("/builder/back", h.BuilderBack)
		r.Post("/builder/save", h.BuilderSave)
		r.Post("/builder/handoff", h.BuilderHandoff)

		r.Post("/code/tab/{tab}", h.CodeTab)
		r.Post("/code/generate", h.CodeGenerate)
		r.Post("/code/regenerate", h.CodeRegenerate)
		r.Post("/code/back", h.CodeBack)

		r.Post("/generator/generate", h.GeneratorGenerate)
		r.Post("/generator/save", h.GeneratorSave)

		r.Post("/history/{id}/view", h.HistoryView)
		r.Post("/history/{id}/delete", h.HistoryDelete)

		r.Post("/store/purchase/{credits}", h.Purchase)
	})
}

// Forget drops all per-device view state. Used when a device is evicted.
func (h *Handler) Forget(deviceID string) {
	h.scratch.Forget(deviceID)
	h.busy.Forget(deviceID)
	h.hub.Forget(deviceID)
}

func (h *Handler) store(r *http.Request) (string, *state.Store) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	return deviceID, h.registry.Get(r.Context(), deviceID)
}

func (h *Handler) hasSession(r *http.Request) bool {
	_, st := h.store(r)
	return st.Snapshot().LoggedIn()
}

// effectiveView is the view actually shown for s.
func effectiveView(s domain.AppState) domain.View {
	if !s.LoggedIn() {
		return domain.ViewLanding
	}
	if s.CurrentView == domain.ViewLanding || s.CurrentView == "" {
		return domain.DefaultAuthenticatedView
	}
	return s.CurrentView
}

// Current renders whatever view the device is on.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	h.renderCurrent(w, r, http.StatusOK)
}

// Navigate switches the current view and renders it.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	v, ok := domain.ParseView(chi.URLParam(r, "view"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, st := h.store(r)
	if st.Snapshot().LoggedIn() {
		st.Navigate(v)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderCurrent(w http.ResponseWriter, r *http.Request, status int) {
	deviceID, st := h.store(r)
	h.renderer.Render(w, status, h.buildPage(deviceID, st))
}

func (h *Handler) buildPage(deviceID string, st *state.Store) *pageData {
	snap := st.Snapshot()
	view := effectiveView(snap)

	sc := h.scratch.Get(deviceID, view)
	if view == domain.ViewCodeBuilder {
		if handoff := st.TakePromptForCodeBuilder(); handoff != "" {
			sc = h.scratch.Update(deviceID, view, func(s *Scratch) {
				s.Code.Tab = domain.TabFullApp
				s.Code.Prompt = handoff
			})
		}
	}

	data := &pageData{
		View:              view,
		State:             snap,
		Scratch:           sc,
		Toasts:            h.hub.Drain(deviceID),
		Modal:             h.resolveModal(deviceID, snap),
		AIEnabled:         h.opts.AIEnabled,
		Year:              time.Now().Year(),
		CodeCost:          h.opts.CodeCost,
		StarterCredits:    h.opts.StarterCredits,
		ToastTTLMS:        h.hub.TTL().Milliseconds(),
		PreviewGraceMS:    h.opts.PreviewGrace.Milliseconds(),
		Packages:          domain.CreditPackages(),
		ChatPersonas:      domain.ChatPersonas,
		ChatTones:         domain.ChatTones,
		GeneratorPersonas: domain.GeneratorPersonas,
		GeneratorTones:    domain.GeneratorTones,
		CodeTargets:       domain.CodeTargets,
	}

	if view == domain.ViewCodeBuilder && sc.Code.Generated != "" {
		data.Code = buildCodeResult(sc.Code)
	}
	return data
}

func buildCodeResult(c CodeScratch) *codeResult {
	res := &codeResult{IsHTML: isHTMLTarget(c.Language), DefaultTab: "code"}
	if res.IsHTML {
		res.DefaultTab = "preview"
		res.Preview = preview.Check(c.Generated)
	}
	highlighted, err := preview.Highlight(c.Generated, c.Language)
	if err == nil {
		res.Highlighted = highlighted
	}
	return res
}

// resolveModal drops modals that no longer make sense for the device.
func (h *Handler) resolveModal(deviceID string, s domain.AppState) *modalView {
	m, ok := h.hub.Modal(deviceID)
	if !ok {
		return nil
	}

	loggedIn := s.LoggedIn()
	switch m.Kind {
	case notify.ModalLogin, notify.ModalSignup:
		if loggedIn {
			h.hub.HideModal(deviceID)
			return nil
		}
	case notify.ModalPromptView:
		if !loggedIn {
			h.hub.HideModal(deviceID)
			return nil
		}
		for i := range s.SavedPrompts {
			if s.SavedPrompts[i].ID == m.Ref {
				p := s.SavedPrompts[i]
				return &modalView{Kind: m.Kind, Prompt: &p}
			}
		}
		h.hub.HideModal(deviceID)
		return nil
	default:
		if !loggedIn {
			h.hub.HideModal(deviceID)
			return nil
		}
	}
	return &modalView{Kind: m.Kind, Message: m.Message, Cost: m.Cost}
}

// aiCallTimeout bounds a gateway call once it no longer follows the request.
const aiCallTimeout = 3 * time.Minute

// aiContext detaches a gateway call from the request: a client that goes
// away mid-call does not abort it, and its result is still applied.
func aiContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), aiCallTimeout)
}

// acquire takes the busy guard for action and holds the device's store so it
// is not evicted while the action runs.
func (h *Handler) acquire(deviceID string, st *state.Store, action string) (func(), bool) {
	release, ok := h.busy.TryAcquire(deviceID, action)
	if !ok {
		return nil, false
	}
	unhold := st.Hold()
	return func() {
		unhold()
		release()
	}, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// rejectBusy answers a request for an action that is already running.
func (h *Handler) rejectBusy(w http.ResponseWriter, r *http.Request, deviceID string) {
	if middleware.WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"request_in_progress"}`))
		return
	}
	h.hub.Toast(deviceID, "Still working on your previous request.")
	h.renderCurrent(w, r, http.StatusConflict)
}
