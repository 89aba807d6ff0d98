// Package api provides the JSON endpoints of Prompt Forge.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/persistence"
	"github.com/ashureev/prompt-forge/internal/state"
	"github.com/go-chi/chi/v5"
)

// Settings are the public server settings exposed to clients.
type Settings struct {
	AIEnabled          bool
	StarterCredits     int
	CodeGenerationCost int
}

// Handler serves read-only device state and configuration.
type Handler struct {
	registry *state.Registry
	settings Settings
}

// NewHandler creates a new Handler.
func NewHandler(registry *state.Registry, settings Settings) *Handler {
	return &Handler{registry: registry, settings: settings}
}

// RegisterRoutes registers the /api routes behind mw.
func (h *Handler) RegisterRoutes(r chi.Router, mw ...func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw...)
		r.Get("/state", h.GetState)
		r.Get("/config", h.GetConfig)
	})
}

// GetState returns the device's persisted state record.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		Error(w, http.StatusUnauthorized, "unknown device")
		return
	}

	snap := h.registry.Get(r.Context(), deviceID).Snapshot()
	data, err := persistence.Encode(snap)
	if err != nil {
		slog.Error("Failed to encode state", "device_id", deviceID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to encode state")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled":           h.settings.AIEnabled,
		"starter_credits":      h.settings.StarterCredits,
		"code_generation_cost": h.settings.CodeGenerationCost,
		"packages":             domain.CreditPackages(),
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
