//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/state"
	"github.com/go-chi/chi/v5"
)

type memBackend struct{}

func (memBackend) Load(context.Context, string) domain.AppState {
	return domain.DefaultAppState()
}

func (memBackend) Save(context.Context, string, domain.AppState) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Toast(string, string) {}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDB     string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"database down", errors.New("closed"), http.StatusServiceUnavailable, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tt.err}, 0)
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if body.Checks["database"] != tt.wantDB {
				t.Fatalf("expected database %q, got %q", tt.wantDB, body.Checks["database"])
			}
		})
	}
}

func newTestHandler() (*Handler, *state.Registry, chi.Router) {
	reg := state.NewRegistry(memBackend{}, nopNotifier{}, state.Options{StarterCredits: 20})
	h := NewHandler(reg, Settings{AIEnabled: true, StarterCredits: 20, CodeGenerationCost: 5})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, reg, r
}

func TestGetStateOmitsHandoff(t *testing.T) {
	_, reg, r := newTestHandler()
	const device = "dev_0123456789abcdef0123456789abcdef"

	st := reg.Get(context.Background(), device)
	st.Login(domain.User{Name: "Ada", Email: "ada@example.com"})
	st.SetPromptForCodeBuilder("secret handoff")

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req = req.WithContext(identity.WithDeviceID(req.Context(), device))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(got["userCredits"]) != "20" {
		t.Fatalf("expected 20 credits, got %s", got["userCredits"])
	}
	for k, v := range got {
		if string(v) == `"secret handoff"` {
			t.Fatalf("handoff leaked under %q", k)
		}
	}
}

func TestGetStateRequiresDevice(t *testing.T) {
	_, _, r := newTestHandler()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetConfig(t *testing.T) {
	_, _, r := newTestHandler()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var got struct {
		AIEnabled bool                   `json:"ai_enabled"`
		CodeCost  int                    `json:"code_generation_cost"`
		Packages  []domain.CreditPackage `json:"packages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.AIEnabled || got.CodeCost != 5 || len(got.Packages) != 3 {
		t.Fatalf("unexpected config: %+v", got)
	}
}
