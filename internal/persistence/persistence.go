// Package persistence mirrors a device's application state into its
// key-value store. It holds no copy of the truth: records are written after
// every change and read once when a device's state is first needed.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/shared"
	"github.com/ashureev/prompt-forge/internal/store"
)

// StorageKey is the fixed key under which the state record lives.
const StorageKey = "aiPromptForgeState"

const (
	saveAttempts  = 3
	saveBaseDelay = 50 * time.Millisecond
)

// record is the persisted shape. The code-builder handoff is deliberately absent.
type record struct {
	CurrentView        domain.View          `json:"currentView"`
	CurrentUser        *domain.User         `json:"currentUser"`
	UserCredits        int                  `json:"userCredits"`
	SavedPrompts       []domain.SavedPrompt `json:"savedPrompts"`
	CurrentChatHistory []domain.ChatTurn    `json:"currentChatHistory"`
	ChatSettings       *domain.ChatSettings `json:"chatSettings,omitempty"`
}

// Adapter reads and writes state records.
type Adapter struct {
	repo store.Repository
}

// NewAdapter creates an adapter over repo.
func NewAdapter(repo store.Repository) *Adapter {
	return &Adapter{repo: repo}
}

// Encode serializes the persistable part of a state.
func Encode(s domain.AppState) ([]byte, error) {
	settings := s.ChatSettings
	rec := record{
		CurrentView:        s.CurrentView,
		CurrentUser:        s.CurrentUser,
		UserCredits:        s.Credits,
		SavedPrompts:       s.SavedPrompts,
		CurrentChatHistory: s.ChatHistory,
		ChatSettings:       &settings,
	}
	if rec.SavedPrompts == nil {
		rec.SavedPrompts = []domain.SavedPrompt{}
	}
	if rec.CurrentChatHistory == nil {
		rec.CurrentChatHistory = []domain.ChatTurn{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal state record: %w", err)
	}
	return data, nil
}

// Decode restores a state from a record. A record without a session yields
// the default state. Fields missing from older records are defaulted.
func Decode(data []byte) (domain.AppState, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.DefaultAppState(), fmt.Errorf("unmarshal state record: %w", err)
	}

	if rec.CurrentUser == nil {
		return domain.DefaultAppState(), nil
	}

	s := domain.DefaultAppState()
	s.CurrentUser = rec.CurrentUser
	s.Credits = rec.UserCredits
	if s.Credits < 0 {
		s.Credits = 0
	}
	if rec.SavedPrompts != nil {
		s.SavedPrompts = rec.SavedPrompts
	}
	if rec.CurrentChatHistory != nil {
		s.ChatHistory = rec.CurrentChatHistory
	}
	if rec.ChatSettings != nil {
		s.ChatSettings = *rec.ChatSettings
	}
	// A reload always lands on the default authenticated view.
	s.CurrentView = domain.DefaultAuthenticatedView
	s.PromptForCodeBuilder = ""
	return s, nil
}

// Load returns the device's state, falling back to defaults when the record
// is missing or corrupt. Corrupt records are removed.
func (a *Adapter) Load(ctx context.Context, deviceID string) domain.AppState {
	raw, found, err := a.repo.Get(ctx, deviceID, StorageKey)
	if err != nil {
		slog.Error("Failed to read state record", "device_id", deviceID, "error", err)
		return domain.DefaultAppState()
	}
	if !found {
		return domain.DefaultAppState()
	}

	s, err := Decode([]byte(raw))
	if err != nil {
		slog.Warn("Discarding corrupt state record", "device_id", deviceID, "error", err)
		if delErr := a.repo.Delete(ctx, deviceID, StorageKey); delErr != nil {
			slog.Error("Failed to delete corrupt state record", "device_id", deviceID, "error", delErr)
		}
		return domain.DefaultAppState()
	}
	return s
}

// Save overwrites the device's record with a snapshot of s.
func (a *Adapter) Save(ctx context.Context, deviceID string, s domain.AppState) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return shared.RetryOnConflict(ctx, saveAttempts, saveBaseDelay, "save state", func() error {
		return a.repo.Put(ctx, deviceID, StorageKey, string(data))
	})
}

// Reset removes the device's record.
func (a *Adapter) Reset(ctx context.Context, deviceID string) error {
	return a.repo.Delete(ctx, deviceID, StorageKey)
}
