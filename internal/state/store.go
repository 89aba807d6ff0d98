// Package state implements the application state store: one mutable record
// per device, changed only through named operations and mirrored to
// persistence after every change.
package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/google/uuid"
)

// TimestampLayout formats saved-prompt display timestamps.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// Persister writes state snapshots.
type Persister interface {
	Save(ctx context.Context, deviceID string, s domain.AppState) error
}

// Notifier shows transient messages to a device.
type Notifier interface {
	Toast(deviceID, message string)
}

// Options tune store behavior.
type Options struct {
	StarterCredits int
}

// DefaultOptions returns the stock options.
func DefaultOptions() Options {
	return Options{StarterCredits: 20}
}

// Store owns one device's application state.
type Store struct {
	mu       sync.Mutex
	deviceID string
	state    domain.AppState
	persist  Persister
	notify   Notifier
	opts     Options
	now      func() time.Time

	holds      atomic.Int32
	onActivity func()
}

// NewStore creates a store seeded with initial. persist and notify may be nil.
func NewStore(deviceID string, initial domain.AppState, persist Persister, notify Notifier, opts Options) *Store {
	if opts.StarterCredits <= 0 {
		opts.StarterCredits = DefaultOptions().StarterCredits
	}
	return &Store{
		deviceID: deviceID,
		state:    initial.Clone(),
		persist:  persist,
		notify:   notify,
		opts:     opts,
		now:      time.Now,
	}
}

// DeviceID returns the owning device.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// mutate applies fn and persists the result before returning.
func (s *Store) mutate(op string, fn func(st *domain.AppState)) {
	s.apply(op, fn)
	s.touch()
}

func (s *Store) apply(op string, fn func(st *domain.AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)

	if s.persist == nil {
		return
	}
	if err := s.persist.Save(context.Background(), s.deviceID, s.state); err != nil {
		slog.Error("Failed to persist state", "device_id", s.deviceID, "operation", op, "error", err)
	}
}

// touch runs outside s.mu; the registry callback takes its own lock.
func (s *Store) touch() {
	if s.onActivity != nil {
		s.onActivity()
	}
}

// Hold marks the store as in use until the returned func is called. A held
// store is never evicted.
func (s *Store) Hold() (release func()) {
	s.holds.Add(1)
	s.touch()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.holds.Add(-1)
			s.touch()
		})
	}
}

// Held reports whether any request holds the store.
func (s *Store) Held() bool {
	return s.holds.Load() > 0
}

// Navigate sets the current view. Any view is reachable from any other.
func (s *Store) Navigate(v domain.View) {
	s.mutate("navigate", func(st *domain.AppState) {
		st.CurrentView = v
	})
}

// Login starts a session. Credits are granted only when the balance is zero,
// so a residual balance from an earlier session survives.
func (s *Store) Login(u domain.User) {
	s.mutate("login", func(st *domain.AppState) {
		user := u
		st.CurrentUser = &user
		if st.Credits == 0 {
			st.Credits = s.opts.StarterCredits
		}
		st.CurrentView = domain.DefaultAuthenticatedView
	})
}

// Logout clears the session and chat history. Credits and saved prompts stay.
func (s *Store) Logout() {
	s.mutate("logout", func(st *domain.AppState) {
		st.CurrentUser = nil
		st.ChatHistory = []domain.ChatTurn{}
		st.CurrentView = domain.ViewLanding
	})
}

// AddCredits increments the balance. Non-positive amounts are ignored.
func (s *Store) AddCredits(amount int) {
	if amount <= 0 {
		return
	}
	s.mutate("add_credits", func(st *domain.AppState) {
		st.Credits += amount
	})
}

// DeductCredits spends amount if the balance covers it and reports whether it did.
func (s *Store) DeductCredits(amount int) bool {
	if amount < 0 {
		return false
	}
	ok := false
	s.mutate("deduct_credits", func(st *domain.AppState) {
		if st.Credits < amount {
			return
		}
		st.Credits -= amount
		ok = true
	})
	return ok
}

// CanAfford reports whether the balance covers cost without changing it.
func (s *Store) CanAfford(cost int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cost >= 0 && s.state.Credits >= cost
}

// CheckCredits reports whether any credit remains. Equivalent to CanAfford(1).
func (s *Store) CheckCredits() bool {
	return s.CanAfford(1)
}

// Credits returns the current balance.
func (s *Store) Credits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Credits
}

// SavePrompt prepends a new saved prompt and returns it.
func (s *Store) SavePrompt(title, body string) domain.SavedPrompt {
	now := s.now()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	p := domain.SavedPrompt{
		ID:        id.String(),
		Title:     title,
		Prompt:    body,
		Timestamp: now.Format(TimestampLayout),
	}
	s.mutate("save_prompt", func(st *domain.AppState) {
		st.SavedPrompts = append([]domain.SavedPrompt{p}, st.SavedPrompts...)
	})
	return p
}

// DeletePrompt removes the prompt with id. Unknown ids are a no-op.
func (s *Store) DeletePrompt(id string) {
	s.mutate("delete_prompt", func(st *domain.AppState) {
		kept := st.SavedPrompts[:0:0]
		for _, p := range st.SavedPrompts {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		st.SavedPrompts = kept
	})
}

// FindPrompt returns the saved prompt with id.
func (s *Store) FindPrompt(id string) (domain.SavedPrompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.SavedPrompts {
		if p.ID == id {
			return p, true
		}
	}
	return domain.SavedPrompt{}, false
}

// ReplaceHistory overwrites the chat history.
func (s *Store) ReplaceHistory(h []domain.ChatTurn) {
	next := domain.CloneHistory(h)
	s.mutate("replace_history", func(st *domain.AppState) {
		st.ChatHistory = next
	})
}

// AppendFromPrevious derives the next history from the current one atomically.
// fn receives a copy and returns the history to store.
func (s *Store) AppendFromPrevious(fn func(prev []domain.ChatTurn) []domain.ChatTurn) {
	s.mutate("append_history", func(st *domain.AppState) {
		st.ChatHistory = domain.CloneHistory(fn(domain.CloneHistory(st.ChatHistory)))
	})
}

// SetPromptForCodeBuilder sets or clears the handoff field.
func (s *Store) SetPromptForCodeBuilder(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The handoff is not persisted, so there is nothing to save.
	s.state.PromptForCodeBuilder = text
}

// TakePromptForCodeBuilder returns the handoff and clears it.
func (s *Store) TakePromptForCodeBuilder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.state.PromptForCodeBuilder
	s.state.PromptForCodeBuilder = ""
	return text
}

// UpdateChatSettings replaces the chat settings and confirms with a toast.
func (s *Store) UpdateChatSettings(cs domain.ChatSettings) {
	next := cs.Normalize()
	s.mutate("update_chat_settings", func(st *domain.AppState) {
		st.ChatSettings = next
	})
	if s.notify != nil {
		s.notify.Toast(s.deviceID, "Chat settings saved!")
	}
}
