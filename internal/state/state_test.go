package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
)

type fakeBackend struct {
	mu    sync.Mutex
	saved map[string]domain.AppState
	saves int
	loads int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{saved: make(map[string]domain.AppState)}
}

func (f *fakeBackend) Load(_ context.Context, deviceID string) domain.AppState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if s, ok := f.saved[deviceID]; ok {
		return s.Clone()
	}
	return domain.DefaultAppState()
}

func (f *fakeBackend) Save(_ context.Context, deviceID string, s domain.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	s.PromptForCodeBuilder = ""
	f.saved[deviceID] = s.Clone()
	return nil
}

func (f *fakeBackend) last(deviceID string) domain.AppState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[deviceID]
}

type fakeNotifier struct {
	mu     sync.Mutex
	toasts []string
}

func (f *fakeNotifier) Toast(_ string, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, message)
}

func newTestStore(t *testing.T) (*Store, *fakeBackend, *fakeNotifier) {
	t.Helper()
	b := newFakeBackend()
	n := &fakeNotifier{}
	return NewStore("dev_test", domain.DefaultAppState(), b, n, DefaultOptions()), b, n
}

func TestLoginGrantsStarterCreditsOnlyWhenZero(t *testing.T) {
	s, b, _ := newTestStore(t)

	s.Login(domain.User{Name: "Ada", Email: "ada@example.com"})
	snap := s.Snapshot()
	if snap.Credits != 20 {
		t.Fatalf("expected 20 credits, got %d", snap.Credits)
	}
	if snap.CurrentView != domain.ViewDashboard {
		t.Fatalf("expected dashboard, got %s", snap.CurrentView)
	}
	if b.last("dev_test").CurrentUser == nil {
		t.Fatal("expected login to be persisted")
	}

	s.DeductCredits(15)
	s.Logout()
	s.Login(domain.User{Name: "Ada"})
	if got := s.Credits(); got != 5 {
		t.Fatalf("expected residual 5 credits to survive, got %d", got)
	}
}

func TestLogoutKeepsCreditsAndPrompts(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.Login(domain.User{Name: "Ada"})
	s.SavePrompt("t", "p")
	s.ReplaceHistory([]domain.ChatTurn{domain.NewTurn(domain.RoleUser, "hi")})

	s.Logout()
	snap := s.Snapshot()
	if snap.CurrentUser != nil {
		t.Fatal("expected no session")
	}
	if snap.CurrentView != domain.ViewLanding {
		t.Fatalf("expected landing, got %s", snap.CurrentView)
	}
	if len(snap.ChatHistory) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(snap.ChatHistory))
	}
	if snap.Credits != 20 || len(snap.SavedPrompts) != 1 {
		t.Fatalf("expected credits and prompts kept, got %d/%d", snap.Credits, len(snap.SavedPrompts))
	}
}

func TestDeductCreditsNeverGoesNegative(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.Login(domain.User{Name: "Ada"})

	if !s.DeductCredits(1) {
		t.Fatal("expected deduct to succeed")
	}
	if s.Credits() != 19 {
		t.Fatalf("expected 19, got %d", s.Credits())
	}
	if s.DeductCredits(20) {
		t.Fatal("expected deduct beyond balance to fail")
	}
	if s.Credits() != 19 {
		t.Fatalf("expected unchanged balance, got %d", s.Credits())
	}
	if s.DeductCredits(-3) {
		t.Fatal("expected negative deduct to fail")
	}
}

func TestDeductUntilEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.Login(domain.User{Name: "Ada"})

	for i := 0; i < 20; i++ {
		if !s.DeductCredits(1) {
			t.Fatalf("deduct %d failed", i+1)
		}
	}
	if s.DeductCredits(1) {
		t.Fatal("expected 21st deduct to fail")
	}
	if s.CheckCredits() {
		t.Fatal("expected CheckCredits false at zero")
	}
	if s.Credits() != 0 {
		t.Fatalf("expected 0, got %d", s.Credits())
	}
}

func TestCanAfford(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddCredits(4)

	tests := []struct {
		cost int
		want bool
	}{
		{0, true},
		{1, true},
		{4, true},
		{5, false},
		{-1, false},
	}
	for _, tt := range tests {
		if got := s.CanAfford(tt.cost); got != tt.want {
			t.Errorf("CanAfford(%d) = %v, want %v", tt.cost, got, tt.want)
		}
	}
	if s.Credits() != 4 {
		t.Fatalf("CanAfford must not change balance, got %d", s.Credits())
	}
}

func TestAddCreditsIgnoresNonPositive(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddCredits(50)
	s.AddCredits(0)
	s.AddCredits(-10)
	if s.Credits() != 50 {
		t.Fatalf("expected 50, got %d", s.Credits())
	}
}

func TestSavePromptOrderingAndDelete(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

	a := s.SavePrompt("first", "A")
	b := s.SavePrompt("second", "B")
	if a.ID == b.ID {
		t.Fatal("expected distinct ids")
	}
	if a.Timestamp != "3/5/2024, 2:07:09 PM" {
		t.Fatalf("unexpected timestamp %q", a.Timestamp)
	}

	snap := s.Snapshot()
	if len(snap.SavedPrompts) != 2 || snap.SavedPrompts[0].ID != b.ID || snap.SavedPrompts[1].ID != a.ID {
		t.Fatalf("expected most recent first, got %+v", snap.SavedPrompts)
	}

	s.DeletePrompt("missing")
	if len(s.Snapshot().SavedPrompts) != 2 {
		t.Fatal("unknown id must be a no-op")
	}

	s.DeletePrompt(b.ID)
	snap = s.Snapshot()
	if len(snap.SavedPrompts) != 1 || snap.SavedPrompts[0].ID != a.ID {
		t.Fatalf("expected only first prompt left, got %+v", snap.SavedPrompts)
	}
	if _, ok := s.FindPrompt(b.ID); ok {
		t.Fatal("expected deleted prompt to be gone")
	}
}

func TestAppendFromPreviousAndRollback(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.Login(domain.User{Name: "Ada"})

	s.AppendFromPrevious(func(prev []domain.ChatTurn) []domain.ChatTurn {
		return append(prev, domain.NewTurn(domain.RoleUser, "hi"))
	})
	s.AppendFromPrevious(func(prev []domain.ChatTurn) []domain.ChatTurn {
		return prev[:len(prev)-1]
	})

	if got := len(s.Snapshot().ChatHistory); got != 0 {
		t.Fatalf("expected rollback to empty history, got %d", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.ReplaceHistory([]domain.ChatTurn{domain.NewTurn(domain.RoleUser, "hi")})

	snap := s.Snapshot()
	snap.ChatHistory[0].Parts[0].Text = "mutated"

	if got := s.Snapshot().ChatHistory[0].Text(); got != "hi" {
		t.Fatalf("snapshot aliased store internals: %q", got)
	}
}

func TestHandoffConsumedOnceAndNotPersisted(t *testing.T) {
	s, b, _ := newTestStore(t)
	s.Login(domain.User{Name: "Ada"})
	saves := b.saves

	s.SetPromptForCodeBuilder("build a todo app")
	if b.saves != saves {
		t.Fatal("handoff must not trigger a save")
	}
	if got := s.TakePromptForCodeBuilder(); got != "build a todo app" {
		t.Fatalf("unexpected handoff %q", got)
	}
	if got := s.TakePromptForCodeBuilder(); got != "" {
		t.Fatalf("expected handoff consumed, got %q", got)
	}
}

func TestUpdateChatSettingsToasts(t *testing.T) {
	s, b, n := newTestStore(t)
	s.UpdateChatSettings(domain.ChatSettings{Persona: "Code Wizard", Tone: "Casual", Temperature: 1.5})

	snap := s.Snapshot()
	if snap.ChatSettings.Persona != "Code Wizard" || snap.ChatSettings.Temperature != 1 {
		t.Fatalf("unexpected settings %+v", snap.ChatSettings)
	}
	if len(n.toasts) != 1 || n.toasts[0] != "Chat settings saved!" {
		t.Fatalf("unexpected toasts %v", n.toasts)
	}
	if b.last("dev_test").ChatSettings.Persona != "Code Wizard" {
		t.Fatal("expected settings persisted")
	}
}

func TestNavigatePersists(t *testing.T) {
	s, b, _ := newTestStore(t)
	s.Navigate(domain.ViewStore)
	if b.last("dev_test").CurrentView != domain.ViewStore {
		t.Fatal("expected view persisted")
	}
}

func TestRegistryLoadsOnce(t *testing.T) {
	b := newFakeBackend()
	r := NewRegistry(b, nil, DefaultOptions())
	ctx := context.Background()

	first := r.Get(ctx, "dev_a")
	second := r.Get(ctx, "dev_a")
	if first != second {
		t.Fatal("expected same store for same device")
	}
	if b.loads != 1 {
		t.Fatalf("expected one load, got %d", b.loads)
	}
	if r.Get(ctx, "dev_b") == first {
		t.Fatal("expected distinct stores per device")
	}
}

func TestRegistryEvictIdleReloadsPersistedState(t *testing.T) {
	b := newFakeBackend()
	r := NewRegistry(b, nil, DefaultOptions())
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	st := r.Get(ctx, "dev_a")
	st.Login(domain.User{Name: "Ada"})
	st.AddCredits(5)

	now = now.Add(time.Hour)
	r.Get(ctx, "dev_b")

	evicted := r.EvictIdle(30 * time.Minute)
	if len(evicted) != 1 || evicted[0] != "dev_a" {
		t.Fatalf("expected dev_a evicted, got %v", evicted)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one loaded store, got %d", r.Len())
	}

	reloaded := r.Get(ctx, "dev_a")
	if reloaded == st {
		t.Fatal("expected a fresh store after eviction")
	}
	if reloaded.Credits() != 25 {
		t.Fatalf("expected persisted credits 25, got %d", reloaded.Credits())
	}
}

func TestConcurrentDeductsNeverOverspend(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddCredits(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.DeductCredits(1) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 || s.Credits() != 0 {
		t.Fatalf("expected 10 successful deducts and 0 left, got %d/%d", succeeded, s.Credits())
	}
}

func TestRegistryEvictIdleSkipsHeldAndTouchedStores(t *testing.T) {
	b := newFakeBackend()
	r := NewRegistry(b, nil, DefaultOptions())
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	held := r.Get(ctx, "dev_held")
	release := held.Hold()
	busy := r.Get(ctx, "dev_busy")

	// dev_busy finishes a long request: its mutation lands after the last Get.
	now = now.Add(50 * time.Minute)
	busy.Login(domain.User{Name: "Ada"})

	now = now.Add(10 * time.Minute)
	if evicted := r.EvictIdle(30 * time.Minute); len(evicted) != 0 {
		t.Fatalf("expected nothing evicted, got %v", evicted)
	}
	if r.Get(ctx, "dev_held") != held {
		t.Fatal("held store must survive eviction")
	}

	release()
	release()
	if held.Held() {
		t.Fatal("release must be idempotent")
	}

	now = now.Add(time.Hour)
	evicted := r.EvictIdle(30 * time.Minute)
	if len(evicted) != 2 {
		t.Fatalf("expected both stores evicted once idle, got %v", evicted)
	}
}
