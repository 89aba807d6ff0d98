package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/prompt-forge/internal/domain"
)

// Loader reads a device's persisted state.
type Loader interface {
	Load(ctx context.Context, deviceID string) domain.AppState
}

// Backend loads and saves device state.
type Backend interface {
	Loader
	Persister
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Registry hands out one Store per device. A device's state is loaded from
// the backend the first time it is requested and kept until evicted.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	backend Backend
	notify  Notifier
	opts    Options
	now     func() time.Time
}

// NewRegistry creates a registry. notify may be nil.
func NewRegistry(backend Backend, notify Notifier, opts Options) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		backend: backend,
		notify:  notify,
		opts:    opts,
		now:     time.Now,
	}
}

// Get returns the store for deviceID, loading it on first use.
func (r *Registry) Get(ctx context.Context, deviceID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[deviceID]; ok {
		e.lastUsed = r.now()
		return e.store
	}

	initial := r.backend.Load(ctx, deviceID)
	st := NewStore(deviceID, initial, r.backend, r.notify, r.opts)
	st.onActivity = func() { r.touch(deviceID, st) }
	r.entries[deviceID] = &entry{store: st, lastUsed: r.now()}
	slog.Debug("Device state loaded", "device_id", deviceID, "view", initial.CurrentView)
	return st
}

// touch refreshes the idle clock of deviceID while st is still its store.
func (r *Registry) touch(deviceID string, st *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[deviceID]; ok && e.store == st {
		e.lastUsed = r.now()
	}
}

// Forget drops the in-memory store for deviceID. The next Get reloads it.
func (r *Registry) Forget(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, deviceID)
}

// Len returns the number of loaded stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle drops stores unused for longer than ttl and returns their device ids.
// Their state was persisted on the last mutation, so nothing is lost. Held
// stores are skipped.
func (r *Registry) EvictIdle(ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	var evicted []string
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) && !e.store.Held() {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

const evictionWorkerInterval = 5 * time.Minute

// EvictCallback is called for each device evicted by the worker.
type EvictCallback func(deviceID string)

// StartEvictionWorker runs a background goroutine that periodically drops
// idle device states from memory.
func StartEvictionWorker(ctx context.Context, r *Registry, ttl time.Duration, onEvict EvictCallback) {
	ticker := time.NewTicker(evictionWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Eviction worker started", "interval", evictionWorkerInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepIdle(r, ttl, onEvict)
			case <-ctx.Done():
				slog.Info("Eviction worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepIdle(r *Registry, ttl time.Duration, onEvict EvictCallback) {
	evicted := r.EvictIdle(ttl)
	if len(evicted) == 0 {
		return
	}
	for _, id := range evicted {
		if onEvict != nil {
			onEvict(id)
		}
	}
	slog.Info("Eviction worker sweep completed", "evicted", len(evicted), "loaded", r.Len())
}
