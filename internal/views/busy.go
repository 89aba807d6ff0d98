package views

import (
	"log/slog"
	"sync"
)

// busyGuard rejects a second in-flight request for the same device and
// action. It replaces the client-side "loading" flag.
type busyGuard struct {
	locks sync.Map
}

// TryAcquire returns a release func, or false if the action is already running.
func (g *busyGuard) TryAcquire(deviceID, action string) (func(), bool) {
	key := deviceID + ":" + action
	lock, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		slog.Warn("Request already in progress", "device_id", deviceID, "action", action)
		return nil, false
	}
	return mutex.Unlock, true
}

// Forget drops every lock of deviceID that is not held.
func (g *busyGuard) Forget(deviceID string) {
	prefix := deviceID + ":"
	g.locks.Range(func(k, v any) bool {
		key := k.(string)
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if m := v.(*sync.Mutex); m.TryLock() {
				g.locks.Delete(key)
				m.Unlock()
			}
		}
		return true
	})
}
