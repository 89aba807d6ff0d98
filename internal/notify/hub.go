// Package notify holds the transient UI layer: short-lived toasts and a
// single modal slot per device, plus live delivery of toasts to open tabs.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 3 * time.Second

// Toast is a transient message.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ModalKind selects which dialog occupies the modal slot.
type ModalKind string

const (
	ModalLogin               ModalKind = "login"
	ModalSignup              ModalKind = "signup"
	ModalChatSettings        ModalKind = "chat-settings"
	ModalOutOfCredits        ModalKind = "out-of-credits"
	ModalInsufficientCredits ModalKind = "insufficient-credits"
	ModalPromptView          ModalKind = "prompt-view"
)

// Modal is the dialog currently shown to a device.
type Modal struct {
	Kind    ModalKind
	Message string
	Cost    int
	Ref     string
}

// Hub tracks toasts and modals per device. Toasts are queued for the next
// page render and pushed to every connected tab.
type Hub struct {
	mu     sync.Mutex
	toasts map[string][]Toast
	modals map[string]Modal
	ttl    time.Duration
	now    func() time.Time
	conns  *Connections
}

// NewHub creates a hub whose toasts live for ttl.
func NewHub(ttl time.Duration) *Hub {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Hub{
		toasts: make(map[string][]Toast),
		modals: make(map[string]Modal),
		ttl:    ttl,
		now:    time.Now,
		conns:  NewConnections(),
	}
}

// Connections returns the live connection registry.
func (h *Hub) Connections() *Connections {
	return h.conns
}

// TTL returns the toast lifetime.
func (h *Hub) TTL() time.Duration {
	return h.ttl
}

// Toast queues message for deviceID and pushes it to connected tabs.
func (h *Hub) Toast(deviceID, message string) {
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		ExpiresAt: h.now().Add(h.ttl),
	}

	h.mu.Lock()
	h.toasts[deviceID] = append(h.prune(deviceID), t)
	h.mu.Unlock()

	h.conns.Broadcast(deviceID, t, h.ttl)
}

// Pending returns unexpired toasts without consuming them.
func (h *Hub) Pending(deviceID string) []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.prune(deviceID)
	out := make([]Toast, len(live))
	copy(out, live)
	return out
}

// Drain returns unexpired toasts and clears the queue.
func (h *Hub) Drain(deviceID string) []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.prune(deviceID)
	delete(h.toasts, deviceID)
	return live
}

// prune drops expired toasts. Callers hold h.mu.
func (h *Hub) prune(deviceID string) []Toast {
	queue := h.toasts[deviceID]
	if len(queue) == 0 {
		return nil
	}
	now := h.now()
	live := queue[:0]
	for _, t := range queue {
		if t.ExpiresAt.After(now) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		delete(h.toasts, deviceID)
		return nil
	}
	h.toasts[deviceID] = live
	return live
}

// ShowModal replaces whatever occupies the device's modal slot.
func (h *Hub) ShowModal(deviceID string, m Modal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modals[deviceID] = m
}

// HideModal empties the device's modal slot.
func (h *Hub) HideModal(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.modals, deviceID)
}

// Modal returns the device's current modal.
func (h *Hub) Modal(deviceID string) (Modal, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.modals[deviceID]
	return m, ok
}

// Forget drops all transient state for deviceID and closes its tabs' sockets.
func (h *Hub) Forget(deviceID string) {
	h.mu.Lock()
	delete(h.toasts, deviceID)
	delete(h.modals, deviceID)
	h.mu.Unlock()

	h.conns.CloseDevice(deviceID)
}
