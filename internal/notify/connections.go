package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Conn is the subset of *websocket.Conn the registry needs.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Connections tracks open notification sockets per device and tab.
type Connections struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		active: make(map[string]map[string]Conn),
	}
}

// Get returns the connection for a device and tab.
func (m *Connections) Get(deviceID, tabID string) Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[deviceID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Count returns how many tabs of deviceID are connected.
func (m *Connections) Count(deviceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[deviceID])
}

// Register adds a connection, replacing an older one for the same tab.
func (m *Connections) Register(deviceID, tabID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[deviceID]; !exists {
		m.active[deviceID] = make(map[string]Conn)
	}

	if existing, exists := m.active[deviceID][tabID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "tab replaced")
	}

	m.active[deviceID][tabID] = conn
	slog.Debug("Notification socket registered", "device_id", deviceID, "tab_id", tabID)
}

// Unregister removes conn if it is still the registered one for the tab.
func (m *Connections) Unregister(deviceID, tabID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[deviceID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, deviceID)
			}
			slog.Debug("Notification socket unregistered", "device_id", deviceID, "tab_id", tabID)
		}
	}
}

// CloseDevice closes every socket of deviceID.
func (m *Connections) CloseDevice(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs, ok := m.active[deviceID]
	if !ok {
		return
	}
	for tid, conn := range tabs {
		_ = conn.Close(websocket.StatusNormalClosure, "device closed")
		slog.Debug("Notification socket closed", "device_id", deviceID, "tab_id", tid)
	}
	delete(m.active, deviceID)
}

type toastMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Message string `json:"message"`
	TTLMS   int64  `json:"ttl_ms"`
}

// Broadcast writes t to every connected tab of deviceID. Write failures are
// logged and otherwise ignored; the toast is still queued for the next render.
func (m *Connections) Broadcast(deviceID string, t Toast, ttl time.Duration) {
	m.mu.RLock()
	targets := make([]Conn, 0, len(m.active[deviceID]))
	for _, c := range m.active[deviceID] {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(toastMessage{
		Type:    "toast",
		ID:      t.ID,
		Message: t.Message,
		TTLMS:   ttl.Milliseconds(),
	})
	if err != nil {
		slog.Error("Failed to encode toast", "error", err)
		return
	}

	for _, c := range targets {
		go func(c Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Debug("Toast push failed", "device_id", deviceID, "error", err)
			}
		}(c)
	}
}
