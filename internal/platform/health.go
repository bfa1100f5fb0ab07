package platform

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the recorded health of one platform.
type HealthStatus struct {
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	Message     string
}

// Health tracks per-platform reachability over time. Safe for concurrent
// use; the serve endpoint reads it while probes update it.
type Health struct {
	mu        sync.RWMutex
	platforms map[Name]*HealthStatus
}

// NewHealth creates an empty health tracker.
func NewHealth() *Health {
	return &Health{
		platforms: make(map[Name]*HealthStatus),
	}
}

// Record stores the outcome of one reachability probe.
func (h *Health) Record(name Name, healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	status, ok := h.platforms[name]
	if !ok {
		status = &HealthStatus{}
		h.platforms[name] = status
	}

	status.Healthy = healthy
	status.LastCheck = now
	if healthy {
		status.LastSuccess = now
		status.Message = "reachable"
	} else {
		status.Message = "unreachable"
	}
}

// Probe runs the manager's status checks and records every outcome.
func (h *Health) Probe(ctx context.Context, m *Manager) {
	for name, ok := range m.CheckAll(ctx) {
		h.Record(name, ok)
	}
}

// Status returns a copy of one platform's status, or nil if never probed.
func (h *Health) Status(name Name) *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, ok := h.platforms[name]
	if !ok {
		return nil
	}
	copied := *status
	return &copied
}

// Statuses returns a copy of every recorded status.
func (h *Health) Statuses() map[Name]HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[Name]HealthStatus, len(h.platforms))
	for name, status := range h.platforms {
		out[name] = *status
	}
	return out
}

// Healthy reports whether every probed platform is reachable. An empty
// tracker is healthy.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.platforms {
		if !status.Healthy {
			return false
		}
	}
	return true
}
