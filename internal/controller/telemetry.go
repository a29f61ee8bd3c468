package controller

import (
	"sync"
	"time"

	"treasury-agent/internal/models"
)

// Telemetry is the orchestrator-owned observable state. Only the
// orchestrator mutates it; readers get value copies through View.
type Telemetry struct {
	mu   sync.RWMutex
	view models.TelemetryView
}

// NewTelemetry creates telemetry in its initial state: disabled, Monitoring.
func NewTelemetry() *Telemetry {
	return &Telemetry{
		view: models.TelemetryView{
			AgentEnabled: false,
			Status:       models.StatusMonitoring,
		},
	}
}

// SetEnabled flips the agent-enabled flag.
func (t *Telemetry) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.AgentEnabled = enabled
}

// SetStatus updates the status and its reason.
func (t *Telemetry) SetStatus(status models.AgentStatus, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.Status = status
	t.view.LastReason = reason
}

// SetNextTickAt records when the next tick will fire. Zero time clears it.
func (t *Telemetry) SetNextTickAt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at.IsZero() {
		t.view.NextTickAt = 0
		return
	}
	t.view.NextTickAt = at.UnixMilli()
}

// SetLastSnapshot stores the display-formatted snapshot summary.
func (t *Telemetry) SetLastSnapshot(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.LastSnapshot = summary
}

// View returns a copy of the observable state.
func (t *Telemetry) View() models.TelemetryView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}
