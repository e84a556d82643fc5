// Package interaction drives the capture lifecycle of one client session:
// idle -> listening -> processing -> speaking -> idle. The machine selects
// nothing itself; callers observe transitions through the event channel and
// drive whichever transport is configured.
package interaction

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
)

const eventBuffer = 64

// Event is one observable state transition.
type Event struct {
	From      entities.InteractionState `json:"from"`
	To        entities.InteractionState `json:"to"`
	Reason    string                    `json:"reason,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Machine is the per-session interaction state machine. All transitions are
// serialized; an illegal trigger is rejected as a no-op, never queued.
type Machine struct {
	mu     sync.Mutex
	state  entities.InteractionState
	events chan Event
	logger *zap.Logger
}

// NewMachine creates a machine in the idle state.
func NewMachine(logger *zap.Logger) *Machine {
	return &Machine{
		state:  entities.StateIdle,
		events: make(chan Event, eventBuffer),
		logger: logger,
	}
}

// State returns the current state.
func (m *Machine) State() entities.InteractionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Events exposes the transition stream for UI or logging observers.
func (m *Machine) Events() <-chan Event {
	return m.events
}

// StartListening begins capture. Permitted only from idle; re-entry while a
// transport is mid-transaction is rejected.
func (m *Machine) StartListening() bool {
	return m.transition(entities.StateIdle, entities.StateListening, "capture-start")
}

// StopListening flushes capture toward the transport.
func (m *Machine) StopListening() bool {
	return m.transition(entities.StateListening, entities.StateProcessing, "capture-stop")
}

// ResponseReady begins playback of the decoded response.
func (m *Machine) ResponseReady() bool {
	return m.transition(entities.StateProcessing, entities.StateSpeaking, "response-ready")
}

// PlaybackComplete returns to idle after playback finishes.
func (m *Machine) PlaybackComplete() bool {
	return m.transition(entities.StateSpeaking, entities.StateIdle, "playback-complete")
}

// Fail returns directly to idle from any non-idle state so the next capture
// can begin; no partial state persists.
func (m *Machine) Fail(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == entities.StateIdle {
		return false
	}
	from := m.state
	m.state = entities.StateIdle
	m.emit(Event{From: from, To: entities.StateIdle, Reason: reason, Timestamp: time.Now()})
	return true
}

func (m *Machine) transition(from, to entities.InteractionState, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		m.logger.Debug("Transition rejected",
			zap.String("state", string(m.state)),
			zap.String("trigger", reason))
		return false
	}
	m.state = to
	m.emit(Event{From: from, To: to, Reason: reason, Timestamp: time.Now()})
	return true
}

// emit never blocks a transition on a slow observer.
func (m *Machine) emit(event Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Warn("Event channel full, dropping transition event",
			zap.String("from", string(event.From)),
			zap.String("to", string(event.To)))
	}
}
