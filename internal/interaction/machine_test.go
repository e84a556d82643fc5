package interaction

import (
	"testing"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
)

func TestFullRound(t *testing.T) {
	m := NewMachine(zap.NewNop())

	steps := []struct {
		name    string
		trigger func() bool
		want    entities.InteractionState
	}{
		{"start listening", m.StartListening, entities.StateListening},
		{"stop listening", m.StopListening, entities.StateProcessing},
		{"response ready", m.ResponseReady, entities.StateSpeaking},
		{"playback complete", m.PlaybackComplete, entities.StateIdle},
	}

	for _, step := range steps {
		if !step.trigger() {
			t.Fatalf("%s rejected from state %s", step.name, m.State())
		}
		if m.State() != step.want {
			t.Fatalf("after %s state = %s, want %s", step.name, m.State(), step.want)
		}
	}
}

func TestIllegalTransitionsAreNoOps(t *testing.T) {
	m := NewMachine(zap.NewNop())

	// From idle, only StartListening is legal.
	if m.StopListening() {
		t.Error("StopListening accepted from idle")
	}
	if m.ResponseReady() {
		t.Error("ResponseReady accepted from idle")
	}
	if m.PlaybackComplete() {
		t.Error("PlaybackComplete accepted from idle")
	}
	if m.State() != entities.StateIdle {
		t.Errorf("state = %s, want idle after rejected triggers", m.State())
	}
}

func TestReentryWhileBusy(t *testing.T) {
	m := NewMachine(zap.NewNop())
	m.StartListening()
	m.StopListening()

	if m.StartListening() {
		t.Error("StartListening accepted while processing")
	}
	if m.State() != entities.StateProcessing {
		t.Errorf("state = %s, want processing", m.State())
	}
}

func TestFailFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Machine)
	}{
		{"listening", func(m *Machine) { m.StartListening() }},
		{"processing", func(m *Machine) { m.StartListening(); m.StopListening() }},
		{"speaking", func(m *Machine) { m.StartListening(); m.StopListening(); m.ResponseReady() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(zap.NewNop())
			tt.setup(m)
			if !m.Fail("transport error") {
				t.Fatalf("Fail rejected from %s", tt.name)
			}
			if m.State() != entities.StateIdle {
				t.Errorf("state = %s, want idle after Fail", m.State())
			}
			// The machine is immediately reusable.
			if !m.StartListening() {
				t.Error("StartListening rejected after Fail")
			}
		})
	}
}

func TestFailFromIdleRejected(t *testing.T) {
	m := NewMachine(zap.NewNop())
	if m.Fail("nothing happening") {
		t.Error("Fail accepted from idle")
	}
}

func TestEventsObserveTransitions(t *testing.T) {
	m := NewMachine(zap.NewNop())
	m.StartListening()
	m.StopListening()

	ev := <-m.Events()
	if ev.From != entities.StateIdle || ev.To != entities.StateListening {
		t.Errorf("first event = %s -> %s, want idle -> listening", ev.From, ev.To)
	}
	ev = <-m.Events()
	if ev.From != entities.StateListening || ev.To != entities.StateProcessing {
		t.Errorf("second event = %s -> %s, want listening -> processing", ev.From, ev.To)
	}
	if ev.Reason != "capture-stop" {
		t.Errorf("Reason = %q, want %q", ev.Reason, "capture-stop")
	}
}
