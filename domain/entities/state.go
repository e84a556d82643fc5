package entities

// InteractionState is the capture lifecycle state of a client session.
type InteractionState string

const (
	StateIdle       InteractionState = "idle"
	StateListening  InteractionState = "listening"
	StateProcessing InteractionState = "processing"
	StateSpeaking   InteractionState = "speaking"
)

// Valid reports whether s is one of the known interaction states.
func (s InteractionState) Valid() bool {
	switch s {
	case StateIdle, StateListening, StateProcessing, StateSpeaking:
		return true
	}
	return false
}
