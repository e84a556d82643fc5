package websocket

import "encoding/json"

// Message types exchanged as JSON text frames. Audio travels as binary
// frames of little-endian float32 samples between listening_start and
// listening_end (inbound) and between speaking_start and speaking_end
// (outbound).
const (
	TypeListeningStart = "listening_start"
	TypeListeningEnd   = "listening_end"
	TypeSpeakingStart  = "speaking_start"
	TypeSpeakingEnd    = "speaking_end"
	TypeStateChanged   = "state_changed"
	TypeError          = "error"
)

// InboundMessage is the envelope for control messages from the client.
type InboundMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Language   string `json:"language,omitempty"`
}

// OutboundMessage is the envelope for control messages to the client.
type OutboundMessage struct {
	Type         string `json:"type"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	State        string `json:"state,omitempty"`
	UserText     string `json:"user_text,omitempty"`
	ResponseText string `json:"response_text,omitempty"`
	Category     string `json:"category,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ParseInbound decodes one inbound control message.
func ParseInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// Encode marshals an outbound message; marshal errors cannot occur for this
// shape so the result is always valid JSON.
func (m OutboundMessage) Encode() []byte {
	data, _ := json.Marshal(m)
	return data
}
