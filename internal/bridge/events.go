package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AudioEvent is one audio-playback event record.
type AudioEvent struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	Timestamp string `json:"timestamp"`
	Context   string `json:"context"`
}

// EventLog appends audio-playback events to audio_events.jsonl, one JSON
// record per line.
type EventLog struct {
	path string
	mu   sync.Mutex
}

// NewEventLog creates the append-only event log for a bridge directory.
func NewEventLog(dir Dir) *EventLog {
	return &EventLog{path: dir.File(AudioEventsFile)}
}

// Append records one playback event.
func (l *EventLog) Append(file, context string) (AudioEvent, error) {
	event := AudioEvent{
		ID:        uuid.NewString(),
		File:      file,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Context:   context,
	}
	line, err := json.Marshal(event)
	if err != nil {
		return AudioEvent{}, fmt.Errorf("marshal audio event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return AudioEvent{}, fmt.Errorf("open audio event log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return AudioEvent{}, fmt.Errorf("append audio event: %w", err)
	}
	return event, nil
}
