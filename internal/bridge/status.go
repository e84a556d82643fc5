package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSnapshotInterval is the minimum gap between snapshot writes.
const DefaultSnapshotInterval = 100 * time.Millisecond

// LastExchange is the most recent completed round, as surfaced to UI
// observers.
type LastExchange struct {
	User      string `json:"user"`
	Atlas     string `json:"atlas"`
	UpdatedAt string `json:"updated_at"`
}

// SessionStatus is the diagnostic snapshot exported for external observers.
// Gamification belongs to an external collaborator and passes through
// opaquely.
type SessionStatus struct {
	UpdatedAt    string                 `json:"updated_at"`
	UIState      map[string]interface{} `json:"ui_state"`
	Gamification json.RawMessage        `json:"gamification,omitempty"`
	Timing       map[string]int64       `json:"timing"`
	LastExchange *LastExchange          `json:"last_exchange,omitempty"`
}

// StatusWriter publishes session_status.json. Writes go to a temporary file
// in the same directory followed by an atomic rename, so a reader never
// observes a half-written document. Writes closer together than the minimum
// interval are skipped to bound I/O pressure.
type StatusWriter struct {
	dir         Dir
	minInterval time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	lastWrite time.Time
}

// NewStatusWriter creates a rate-limited snapshot writer.
func NewStatusWriter(dir Dir, minInterval time.Duration, logger *zap.Logger) *StatusWriter {
	if minInterval <= 0 {
		minInterval = DefaultSnapshotInterval
	}
	return &StatusWriter{dir: dir, minInterval: minInterval, logger: logger}
}

// Write publishes a snapshot. Returns true when the snapshot was written,
// false when it was skipped by the rate limit.
func (w *StatusWriter) Write(status SessionStatus) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastWrite.IsZero() && now.Sub(w.lastWrite) < w.minInterval {
		return false, nil
	}

	status.UpdatedAt = now.Format(time.RFC3339Nano)
	if status.UIState == nil {
		status.UIState = map[string]interface{}{}
	}
	if status.Timing == nil {
		status.Timing = map[string]int64{}
	}

	data, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("marshal session status: %w", err)
	}

	target := w.dir.File(SessionStatusFile)
	tmp, err := os.CreateTemp(w.dir.Path(), ".session_status-*")
	if err != nil {
		return false, fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("publish snapshot: %w", err)
	}

	w.lastWrite = now
	return true, nil
}

// ReadSessionStatus loads the published snapshot with a bounded retry
// budget against a writer mid-rename on filesystems without atomic
// semantics. A snapshot still unparsable after the budget is a
// *CorruptSnapshotError; a snapshot that does not exist yet returns a zero
// value without error.
func ReadSessionStatus(dir Dir) (SessionStatus, error) {
	path := dir.File(SessionStatusFile)
	var lastErr error
	for attempt := 0; attempt < snapshotReadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(snapshotReadBackoff)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return SessionStatus{}, nil
			}
			lastErr = err
			continue
		}
		var status SessionStatus
		if err := json.Unmarshal(data, &status); err != nil {
			lastErr = err
			continue
		}
		return status, nil
	}
	return SessionStatus{}, &CorruptSnapshotError{Path: filepath.Clean(path), Err: lastErr}
}
