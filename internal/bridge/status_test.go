package bridge

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStatusWriterPublishAndRead(t *testing.T) {
	dir := testDir(t)
	w := NewStatusWriter(dir, time.Millisecond, zap.NewNop())

	written, err := w.Write(SessionStatus{
		UIState: map[string]interface{}{"state": "speaking"},
		Timing:  map[string]int64{"total_ms": 420},
		LastExchange: &LastExchange{
			User:  "how did I sleep",
			Atlas: "Seven hours.",
		},
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !written {
		t.Fatal("Write() skipped the first snapshot")
	}

	status, err := ReadSessionStatus(dir)
	if err != nil {
		t.Fatalf("ReadSessionStatus() error = %v", err)
	}
	if status.UpdatedAt == "" {
		t.Error("UpdatedAt is empty")
	}
	if status.Timing["total_ms"] != 420 {
		t.Errorf("Timing[total_ms] = %d, want 420", status.Timing["total_ms"])
	}
	if status.LastExchange == nil || status.LastExchange.User != "how did I sleep" {
		t.Errorf("LastExchange = %+v, want user text preserved", status.LastExchange)
	}
}

func TestStatusWriterRateLimit(t *testing.T) {
	dir := testDir(t)
	w := NewStatusWriter(dir, time.Hour, zap.NewNop())

	if written, err := w.Write(SessionStatus{}); err != nil || !written {
		t.Fatalf("first Write() = (%v, %v), want (true, nil)", written, err)
	}
	if written, err := w.Write(SessionStatus{}); err != nil || written {
		t.Fatalf("second Write() = (%v, %v), want rate-limited (false, nil)", written, err)
	}
}

func TestReadSessionStatusAbsent(t *testing.T) {
	dir := testDir(t)
	status, err := ReadSessionStatus(dir)
	if err != nil {
		t.Fatalf("ReadSessionStatus(absent) error = %v", err)
	}
	if status.UpdatedAt != "" {
		t.Errorf("UpdatedAt = %q, want zero value", status.UpdatedAt)
	}
}

func TestReadSessionStatusCorrupt(t *testing.T) {
	dir := testDir(t)
	if err := os.WriteFile(dir.File(SessionStatusFile), []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadSessionStatus(dir)
	if _, ok := err.(*CorruptSnapshotError); !ok {
		t.Errorf("ReadSessionStatus(corrupt) error = %v, want *CorruptSnapshotError", err)
	}
}

func TestEventLogAppend(t *testing.T) {
	dir := testDir(t)
	log := NewEventLog(dir)

	first, err := log.Append(AudioOutFile, "response")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := log.Append(AudioOutFile, "response")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first.ID == second.ID {
		t.Error("event IDs are not unique")
	}

	f, err := os.Open(dir.File(AudioEventsFile))
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	defer f.Close()

	var events []AudioEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev AudioEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", len(events)+1, err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("event log has %d records, want 2", len(events))
	}
	if events[0].File != AudioOutFile || events[0].Context != "response" {
		t.Errorf("first event = %+v", events[0])
	}
}
