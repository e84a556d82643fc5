package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/internal/audio"
)

// Requester defaults.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultTimeout      = 60 * time.Second

	snapshotReadRetries = 3
	snapshotReadBackoff = 20 * time.Millisecond
)

// RequesterConfig tunes the polling requester. Zero values take the
// defaults above.
type RequesterConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration

	// StrictSnapshots escalates a metadata record still unparsable after the
	// retry budget as a CorruptSnapshotError. When false the failure is
	// logged and empty metadata is returned instead.
	StrictSnapshots bool
}

// Requester drives one transaction at a time against a bridge directory.
// It must not submit a new command until the previous status has been
// consumed; AwaitResult consumes it.
type Requester struct {
	dir    Dir
	cfg    RequesterConfig
	logger *zap.Logger
}

// NewRequester creates a control-channel requester.
func NewRequester(dir Dir, cfg RequesterConfig, logger *zap.Logger) *Requester {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Requester{dir: dir, cfg: cfg, logger: logger}
}

// Submit starts a transaction: clears any prior status sentinel, writes the
// audio payload, then writes the command sentinel. The order guarantees a
// polling responder never observes a command before its payload is fully
// written.
func (r *Requester) Submit(samples []float32) error {
	if err := os.Remove(r.dir.File(StatusFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear status sentinel: %w", err)
	}
	if err := os.WriteFile(r.dir.File(AudioInFile), audio.EncodeFloat32(samples), 0o644); err != nil {
		return fmt.Errorf("write audio payload: %w", err)
	}
	if err := os.WriteFile(r.dir.File(CommandFile), []byte(CommandProcess), 0o644); err != nil {
		return fmt.Errorf("write command sentinel: %w", err)
	}
	return nil
}

// AwaitResult polls for the completion marker at the configured interval and
// consumes the response: reads the metadata record and the audio payload,
// then removes the payload and status files (consume-once). A transaction
// still pending past the timeout is abandoned with a *TimeoutError.
func (r *Requester) AwaitResult(ctx context.Context) ([]float32, Metadata, error) {
	deadline := time.Now().Add(r.cfg.Timeout)
	for {
		done, err := r.statusDone()
		if err != nil {
			return nil, Metadata{}, err
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			return nil, Metadata{}, &TimeoutError{Waited: r.cfg.Timeout}
		}
		select {
		case <-ctx.Done():
			return nil, Metadata{}, ctx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}

	meta, err := r.readMetadata()
	if err != nil {
		return nil, Metadata{}, err
	}

	data, err := os.ReadFile(r.dir.File(AudioOutFile))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read response payload: %w", err)
	}
	samples, err := audio.DecodeFloat32(data)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("decode response payload: %w", err)
	}

	if err := os.Remove(r.dir.File(AudioOutFile)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("Failed to remove consumed response payload", zap.Error(err))
	}
	if err := os.Remove(r.dir.File(StatusFile)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("Failed to remove consumed status sentinel", zap.Error(err))
	}

	return samples, meta, nil
}

// RequestStop writes the terminate sentinel. Idempotent: repeated calls
// overwrite the same file with the same word.
func (r *Requester) RequestStop() error {
	if err := os.WriteFile(r.dir.File(CommandFile), []byte(CommandQuit), 0o644); err != nil {
		return fmt.Errorf("write terminate sentinel: %w", err)
	}
	return nil
}

// statusDone reports whether the responder has written the completion
// marker. A missing file means pending; a partially written file is treated
// as not yet available and polled again.
func (r *Requester) statusDone() (bool, error) {
	data, err := os.ReadFile(r.dir.File(StatusFile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read status sentinel: %w", err)
	}
	return string(bytes.TrimSpace(data)) == StatusDone, nil
}

// readMetadata reads the metadata record with a bounded retry budget to
// ride out a responder mid-write. After the budget the failure either
// escalates (strict) or degrades to empty metadata, logged either way.
func (r *Requester) readMetadata() (Metadata, error) {
	path := r.dir.File(MetadataFile)
	var lastErr error
	for attempt := 0; attempt < snapshotReadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(snapshotReadBackoff)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		meta, err := ParseMetadata(data)
		if err != nil {
			lastErr = err
			continue
		}
		return meta, nil
	}

	corrupt := &CorruptSnapshotError{Path: path, Err: lastErr}
	if r.cfg.StrictSnapshots {
		return Metadata{}, corrupt
	}
	r.logger.Warn("Metadata unreadable after retries, continuing without it", zap.Error(corrupt))
	return Metadata{}, nil
}
