package bridge

import (
	"bytes"
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/internal/audio"
)

// RoundHandler processes one captured utterance and returns the response
// audio.
type RoundHandler interface {
	ProcessRound(ctx context.Context, samples []float32) ([]float32, error)
}

// Responder serves the bridge directory: it polls the command sentinel,
// processes PROCESS transactions through the handler, and stops on QUIT.
// It serves one transaction at a time; the requester lives in another
// process and no shared synchronization primitive crosses the boundary.
type Responder struct {
	dir          Dir
	handler      RoundHandler
	meta         Metadata
	events       *EventLog
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewResponder creates a responder that answers transactions with the given
// response metadata (sample rate, voice selector). Every served response is
// recorded in the audio event log.
func NewResponder(dir Dir, handler RoundHandler, meta Metadata, pollInterval time.Duration, logger *zap.Logger) *Responder {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Responder{
		dir:          dir,
		handler:      handler,
		meta:         meta,
		events:       NewEventLog(dir),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run polls until a QUIT command arrives or the context is cancelled.
func (r *Responder) Run(ctx context.Context) error {
	r.logger.Info("Control channel responder started",
		zap.String("dir", r.dir.Path()),
		zap.Duration("pollInterval", r.pollInterval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}

		command, ok := r.consumeCommand()
		if !ok {
			continue
		}

		switch command {
		case CommandProcess:
			r.serveTransaction(ctx)
		case CommandQuit:
			r.logger.Info("Terminate sentinel received, responder stopping")
			return nil
		case CommandStart, CommandEnd:
			// Recording markers are handled by the capture front end; a stray
			// one here is consumed and ignored.
			r.logger.Debug("Ignoring recording marker", zap.String("command", command))
		default:
			r.logger.Warn("Unknown command sentinel", zap.String("command", command))
		}
	}
}

// consumeCommand reads and removes the command sentinel. Removing it first
// guarantees a transaction is served at most once even if processing is
// slower than the poll interval.
func (r *Responder) consumeCommand() (string, bool) {
	path := r.dir.File(CommandFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("Failed to read command sentinel", zap.Error(err))
		}
		return "", false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Error("Failed to consume command sentinel", zap.Error(err))
	}
	command := string(bytes.TrimSpace(data))
	if command == "" {
		return "", false
	}
	return command, true
}

// serveTransaction answers one PROCESS transaction: read the payload, run
// the handler, write the response payload and metadata, then the DONE
// marker last so the requester never observes a completed status before its
// payload. Handler failure still completes the transaction with an empty
// payload so the requester is not left waiting out its timeout.
func (r *Responder) serveTransaction(ctx context.Context) {
	data, err := os.ReadFile(r.dir.File(AudioInFile))
	if err != nil {
		r.logger.Error("Transaction has no readable payload", zap.Error(err))
		return
	}
	samples, err := audio.DecodeFloat32(data)
	if err != nil {
		r.logger.Error("Failed to decode request payload", zap.Error(err))
		return
	}

	started := time.Now()
	out, err := r.handler.ProcessRound(ctx, samples)
	if err != nil {
		r.logger.Error("Round processing failed", zap.Error(err))
		out = nil
	}

	if err := os.WriteFile(r.dir.File(AudioOutFile), audio.EncodeFloat32(out), 0o644); err != nil {
		r.logger.Error("Failed to write response payload", zap.Error(err))
		return
	}
	if err := os.WriteFile(r.dir.File(MetadataFile), r.meta.Encode(), 0o644); err != nil {
		r.logger.Error("Failed to write response metadata", zap.Error(err))
		return
	}
	if err := os.WriteFile(r.dir.File(StatusFile), []byte(StatusDone), 0o644); err != nil {
		r.logger.Error("Failed to write completion marker", zap.Error(err))
		return
	}

	if _, err := r.events.Append(AudioOutFile, "response"); err != nil {
		r.logger.Warn("Failed to record audio event", zap.Error(err))
	}

	r.logger.Info("Transaction completed",
		zap.Int("requestSamples", len(samples)),
		zap.Int("responseSamples", len(out)),
		zap.Duration("elapsed", time.Since(started)))
}
