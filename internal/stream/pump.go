package stream

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Default capture profile: 100 ms slices of 16 kHz mono.
const (
	DefaultSampleRate = 16000

	// ChunkSamples is one 100 ms capture slice at the default rate.
	ChunkSamples = 1600

	// MaxUtteranceSamples bounds one capture between START_RECORDING and
	// STOP_RECORDING (two minutes at the default rate). MaxFramePayload only
	// bounds a single frame; this bounds the whole utterance.
	MaxUtteranceSamples = 120 * DefaultSampleRate
)

// SenderPump drains the capture channel and writes each slice as one audio
// frame, preserving capture order. It runs until the channel closes, the
// context is cancelled, or a write fails. A write failure terminates this
// loop only; tearing down the session is the caller's decision.
func SenderPump(ctx context.Context, conn *Conn, capture <-chan []float32, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case samples, ok := <-capture:
			if !ok {
				return nil
			}
			if err := conn.SendChunk(samples); err != nil {
				logger.Error("Failed to send audio chunk",
					zap.String("remote", conn.RemoteAddr()),
					zap.Error(err))
				return err
			}
		}
	}
}

// ReceiverPump blocks on the connection and enqueues decoded chunks onto the
// playback channel in arrival order. The playback channel is closed on exit
// so the consumer observes end of session. Returns nil on clean end of
// stream; any other read failure is returned after terminating the loop.
func ReceiverPump(ctx context.Context, conn *Conn, playback chan<- []float32, logger *zap.Logger) error {
	defer close(playback)
	for {
		samples, err := conn.ReceiveChunk()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logger.Error("Failed to receive audio chunk",
				zap.String("remote", conn.RemoteAddr()),
				zap.Error(err))
			return err
		}
		if samples == nil {
			// No output this turn.
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case playback <- samples:
		}
	}
}
