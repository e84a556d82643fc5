package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/internal/interaction"
)

// Transport submits one captured utterance to the processing back end over
// whichever substrate is configured (streaming socket or file-sentinel
// bridge) and returns the response audio.
type Transport interface {
	SendUtterance(ctx context.Context, samples []float32) ([]float32, error)
	Stop() error
}

// ErrNotListening is returned when capture frames arrive outside the
// listening state.
var ErrNotListening = errors.New("push-to-talk: not listening")

// PushToTalk is the front-end controller: it owns the interaction state
// machine, buffers capture frames while listening, and drives the
// configured transport on release.
type PushToTalk struct {
	machine   *interaction.Machine
	transport Transport
	logger    *zap.Logger

	mu      sync.Mutex
	capture []float32
}

// NewPushToTalk creates a controller in the idle state.
func NewPushToTalk(transport Transport, logger *zap.Logger) *PushToTalk {
	return &PushToTalk{
		machine:   interaction.NewMachine(logger),
		transport: transport,
		logger:    logger,
	}
}

// Machine exposes the state machine for observers.
func (p *PushToTalk) Machine() *interaction.Machine {
	return p.machine
}

// BeginCapture transitions idle -> listening. Re-entry while a transport is
// mid-transaction is rejected as a no-op.
func (p *PushToTalk) BeginCapture() bool {
	if !p.machine.StartListening() {
		return false
	}
	p.mu.Lock()
	p.capture = p.capture[:0]
	p.mu.Unlock()
	return true
}

// Feed buffers one capture slice. Only legal while listening.
func (p *PushToTalk) Feed(samples []float32) error {
	if p.machine.State() != entities.StateListening {
		return ErrNotListening
	}
	p.mu.Lock()
	p.capture = append(p.capture, samples...)
	p.mu.Unlock()
	return nil
}

// EndCapture releases the trigger: stops the capture producer, flushes the
// buffered frames to the transport, and blocks for the response. Every
// failure path returns the machine to idle so the next capture can begin.
func (p *PushToTalk) EndCapture(ctx context.Context) ([]float32, error) {
	if !p.machine.StopListening() {
		return nil, ErrNotListening
	}

	p.mu.Lock()
	utterance := make([]float32, len(p.capture))
	copy(utterance, p.capture)
	p.capture = p.capture[:0]
	p.mu.Unlock()

	response, err := p.transport.SendUtterance(ctx, utterance)
	if err != nil {
		p.machine.Fail(err.Error())
		return nil, err
	}

	p.machine.ResponseReady()
	return response, nil
}

// PlaybackComplete reports the playback consumer finished.
func (p *PushToTalk) PlaybackComplete() {
	p.machine.PlaybackComplete()
}

// Cancel aborts the current exchange: the transport is told to stop and the
// machine returns to idle.
func (p *PushToTalk) Cancel(reason string) {
	if err := p.transport.Stop(); err != nil {
		p.logger.Warn("Failed to signal transport stop", zap.Error(err))
	}
	p.machine.Fail(reason)
}
