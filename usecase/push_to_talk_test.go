package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
)

type fakeTransport struct {
	response []float32
	err      error
	sent     []float32
	stopped  bool
}

func (f *fakeTransport) SendUtterance(ctx context.Context, samples []float32) ([]float32, error) {
	f.sent = append([]float32(nil), samples...)
	return f.response, f.err
}

func (f *fakeTransport) Stop() error {
	f.stopped = true
	return nil
}

func TestPushToTalkRound(t *testing.T) {
	transport := &fakeTransport{response: []float32{9, 9}}
	ptt := NewPushToTalk(transport, zap.NewNop())

	if !ptt.BeginCapture() {
		t.Fatal("BeginCapture() rejected from idle")
	}
	if err := ptt.Feed([]float32{1, 2}); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if err := ptt.Feed([]float32{3}); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	out, err := ptt.EndCapture(context.Background())
	if err != nil {
		t.Fatalf("EndCapture() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("response has %d samples, want 2", len(out))
	}
	if len(transport.sent) != 3 {
		t.Errorf("transport received %d samples, want 3", len(transport.sent))
	}
	if ptt.Machine().State() != entities.StateSpeaking {
		t.Errorf("state = %s, want speaking after response", ptt.Machine().State())
	}

	ptt.PlaybackComplete()
	if ptt.Machine().State() != entities.StateIdle {
		t.Errorf("state = %s, want idle after playback", ptt.Machine().State())
	}
}

func TestFeedOutsideListening(t *testing.T) {
	ptt := NewPushToTalk(&fakeTransport{}, zap.NewNop())
	if err := ptt.Feed([]float32{1}); !errors.Is(err, ErrNotListening) {
		t.Errorf("Feed() error = %v, want ErrNotListening", err)
	}
}

func TestEndCaptureWithoutBegin(t *testing.T) {
	ptt := NewPushToTalk(&fakeTransport{}, zap.NewNop())
	if _, err := ptt.EndCapture(context.Background()); !errors.Is(err, ErrNotListening) {
		t.Errorf("EndCapture() error = %v, want ErrNotListening", err)
	}
}

func TestBeginCaptureReentryRejected(t *testing.T) {
	ptt := NewPushToTalk(&fakeTransport{}, zap.NewNop())
	ptt.BeginCapture()
	if ptt.BeginCapture() {
		t.Error("BeginCapture() accepted while listening")
	}
}

func TestTransportFailureReturnsToIdle(t *testing.T) {
	transport := &fakeTransport{err: errors.New("timed out waiting for response")}
	ptt := NewPushToTalk(transport, zap.NewNop())

	ptt.BeginCapture()
	ptt.Feed([]float32{1})
	if _, err := ptt.EndCapture(context.Background()); err == nil {
		t.Fatal("EndCapture() error = nil, want transport failure")
	}
	if ptt.Machine().State() != entities.StateIdle {
		t.Errorf("state = %s, want idle after failure", ptt.Machine().State())
	}
	// Next round starts cleanly.
	if !ptt.BeginCapture() {
		t.Error("BeginCapture() rejected after recovery")
	}
}

func TestCancelStopsTransport(t *testing.T) {
	transport := &fakeTransport{}
	ptt := NewPushToTalk(transport, zap.NewNop())

	ptt.BeginCapture()
	ptt.Cancel("user abort")

	if !transport.stopped {
		t.Error("Cancel() did not signal the transport")
	}
	if ptt.Machine().State() != entities.StateIdle {
		t.Errorf("state = %s, want idle after cancel", ptt.Machine().State())
	}
}

func TestCaptureBufferResetsBetweenRounds(t *testing.T) {
	transport := &fakeTransport{}
	ptt := NewPushToTalk(transport, zap.NewNop())

	ptt.BeginCapture()
	ptt.Feed([]float32{1, 2, 3})
	ptt.EndCapture(context.Background())
	ptt.PlaybackComplete()

	ptt.BeginCapture()
	ptt.Feed([]float32{4})
	ptt.EndCapture(context.Background())

	if len(transport.sent) != 1 {
		t.Errorf("second round sent %d samples, want 1", len(transport.sent))
	}
}
