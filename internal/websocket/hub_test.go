package websocket

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/domain/repositories"
	"github.com/NotSquiz/atlas-bridge/internal/audio"
	"github.com/NotSquiz/atlas-bridge/internal/interaction"
	"github.com/NotSquiz/atlas-bridge/internal/stream"
	"github.com/NotSquiz/atlas-bridge/usecase"
)

type stubSTT struct{}

func (stubSTT) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	return "hello", nil
}

type stubTTS struct{ pcm []byte }

func (s *stubTTS) SynthesizeAudio(ctx context.Context, text string, voice repositories.VoiceConfig) ([]byte, error) {
	return s.pcm, nil
}

func (s *stubTTS) SynthesizeStream(ctx context.Context, text string, voice repositories.VoiceConfig) (<-chan []byte, error) {
	out := make(chan []byte, 1)
	out <- s.pcm
	close(out)
	return out, nil
}

type stubLLM struct{}

func (stubLLM) Respond(ctx context.Context, req repositories.ReplyRequest) (repositories.Reply, error) {
	return repositories.Reply{Text: "hi", Category: "general"}, nil
}

type stubExchanges struct{}

func (stubExchanges) Append(ctx context.Context, userText, responseText, category string) (entities.Exchange, error) {
	return entities.NewExchange(userText, responseText, category), nil
}

func (stubExchanges) Recent(ctx context.Context, maxN int) ([]entities.Exchange, error) {
	return nil, nil
}

func (stubExchanges) LastCategory(ctx context.Context) (string, bool, error) { return "", false, nil }
func (stubExchanges) Clear(ctx context.Context) error                        { return nil }
func (stubExchanges) Close() error                                           { return nil }

func newTestHub(pcmSamples int) *Hub {
	svc := usecase.NewConversationService(
		stubSTT{},
		&stubTTS{pcm: audio.Float32ToPCM16(make([]float32, pcmSamples))},
		stubLLM{},
		stubExchanges{},
		repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16", Language: "en-US"},
		repositories.VoiceConfig{SampleRate: 16000},
		nil,
		zap.NewNop(),
	)
	return NewHub(svc, zap.NewNop())
}

func newTestClient(hub *Hub, sendBuffer int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan WriteData, sendBuffer),
		done:       make(chan struct{}),
		deviceID:   "device-1",
		logger:     zap.NewNop(),
		machine:    interaction.NewMachine(zap.NewNop()),
		maxCapture: stream.MaxUtteranceSamples,
	}
}

// A round outlives readPump, so a disconnect can land while respond is still
// streaming. Every send must take the shutdown path instead of blocking or
// panicking.
func TestRespondAfterUnregister(t *testing.T) {
	// A response spanning more than one chunk forces the binary send path.
	client := newTestClient(newTestHub(stream.ChunkSamples+10), 1)
	client.machine.StartListening()
	client.machine.StopListening()

	// Fill the send buffer so nothing drains it, then unregister the client
	// the way the hub does.
	client.send <- WriteData{}
	close(client.done)

	finished := make(chan struct{})
	go func() {
		client.respond([]float32{0.5, 0.5})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("respond did not return after unregister")
	}
}

func TestOverlongCaptureFailsRound(t *testing.T) {
	client := newTestClient(newTestHub(1), 8)
	client.maxCapture = 4

	client.handleListeningStart()
	if got := client.machine.State(); got != entities.StateListening {
		t.Fatalf("state = %s, want listening", got)
	}

	client.processBinaryAudioChunk(audio.EncodeFloat32([]float32{1, 2, 3}))
	client.processBinaryAudioChunk(audio.EncodeFloat32([]float32{4, 5}))

	if got := client.machine.State(); got != entities.StateIdle {
		t.Errorf("state = %s, want idle after overlong capture", got)
	}
	if len(client.capture) != 0 {
		t.Errorf("capture holds %d samples, want 0", len(client.capture))
	}

	var sawError bool
drain:
	for {
		select {
		case msg := <-client.send:
			if strings.Contains(string(msg.Payload), "utterance too long") {
				sawError = true
			}
		default:
			break drain
		}
	}
	if !sawError {
		t.Error("no error message queued for the failed round")
	}

	// The next round can begin immediately.
	if !client.machine.StartListening() {
		t.Error("machine rejected a new round after the failed one")
	}
}
