package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/repositories"
)

// MockTextToSpeech produces silence sized to the input text, for
// development and tests without an API key.
type MockTextToSpeech struct {
	Err    error
	logger *zap.Logger
}

// NewMockTextToSpeech creates the mock.
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

func (m *MockTextToSpeech) SynthesizeAudio(ctx context.Context, text string, voice repositories.VoiceConfig) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	// 100 samples of silence per character, PCM16.
	audio := make([]byte, len(text)*100*2)
	m.logger.Debug("Mock synthesis", zap.Int("textLength", len(text)), zap.Int("audioBytes", len(audio)))
	return audio, nil
}

func (m *MockTextToSpeech) SynthesizeStream(ctx context.Context, text string, voice repositories.VoiceConfig) (<-chan []byte, error) {
	audio, err := m.SynthesizeAudio(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, 1)
	out <- audio
	close(out)
	return out, nil
}
