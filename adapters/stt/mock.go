package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/repositories"
)

// MockSpeechToText returns a canned transcript, for development and tests
// without Google credentials.
type MockSpeechToText struct {
	Transcript string
	Err        error
	logger     *zap.Logger
}

// NewMockSpeechToText creates a mock that transcribes everything to the
// given text.
func NewMockSpeechToText(transcript string, logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{Transcript: transcript, logger: logger}
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

func (m *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(audioData) == 0 {
		return "", fmt.Errorf("no speech detected in audio")
	}
	m.logger.Debug("Mock transcription",
		zap.Int("bytes", len(audioData)),
		zap.Int("sampleRate", config.SampleRate))
	return m.Transcript, nil
}
