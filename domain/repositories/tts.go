package repositories

import "context"

// TextToSpeech abstracts speech synthesis services.
type TextToSpeech interface {
	// SynthesizeAudio converts text to one PCM audio blob.
	SynthesizeAudio(ctx context.Context, text string, config VoiceConfig) ([]byte, error)

	// SynthesizeStream converts text to audio delivered in chunks as they
	// become available. The channel is closed when synthesis completes.
	SynthesizeStream(ctx context.Context, text string, config VoiceConfig) (<-chan []byte, error)
}

// VoiceConfig selects the synthesis voice profile.
type VoiceConfig struct {
	Voice      string `json:"voice"`
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
}
