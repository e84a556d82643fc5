package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/domain/repositories"
	"github.com/NotSquiz/atlas-bridge/internal/audio"
	"github.com/NotSquiz/atlas-bridge/internal/bridge"
)

// ConversationService is the back-end processing pipeline behind both
// transports: speech-to-text, LLM reply with session-buffer context
// injection, text-to-speech, and the session buffer append on completion.
type ConversationService struct {
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	llm          repositories.LargeLanguageModel
	exchanges    repositories.ExchangeRepository

	audioConfig repositories.AudioConfig
	voiceConfig repositories.VoiceConfig

	status *bridge.StatusWriter // optional
	logger *zap.Logger
}

// RoundResult is one completed round.
type RoundResult struct {
	UserText     string
	ResponseText string
	Category     string
	Audio        []float32
}

// NewConversationService assembles the pipeline. status may be nil when no
// snapshot observer is configured.
func NewConversationService(
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	llm repositories.LargeLanguageModel,
	exchanges repositories.ExchangeRepository,
	audioConfig repositories.AudioConfig,
	voiceConfig repositories.VoiceConfig,
	status *bridge.StatusWriter,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		speechToText: stt,
		textToSpeech: tts,
		llm:          llm,
		exchanges:    exchanges,
		audioConfig:  audioConfig,
		voiceConfig:  voiceConfig,
		status:       status,
		logger:       logger,
	}
}

// Respond runs one full round over captured samples and returns the
// response audio plus the texts that produced it. A session buffer failure
// does not fail the round; the exchange is logged as lost.
func (s *ConversationService) Respond(ctx context.Context, samples []float32) (*RoundResult, error) {
	started := time.Now()

	transcript, err := s.speechToText.TranscribeAudio(ctx, audio.Float32ToPCM16(samples), s.audioConfig)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	s.logger.Info("Transcription completed", zap.String("text", transcript))
	sttDone := time.Now()

	contextText, lastCategory := s.conversationContext(ctx)
	reply, err := s.llm.Respond(ctx, repositories.ReplyRequest{
		UserText:     transcript,
		Context:      contextText,
		LastCategory: lastCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("reply generation failed: %w", err)
	}
	s.logger.Info("Reply generated",
		zap.String("category", reply.Category),
		zap.Int("length", len(reply.Text)))
	llmDone := time.Now()

	pcm, err := s.textToSpeech.SynthesizeAudio(ctx, reply.Text, s.voiceConfig)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech failed: %w", err)
	}
	out, err := audio.PCM16ToFloat32(pcm)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	ttsDone := time.Now()

	if _, err := s.exchanges.Append(ctx, transcript, reply.Text, reply.Category); err != nil {
		// The exchange is lost for context purposes; the round still succeeds.
		s.logger.Error("Failed to persist exchange", zap.Error(err))
	}

	s.publishStatus(transcript, reply.Text, map[string]int64{
		"stt_ms":   sttDone.Sub(started).Milliseconds(),
		"llm_ms":   llmDone.Sub(sttDone).Milliseconds(),
		"tts_ms":   ttsDone.Sub(llmDone).Milliseconds(),
		"total_ms": ttsDone.Sub(started).Milliseconds(),
	})

	return &RoundResult{
		UserText:     transcript,
		ResponseText: reply.Text,
		Category:     reply.Category,
		Audio:        out,
	}, nil
}

// ProcessRound adapts Respond to the transport handler shape shared by the
// streaming server and the control-channel responder.
func (s *ConversationService) ProcessRound(ctx context.Context, samples []float32) ([]float32, error) {
	result, err := s.Respond(ctx, samples)
	if err != nil {
		return nil, err
	}
	return result.Audio, nil
}

// RecentExchanges surfaces the rolling context for external observers.
func (s *ConversationService) RecentExchanges(ctx context.Context, maxN int) ([]entities.Exchange, error) {
	return s.exchanges.Recent(ctx, maxN)
}

// conversationContext reads the session buffer; on store failure the round
// proceeds without context.
func (s *ConversationService) conversationContext(ctx context.Context) (string, string) {
	recent, err := s.exchanges.Recent(ctx, entities.MaxExchanges)
	if err != nil {
		s.logger.Error("Failed to load conversation context", zap.Error(err))
		return "", ""
	}
	lastCategory, ok, err := s.exchanges.LastCategory(ctx)
	if err != nil {
		s.logger.Error("Failed to load last category", zap.Error(err))
	} else if !ok {
		lastCategory = ""
	}
	return entities.FormatForContext(recent), lastCategory
}

func (s *ConversationService) publishStatus(userText, responseText string, timing map[string]int64) {
	if s.status == nil {
		return
	}
	now := time.Now().Format(time.RFC3339Nano)
	_, err := s.status.Write(bridge.SessionStatus{
		UIState: map[string]interface{}{"state": string(entities.StateIdle)},
		Timing:  timing,
		LastExchange: &bridge.LastExchange{
			User:      userText,
			Atlas:     responseText,
			UpdatedAt: now,
		},
	})
	if err != nil {
		s.logger.Warn("Failed to publish session status", zap.Error(err))
	}
}
