package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/adapters/llm"
	"github.com/NotSquiz/atlas-bridge/adapters/sqlite"
	"github.com/NotSquiz/atlas-bridge/adapters/stt"
	"github.com/NotSquiz/atlas-bridge/adapters/tts"
	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/domain/repositories"
	"github.com/NotSquiz/atlas-bridge/internal/api"
	"github.com/NotSquiz/atlas-bridge/internal/auth"
	"github.com/NotSquiz/atlas-bridge/internal/bridge"
	"github.com/NotSquiz/atlas-bridge/internal/config"
	"github.com/NotSquiz/atlas-bridge/internal/stream"
	"github.com/NotSquiz/atlas-bridge/internal/websocket"
	"github.com/NotSquiz/atlas-bridge/usecase"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	exchanges, err := sqlite.NewExchangeRepository(cfg.DBPath, entities.MaxExchanges, entities.ExchangeTTL, logger)
	if err != nil {
		logger.Fatal("Failed to open session buffer", zap.Error(err))
	}
	defer exchanges.Close()

	speechToText, textToSpeech, languageModel := buildAdapters(logger)

	audioConfig := repositories.AudioConfig{
		SampleRate: cfg.SampleRate,
		Encoding:   "LINEAR16",
		Language:   cfg.Language,
	}
	voiceConfig := repositories.VoiceConfig{
		Voice:      cfg.Voice,
		Language:   cfg.Language,
		SampleRate: cfg.SampleRate,
	}

	// The control channel and its status snapshots are only active when a
	// bridge directory is configured.
	var bridgeDir *bridge.Dir
	var statusWriter *bridge.StatusWriter
	if cfg.BridgeDir != "" {
		dir, err := bridge.NewDir(cfg.BridgeDir)
		if err != nil {
			logger.Fatal("Invalid bridge directory", zap.Error(err))
		}
		bridgeDir = &dir
		statusWriter = bridge.NewStatusWriter(dir, cfg.SnapshotInterval, logger)
	}

	conversation := usecase.NewConversationService(
		speechToText, textToSpeech, languageModel, exchanges,
		audioConfig, voiceConfig, statusWriter, logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bridgeDir != nil {
		responder := bridge.NewResponder(
			*bridgeDir,
			conversation,
			bridge.Metadata{SampleRate: cfg.SampleRate, Voice: cfg.Voice},
			cfg.PollInterval,
			logger,
		)
		go func() {
			if err := responder.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("Responder stopped", zap.Error(err))
			}
		}()
	}

	// Raw socket transport.
	ln, err := net.Listen("tcp", cfg.StreamAddrs[0])
	if err != nil {
		logger.Fatal("Failed to listen for stream connections",
			zap.String("addr", cfg.StreamAddrs[0]),
			zap.Error(err))
	}
	streamServer := stream.NewServer(conversation, logger)
	go func() {
		if err := streamServer.Serve(ctx, ln); err != nil {
			logger.Error("Stream server stopped", zap.Error(err))
		}
	}()
	logger.Info("Stream server listening", zap.String("addr", ln.Addr().String()))

	// HTTP surface.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set, using insecure development secret")
		jwtSecret = "atlas-dev-secret"
	}
	issuer, err := auth.NewTokenIssuer([]byte(jwtSecret), 0)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	hub := websocket.NewHub(conversation, logger)
	go hub.Run()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := api.NewServer(hub, conversation, bridgeDir, issuer, cfg.DeviceSecret, logger)
	server.InitRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Shutting down the server", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildAdapters selects real engine adapters when credentials are present
// and falls back to mocks otherwise, so the transports and session buffer
// can run locally end to end.
func buildAdapters(logger *zap.Logger) (repositories.SpeechToText, repositories.TextToSpeech, repositories.LargeLanguageModel) {
	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		speechToText = stt.NewGoogleSpeechToText(logger)
	} else {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock speech-to-text")
		speechToText = stt.NewMockSpeechToText("hello", logger)
	}

	var textToSpeech repositories.TextToSpeech
	if ttsConfig := tts.NewElevenLabsConfigFromEnv(); ttsConfig.APIKey != "" {
		elevenLabs, err := tts.NewElevenLabsTTS(ttsConfig, logger)
		if err != nil {
			logger.Fatal("Invalid text-to-speech configuration", zap.Error(err))
		}
		textToSpeech = elevenLabs
	} else {
		logger.Warn("ELEVEN_LABS_API_KEY not set, using mock text-to-speech")
		textToSpeech = tts.NewMockTextToSpeech(logger)
	}

	var languageModel repositories.LargeLanguageModel
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := llm.NewGeminiLLM(logger)
		if err != nil {
			logger.Fatal("Failed to create language model client", zap.Error(err))
		}
		languageModel = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, using mock language model")
		languageModel = &llm.MockLargeLanguageModel{}
	}

	return speechToText, textToSpeech, languageModel
}
