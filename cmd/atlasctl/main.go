// atlasctl is the requester side of the bridge directory: it submits one
// captured utterance through the control channel and waits for the response,
// or asks the running daemon to stop. Payload files are raw little-endian
// float32 samples.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/internal/audio"
	"github.com/NotSquiz/atlas-bridge/internal/bridge"
	"github.com/NotSquiz/atlas-bridge/internal/config"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.BridgeDir == "" {
		logger.Fatal("ATLAS_BRIDGE_DIR must be set for control-channel commands")
	}
	dir, err := bridge.NewDir(cfg.BridgeDir)
	if err != nil {
		logger.Fatal("Invalid bridge directory", zap.Error(err))
	}
	requester := bridge.NewRequester(dir, cfg.Requester(), logger)

	switch os.Args[1] {
	case "process":
		if len(os.Args) != 4 {
			usage()
		}
		if err := process(requester, os.Args[2], os.Args[3], logger); err != nil {
			logger.Fatal("Round failed", zap.Error(err))
		}
	case "stop":
		if err := requester.RequestStop(); err != nil {
			logger.Fatal("Failed to request stop", zap.Error(err))
		}
		logger.Info("Terminate sentinel written", zap.String("dir", dir.Path()))
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: atlasctl process <in.raw> <out.raw> | atlasctl stop")
	os.Exit(2)
}

// process runs one transaction end to end: submit the captured samples, wait
// out the configured timeout for the response, write it back out.
func process(requester *bridge.Requester, inPath, outPath string, logger *zap.Logger) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read capture file: %w", err)
	}
	samples, err := audio.DecodeFloat32(data)
	if err != nil {
		return fmt.Errorf("decode capture file: %w", err)
	}

	if err := requester.Submit(samples); err != nil {
		return err
	}
	out, meta, err := requester.AwaitResult(context.Background())
	if err != nil {
		return err
	}

	logger.Info("Round completed",
		zap.Int("requestSamples", len(samples)),
		zap.Int("responseSamples", len(out)),
		zap.Int("sampleRate", meta.SampleRate),
		zap.String("voice", meta.Voice))
	return os.WriteFile(outPath, audio.EncodeFloat32(out), 0o644)
}
