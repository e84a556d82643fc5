package stream

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"
)

// RoundHandler processes one captured utterance and returns the response
// audio to stream back.
type RoundHandler interface {
	ProcessRound(ctx context.Context, samples []float32) ([]float32, error)
}

// Server accepts framed connections from capture clients. Each connection
// carries push-to-talk rounds: a START_RECORDING command, audio frames, a
// STOP_RECORDING command, then the response streamed back in chunks and
// terminated with an END command.
type Server struct {
	handler RoundHandler
	logger  *zap.Logger

	// maxUtterance caps the samples buffered for one round.
	maxUtterance int
}

// NewServer creates a streaming server around the processing handler.
func NewServer(handler RoundHandler, logger *zap.Logger) *Server {
	return &Server{
		handler:      handler,
		logger:       logger,
		maxUtterance: MaxUtteranceSamples,
	}
}

// Serve accepts connections until the listener closes or the context is
// cancelled. Each connection is served on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		conn := NewConn(raw)
		s.logger.Info("Streaming client connected", zap.String("remote", conn.RemoteAddr()))
		go s.handleConn(ctx, conn)
	}
}

// handleConn runs the per-connection read loop. Any read or decode failure
// terminates this connection only.
func (s *Server) handleConn(ctx context.Context, conn *Conn) {
	defer func() {
		conn.Close()
		s.logger.Info("Streaming client disconnected", zap.String("remote", conn.RemoteAddr()))
	}()

	var capture []float32
	recording := false

	for {
		f, err := conn.Receive()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.logger.Error("Streaming read failed",
				zap.String("remote", conn.RemoteAddr()),
				zap.Error(err))
			return
		}

		switch f.Kind {
		case FrameCommand:
			switch string(f.Payload) {
			case CommandStartRecording:
				capture = capture[:0]
				recording = true
			case CommandStopRecording:
				if !recording {
					continue
				}
				recording = false
				if err := s.respond(ctx, conn, capture); err != nil {
					s.logger.Error("Failed to stream response",
						zap.String("remote", conn.RemoteAddr()),
						zap.Error(err))
					return
				}
			default:
				s.logger.Warn("Unknown stream command",
					zap.String("remote", conn.RemoteAddr()),
					zap.String("command", string(f.Payload)))
			}

		case FrameAudio:
			if !recording {
				continue
			}
			samples, err := decodeAudioPayload(f.Payload)
			if err != nil {
				s.logger.Error("Failed to decode audio frame",
					zap.String("remote", conn.RemoteAddr()),
					zap.Error(err))
				return
			}
			if len(capture)+len(samples) > s.maxUtterance {
				s.logger.Error("Capture exceeds utterance limit, failing round",
					zap.String("remote", conn.RemoteAddr()),
					zap.Int("samples", len(capture)+len(samples)),
					zap.Int("limit", s.maxUtterance))
				recording = false
				capture = capture[:0]
				if err := s.endTurnEmpty(conn); err != nil {
					s.logger.Error("Failed to stream response",
						zap.String("remote", conn.RemoteAddr()),
						zap.Error(err))
					return
				}
				continue
			}
			capture = append(capture, samples...)

		default:
			s.logger.Warn("Unknown frame kind",
				zap.String("remote", conn.RemoteAddr()),
				zap.Uint8("kind", byte(f.Kind)))
		}
	}
}

// respond runs the handler and streams its audio back in capture-sized
// chunks, ending the turn with an END command. A handler failure yields the
// zero-length "no output this turn" sentinel so the client is never left
// waiting.
func (s *Server) respond(ctx context.Context, conn *Conn, capture []float32) error {
	out, err := s.handler.ProcessRound(ctx, capture)
	if err != nil {
		s.logger.Error("Round processing failed",
			zap.String("remote", conn.RemoteAddr()),
			zap.Error(err))
		out = nil
	}

	if len(out) == 0 {
		return s.endTurnEmpty(conn)
	}

	for off := 0; off < len(out); off += ChunkSamples {
		end := off + ChunkSamples
		if end > len(out) {
			end = len(out)
		}
		if err := conn.SendChunk(out[off:end]); err != nil {
			return err
		}
	}
	return conn.SendCommand(CommandEndOfTurn)
}

// endTurnEmpty closes a round with no output: the zero-length sentinel then
// END, so the client is never left waiting.
func (s *Server) endTurnEmpty(conn *Conn) error {
	if err := conn.SendChunk(nil); err != nil {
		return err
	}
	return conn.SendCommand(CommandEndOfTurn)
}
