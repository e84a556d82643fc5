package stream

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Client drives push-to-talk rounds over one persistent framed connection.
type Client struct {
	conn   *Conn
	logger *zap.Logger
}

// Dial connects to the first reachable candidate address and returns a
// streaming client.
func Dial(addrs []string, attemptTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	conn, err := Connect(addrs, attemptTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info("Streaming channel connected", zap.String("remote", conn.RemoteAddr()))
	return &Client{conn: conn, logger: logger}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *Conn, logger *zap.Logger) *Client {
	return &Client{conn: conn, logger: logger}
}

// SendUtterance streams one captured utterance and blocks for the response:
// START_RECORDING, the audio in capture-order chunks, STOP_RECORDING, then
// response frames until the remote END command. Returns the concatenated
// response samples; nil means the remote produced no output this turn.
func (c *Client) SendUtterance(ctx context.Context, samples []float32) ([]float32, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.raw.SetDeadline(deadline)
		defer c.conn.raw.SetDeadline(time.Time{})
	}

	if err := c.conn.SendCommand(CommandStartRecording); err != nil {
		return nil, err
	}
	for off := 0; off < len(samples); off += ChunkSamples {
		end := off + ChunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		if err := c.conn.SendChunk(samples[off:end]); err != nil {
			return nil, err
		}
	}
	if err := c.conn.SendCommand(CommandStopRecording); err != nil {
		return nil, err
	}

	var out []float32
	for {
		f, err := c.conn.Receive()
		if err == io.EOF {
			// Connection closed before END; the session is broken.
			return nil, &FramingError{Reason: "stream closed before end of turn"}
		}
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case FrameAudio:
			if len(f.Payload) == 0 {
				continue
			}
			chunk, err := decodeAudioPayload(f.Payload)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
		case FrameCommand:
			if string(f.Payload) == CommandEndOfTurn {
				return out, nil
			}
			c.logger.Warn("Unexpected stream command", zap.String("command", string(f.Payload)))
		}
	}
}

// Stop tells the remote side to stop accepting further chunks for the
// current exchange.
func (c *Client) Stop() error {
	return c.conn.SendCommand(CommandStopRecording)
}

// Close tears the session down.
func (c *Client) Close() error {
	return c.conn.Close()
}
