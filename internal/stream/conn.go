package stream

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/NotSquiz/atlas-bridge/internal/audio"
)

// Conn is one persistent framed connection. Writes are serialized so
// concurrent senders never interleave partial frames; reads are expected
// from a single reader loop.
type Conn struct {
	raw net.Conn
	r   *bufio.Reader

	wmu sync.Mutex

	// onCommand, when set, observes command frames consumed by ReceiveChunk.
	onCommand func(string)
}

// Connect tries each candidate address in order with a bounded per-attempt
// timeout and returns the first connection that accepts. When every attempt
// fails the returned error is a *ConnectError enumerating the attempted
// addresses.
func Connect(addrs []string, attemptTimeout time.Duration) (*Conn, error) {
	if len(addrs) == 0 {
		return nil, &ConnectError{}
	}
	var last error
	for _, addr := range addrs {
		c, err := net.DialTimeout("tcp", addr, attemptTimeout)
		if err == nil {
			return NewConn(c), nil
		}
		last = err
	}
	return nil, &ConnectError{Addrs: addrs, Last: last}
}

// NewConn wraps an established connection with the framing codec.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		raw: c,
		r:   bufio.NewReader(c),
	}
}

// OnCommand registers an observer for command frames encountered while
// reading audio. Set before the first Receive call.
func (c *Conn) OnCommand(fn func(string)) {
	c.onCommand = fn
}

// SendChunk serializes samples and writes them as one audio frame. A nil or
// empty slice writes the zero-length "no data this turn" sentinel.
func (c *Conn) SendChunk(samples []float32) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.raw, FrameAudio, audio.EncodeFloat32(samples))
}

// SendCommand writes an out-of-band control word on the same framed wire.
func (c *Conn) SendCommand(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.raw, FrameCommand, []byte(text))
}

// Receive reads the next frame of any kind. Returns io.EOF when the peer
// closes the connection cleanly.
func (c *Conn) Receive() (Frame, error) {
	return ReadFrame(c.r)
}

// ReceiveChunk blocks until the next audio frame and decodes it. A
// zero-length frame yields (nil, nil), signalling no output this turn.
// End of stream yields io.EOF. Command frames encountered in between are
// delivered to the OnCommand observer and skipped.
func (c *Conn) ReceiveChunk() ([]float32, error) {
	for {
		f, err := c.Receive()
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case FrameAudio:
			if len(f.Payload) == 0 {
				return nil, nil
			}
			return decodeAudioPayload(f.Payload)
		case FrameCommand:
			if c.onCommand != nil {
				c.onCommand(string(f.Payload))
			}
		default:
			return nil, &FramingError{Reason: fmt.Sprintf("unknown frame kind 0x%02x", byte(f.Kind))}
		}
	}
}

// Close closes the underlying connection. Blocked reads and writes fail.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr reports the peer address for logging.
func (c *Conn) RemoteAddr() string {
	if c.raw.RemoteAddr() == nil {
		return ""
	}
	return c.raw.RemoteAddr().String()
}

var _ io.Closer = (*Conn)(nil)
