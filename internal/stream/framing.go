package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/NotSquiz/atlas-bridge/internal/audio"
)

// Wire format: a 4-byte big-endian payload length, one kind byte, then
// exactly that many payload bytes. Audio payloads are little-endian float32
// PCM samples; command payloads are UTF-8 control words. A zero-length audio
// frame is the "no data this turn" sentinel, not an error.

const (
	headerSize = 4

	// MaxFramePayload bounds a declared frame size so a corrupt header
	// cannot force an unbounded allocation.
	MaxFramePayload = 4 << 20
)

// FrameKind tags a frame as audio or out-of-band command.
type FrameKind byte

const (
	FrameAudio   FrameKind = 0x01
	FrameCommand FrameKind = 0x02
)

// Control words multiplexed onto the framed connection.
const (
	CommandStartRecording = "START_RECORDING"
	CommandStopRecording  = "STOP_RECORDING"
	CommandEndOfTurn      = "END"
)

// Frame is one length-prefixed unit on the wire.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// FramingError reports a declared-length vs. received-bytes mismatch or a
// stream truncated mid-frame.
type FramingError struct {
	Declared int
	Received int
	Reason   string
}

func (e *FramingError) Error() string {
	if e.Declared > 0 || e.Received > 0 {
		return fmt.Sprintf("framing: %s (declared %d bytes, received %d)", e.Reason, e.Declared, e.Received)
	}
	return "framing: " + e.Reason
}

// ConnectError reports that no candidate host accepted a connection.
type ConnectError struct {
	Addrs []string
	Last  error
}

func (e *ConnectError) Error() string {
	if len(e.Addrs) == 0 {
		return "connect: no candidate addresses"
	}
	return fmt.Sprintf("connect: no reachable host, tried %s: %v", strings.Join(e.Addrs, ", "), e.Last)
}

func (e *ConnectError) Unwrap() error {
	return e.Last
}

// WriteFrame writes one complete frame. The frame is assembled in memory and
// written with a single call so the peer never observes a partial frame.
func WriteFrame(w io.Writer, kind FrameKind, payload []byte) error {
	if len(payload) > MaxFramePayload {
		return &FramingError{Declared: len(payload), Reason: "payload exceeds maximum frame size"}
	}
	buf := make([]byte, headerSize+1+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	buf[headerSize] = byte(kind)
	copy(buf[headerSize+1:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one frame. A connection closed at a frame boundary
// (or mid-header) returns io.EOF; a connection closed after the header
// declared more bytes returns a FramingError.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFramePayload {
		return Frame{}, &FramingError{Declared: int(length), Reason: "declared length exceeds maximum frame size"}
	}

	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return Frame{}, &FramingError{Declared: int(length), Reason: "truncated before frame kind"}
	}

	payload := make([]byte, length)
	if length > 0 {
		n, err := io.ReadFull(r, payload)
		if err != nil {
			return Frame{}, &FramingError{Declared: int(length), Received: n, Reason: "truncated frame payload"}
		}
	}

	return Frame{Kind: FrameKind(kind[0]), Payload: payload}, nil
}

// decodeAudioPayload decodes an audio frame payload, reporting misaligned
// sample data as a framing failure.
func decodeAudioPayload(payload []byte) ([]float32, error) {
	samples, err := audio.DecodeFloat32(payload)
	if err != nil {
		return nil, &FramingError{Received: len(payload), Reason: err.Error()}
	}
	return samples, nil
}
