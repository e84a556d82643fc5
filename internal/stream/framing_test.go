package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 5, 1600 * 4, 65536}
	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}

		var buf bytes.Buffer
		if err := WriteFrame(&buf, FrameAudio, payload); err != nil {
			t.Fatalf("WriteFrame(%d bytes) error = %v", size, err)
		}

		frame, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame(%d bytes) error = %v", size, err)
		}
		if frame.Kind != FrameAudio {
			t.Errorf("Kind = 0x%02x, want FrameAudio", byte(frame.Kind))
		}
		if !bytes.Equal(frame.Payload, payload) {
			t.Errorf("payload mismatch for size %d", size)
		}
	}
}

func TestReadFrameCleanClose(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("ReadFrame(empty) error = %v, want io.EOF", err)
	}
}

func TestReadFramePartialHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0}))
	if err != io.EOF {
		t.Errorf("ReadFrame(partial header) error = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, FrameAudio, make([]byte, 100)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-40]

	_, err := ReadFrame(bytes.NewReader(truncated))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("ReadFrame(truncated) error = %v, want *FramingError", err)
	}
	if fe.Declared != 100 {
		t.Errorf("Declared = %d, want 100", fe.Declared)
	}
	if fe.Received != 60 {
		t.Errorf("Received = %d, want 60", fe.Received)
	}
}

func TestReadFrameOversizedDeclaration(t *testing.T) {
	var header [5]byte
	binary.BigEndian.PutUint32(header[:4], MaxFramePayload+1)
	header[4] = byte(FrameAudio)

	_, err := ReadFrame(bytes.NewReader(header[:]))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("ReadFrame(oversized) error = %v, want *FramingError", err)
	}
}

func TestWriteFrameOversizedPayload(t *testing.T) {
	err := WriteFrame(io.Discard, FrameAudio, make([]byte, MaxFramePayload+1))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("WriteFrame(oversized) error = %v, want *FramingError", err)
	}
}

func TestConnectErrorMessage(t *testing.T) {
	err := &ConnectError{Addrs: []string{"10.0.0.1:9", "10.0.0.2:9"}, Last: errors.New("refused")}
	msg := err.Error()
	for _, addr := range err.Addrs {
		if !bytes.Contains([]byte(msg), []byte(addr)) {
			t.Errorf("Error() = %q, missing attempted address %q", msg, addr)
		}
	}
}
