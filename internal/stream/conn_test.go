package stream

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca, cb := NewConn(a), NewConn(b)
	t.Cleanup(func() {
		ca.Close()
		cb.Close()
	})
	return ca, cb
}

func TestSendReceiveChunk(t *testing.T) {
	for _, k := range []int{1, 1600, 65536} {
		sender, receiver := pipeConns(t)

		samples := make([]float32, k)
		for i := range samples {
			samples[i] = float32(i%200-100) / 100
		}
		go func() {
			if err := sender.SendChunk(samples); err != nil {
				t.Errorf("SendChunk(%d samples) error = %v", k, err)
			}
		}()

		got, err := receiver.ReceiveChunk()
		if err != nil {
			t.Fatalf("ReceiveChunk() error = %v", err)
		}
		if len(got) != k {
			t.Fatalf("received %d samples, want %d", len(got), k)
		}
		for i := range samples {
			if got[i] != samples[i] {
				t.Fatalf("sample %d = %f, want %f", i, got[i], samples[i])
			}
		}
	}
}

func TestReceiveChunkZeroLengthSentinel(t *testing.T) {
	sender, receiver := pipeConns(t)

	go func() {
		if err := sender.SendChunk(nil); err != nil {
			t.Errorf("SendChunk(nil) error = %v", err)
		}
	}()

	got, err := receiver.ReceiveChunk()
	if err != nil {
		t.Fatalf("ReceiveChunk() error = %v, want nil for empty sentinel", err)
	}
	if got != nil {
		t.Errorf("ReceiveChunk() = %v, want nil", got)
	}
}

func TestReceiveChunkEOFOnClose(t *testing.T) {
	sender, receiver := pipeConns(t)
	sender.Close()

	_, err := receiver.ReceiveChunk()
	if err != io.EOF {
		t.Errorf("ReceiveChunk() after close error = %v, want io.EOF", err)
	}
}

func TestReceiveChunkSkipsCommands(t *testing.T) {
	sender, receiver := pipeConns(t)

	var commands []string
	receiver.OnCommand(func(cmd string) {
		commands = append(commands, cmd)
	})

	go func() {
		sender.SendCommand(CommandStartRecording)
		sender.SendChunk([]float32{1})
	}()

	got, err := receiver.ReceiveChunk()
	if err != nil {
		t.Fatalf("ReceiveChunk() error = %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("ReceiveChunk() = %v, want [1]", got)
	}
	if len(commands) != 1 || commands[0] != CommandStartRecording {
		t.Errorf("observed commands = %v, want [%s]", commands, CommandStartRecording)
	}
}

func TestConnectAllHostsUnreachable(t *testing.T) {
	// Low loopback ports with no listener refuse immediately.
	addrs := []string{"127.0.0.1:1", "127.0.0.1:2"}
	_, err := Connect(addrs, 50*time.Millisecond)
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("Connect() error = %v, want *ConnectError", err)
	}
	if len(ce.Addrs) != len(addrs) {
		t.Errorf("ConnectError.Addrs = %v, want %v", ce.Addrs, addrs)
	}
}

func TestConnectFirstReachableWins(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	go ln.Accept()

	conn, err := Connect([]string{"127.0.0.1:1", ln.Addr().String()}, time.Second)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	if conn.RemoteAddr() != ln.Addr().String() {
		t.Errorf("RemoteAddr() = %q, want %q", conn.RemoteAddr(), ln.Addr().String())
	}
}
