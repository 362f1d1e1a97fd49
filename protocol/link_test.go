package protocol_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hpxfer/protocol"
	"hpxfer/protocol/prototest"
)

type failingWriter struct{ n int }

func (f failingWriter) Read(b []byte) (int, error)  { return 0, errors.New("unplugged") }
func (f failingWriter) Write(b []byte) (int, error) { return f.n, nil }

func TestLinkReadFull(t *testing.T) {
	port := prototest.NewScriptedPort(nil)
	port.Queue(1, 2, 3, 4)
	link := protocol.NewLink(port)

	buf := make([]byte, 3)
	if err := link.ReadFull(buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, buf); diff != "" {
		t.Errorf("ReadFull mismatch (-want +got):\n%s", diff)
	}

	b, err := link.ReadByte()
	if err != nil || b != 4 {
		t.Fatalf("ReadByte() = %d, %v; want 4, nil", b, err)
	}

	_, err = link.ReadByte()
	if !errors.Is(err, protocol.ErrTransportIO) || !errors.Is(err, protocol.ErrTimeout) {
		t.Errorf("empty read should be a transport timeout, got %v", err)
	}
}

func TestLinkReadError(t *testing.T) {
	link := protocol.NewLink(failingWriter{})
	_, err := link.ReadByte()
	if !errors.Is(err, protocol.ErrTransportIO) {
		t.Errorf("expected ErrTransportIO, got %v", err)
	}
	if errors.Is(err, protocol.ErrTimeout) {
		t.Errorf("a driver error is not a timeout: %v", err)
	}
}

func TestLinkIncompleteWrite(t *testing.T) {
	link := protocol.NewLink(failingWriter{n: 1})
	if err := link.Write([]byte{1, 2}); !errors.Is(err, protocol.ErrTransportIO) {
		t.Errorf("expected ErrTransportIO for short write, got %v", err)
	}
}

func TestLinkSettle(t *testing.T) {
	link := protocol.NewLink(prototest.NewScriptedPort(nil))
	var slept []time.Duration
	link.Sleep = func(d time.Duration) { slept = append(slept, d) }

	link.Settle(0)
	link.Settle(300 * time.Millisecond)

	if diff := cmp.Diff([]time.Duration{300 * time.Millisecond}, slept); diff != "" {
		t.Errorf("Settle calls mismatch (-want +got):\n%s", diff)
	}
}
