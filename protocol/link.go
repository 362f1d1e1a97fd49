package protocol

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrTimeout is wrapped into ErrTransportIO when the port returns no data
// before its read timeout expires.
var ErrTimeout = errors.New("read timeout")

// Link is a blocking byte channel on top of a serial port. Every failure is
// reported wrapped in ErrTransportIO and is never retried here.
type Link struct {
	rw io.ReadWriter

	// Sleep is used for settle delays; tests may replace it.
	Sleep func(time.Duration)
}

// NewLink creates a Link over rw
func NewLink(rw io.ReadWriter) *Link {
	return &Link{rw: rw, Sleep: time.Sleep}
}

// Write sends all of p
func (l *Link) Write(p []byte) error {
	n, err := l.rw.Write(p)
	if err != nil {
		return fmt.Errorf("%w: write: %w", ErrTransportIO, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: incomplete write: %d/%d bytes", ErrTransportIO, n, len(p))
	}
	return nil
}

// WriteByte sends a single byte
func (l *Link) WriteByte(b byte) error {
	return l.Write([]byte{b})
}

// ReadByte blocks until one byte arrives
func (l *Link) ReadByte() (byte, error) {
	var buf [1]byte
	if err := l.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadFull fills p. Serial drivers report an expired read timeout as a zero
// length read (with or without io.EOF), so an empty read ends the call.
func (l *Link) ReadFull(p []byte) error {
	got := 0
	for got < len(p) {
		n, err := l.rw.Read(p[got:])
		got += n
		if n > 0 {
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w after %d/%d bytes", ErrTransportIO, ErrTimeout, got, len(p))
		}
		return fmt.Errorf("%w: read: %w", ErrTransportIO, err)
	}
	return nil
}

// Settle waits for the remote firmware to prime its buffers
func (l *Link) Settle(d time.Duration) {
	if d > 0 && l.Sleep != nil {
		l.Sleep(d)
	}
}
