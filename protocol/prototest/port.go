// Package prototest provides an in-memory serial port for exercising the
// protocol sessions without hardware.
package prototest

import (
	"bytes"
	"io"
	"sync"
)

// Responder is called after every write and returns the bytes the remote
// end sends back in reply. Returning nil queues nothing.
type Responder func(written []byte) []byte

// ScriptedPort is an io.ReadWriteCloser whose inbound bytes are queued up
// front or produced by a Responder. An empty inbound queue reads as a
// timeout (0, io.EOF).
type ScriptedPort struct {
	mu      sync.Mutex
	inbound bytes.Buffer
	writes  [][]byte
	respond Responder
	closed  bool
}

// NewScriptedPort creates a port that answers writes with respond. It may
// be nil.
func NewScriptedPort(respond Responder) *ScriptedPort {
	return &ScriptedPort{respond: respond}
}

// Queue appends bytes to the inbound stream
func (p *ScriptedPort) Queue(data ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound.Write(data)
}

func (p *ScriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inbound.Len() == 0 {
		return 0, io.EOF
	}
	return p.inbound.Read(b)
}

func (p *ScriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	w := append([]byte(nil), b...)
	p.writes = append(p.writes, w)
	if p.respond != nil {
		p.inbound.Write(p.respond(w))
	}
	return len(b), nil
}

func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Flush satisfies the host serial Port interface
func (p *ScriptedPort) Flush() error {
	return nil
}

// Writes returns every write in order
func (p *ScriptedPort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes...)
}

// Written returns all written bytes concatenated
func (p *ScriptedPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Join(p.writes, nil)
}

// Closed reports whether Close was called
func (p *ScriptedPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
