package kermit

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"hpxfer/protocol"
)

// Config holds Kermit session settings
type Config struct {
	// Settle is waited before every packet read; the calculator answers
	// slowly and a read issued too early comes back empty.
	Settle time.Duration

	Logger log.FieldLogger
}

// DefaultConfig returns the settings that work with an HP 48 at 9600 baud
func DefaultConfig() *Config {
	return &Config{
		Settle: 300 * time.Millisecond,
		Logger: log.StandardLogger(),
	}
}

// Session drives one Kermit transfer. It owns the sequence counter; every
// failure ends the transfer, there are no retries.
type Session struct {
	link *protocol.Link
	cfg  *Config
	log  log.FieldLogger
	seq  byte
}

// NewSession creates a session over rw. A nil cfg uses DefaultConfig.
func NewSession(rw io.ReadWriter, cfg *Config) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Session{
		link: protocol.NewLink(rw),
		cfg:  cfg,
		log:  logger.WithField("protocol", "kermit"),
	}
}

// Send transfers data to the remote under the given file name:
// S, F, D..., Z, B, each acknowledged before the next is sent.
func (s *Session) Send(name string, data []byte) error {
	quotedName, err := QuoteName(name)
	if err != nil {
		return err
	}
	s.seq = 0

	if err := s.exchange(TypeSendInit, SendInitData()); err != nil {
		return fmt.Errorf("send-init: %w", err)
	}

	if err := s.exchange(TypeFile, quotedName); err != nil {
		return fmt.Errorf("file header %q: %w", name, err)
	}

	segments := Segment(data)
	for i, payload := range segments {
		if err := s.exchange(TypeData, payload); err != nil {
			return fmt.Errorf("data packet %d/%d: %w", i+1, len(segments), err)
		}
	}
	s.log.WithFields(log.Fields{"file": name, "bytes": len(data), "packets": len(segments)}).Info("File data sent")

	if err := s.exchange(TypeEOF, nil); err != nil {
		return fmt.Errorf("end of file: %w", err)
	}
	if err := s.exchange(TypeBreak, nil); err != nil {
		return fmt.Errorf("end of transmission: %w", err)
	}
	return nil
}

// Receive accepts one file sent by the remote. When request is not empty an
// R packet asks a Kermit server for that file first; otherwise the remote is
// expected to start sending on its own.
func (s *Session) Receive(request string) (name string, data []byte, err error) {
	s.seq = 0

	if request != "" {
		quoted, err := QuoteName(request)
		if err != nil {
			return "", nil, err
		}
		if err := s.write(Packet{Seq: 0, Type: TypeReceive, Data: quoted}); err != nil {
			return "", nil, fmt.Errorf("receive request %q: %w", request, err)
		}
	}

	if _, err := s.expect(TypeSendInit); err != nil {
		return "", nil, fmt.Errorf("send-init: %w", err)
	}
	if err := s.ack(SendInitData()); err != nil {
		return "", nil, err
	}

	fp, err := s.expect(TypeFile)
	if err != nil {
		return "", nil, fmt.Errorf("file header: %w", err)
	}
	rawName, err := Unquote(fp.Data)
	if err != nil {
		return "", nil, fmt.Errorf("file header: %w", err)
	}
	name = string(rawName)
	if err := s.ack(nil); err != nil {
		return "", nil, err
	}

	for {
		p, err := s.next()
		if err != nil {
			return "", nil, fmt.Errorf("data packet: %w", err)
		}
		if p.Type == TypeEOF {
			break
		}
		if p.Type != TypeData {
			return "", nil, fmt.Errorf("%w: expected %c or %c packet, got %c", protocol.ErrProtocolViolation, TypeData, TypeEOF, p.Type)
		}
		chunk, err := Unquote(p.Data)
		if err != nil {
			return "", nil, fmt.Errorf("data packet %d: %w", p.Seq, err)
		}
		data = append(data, chunk...)
		if err := s.ack(nil); err != nil {
			return "", nil, err
		}
	}
	if err := s.ack(nil); err != nil {
		return "", nil, err
	}

	if _, err := s.expect(TypeBreak); err != nil {
		return "", nil, fmt.Errorf("end of transmission: %w", err)
	}
	if err := s.ack(nil); err != nil {
		return "", nil, err
	}

	s.log.WithFields(log.Fields{"file": name, "bytes": len(data)}).Info("File received")
	return name, data, nil
}

// Finish tells a Kermit server to leave server mode. The sequence restarts
// at zero for the I exchange and again for the generic finish command.
func (s *Session) Finish() error {
	s.seq = 0
	if err := s.exchange(TypeInit, SendInitData()); err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	s.seq = 0
	if err := s.exchange(TypeGeneric, []byte{'F'}); err != nil {
		return fmt.Errorf("server finish: %w", err)
	}
	return nil
}

// exchange sends one packet at the current sequence and waits for its ACK
func (s *Session) exchange(ptype byte, data []byte) error {
	p := Packet{Seq: s.seq, Type: ptype, Data: data}
	if err := s.write(p); err != nil {
		return err
	}

	resp, err := s.read()
	if err != nil {
		return err
	}
	switch {
	case resp.Type == TypeError:
		return fmt.Errorf("%w: remote error: %s", protocol.ErrProtocolViolation, resp.Data)
	case resp.Type != TypeAck:
		return fmt.Errorf("%w: no ACK for %c packet, got %c", protocol.ErrProtocolViolation, ptype, resp.Type)
	case resp.Seq != p.Seq:
		return fmt.Errorf("%w: ACK for sequence %d, expected %d", protocol.ErrProtocolViolation, resp.Seq, p.Seq)
	}

	s.seq = (s.seq + 1) % SeqModulus
	return nil
}

// expect reads the next packet and requires it to be of type ptype
func (s *Session) expect(ptype byte) (Packet, error) {
	p, err := s.next()
	if err != nil {
		return Packet{}, err
	}
	if p.Type != ptype {
		return Packet{}, fmt.Errorf("%w: expected %c packet, got %c", protocol.ErrProtocolViolation, ptype, p.Type)
	}
	return p, nil
}

// next reads an inbound packet and checks it carries the expected sequence
func (s *Session) next() (Packet, error) {
	p, err := s.read()
	if err != nil {
		return Packet{}, err
	}
	if p.Type == TypeError {
		return Packet{}, fmt.Errorf("%w: remote error: %s", protocol.ErrProtocolViolation, p.Data)
	}
	if p.Seq != s.seq {
		return Packet{}, fmt.Errorf("%w: got sequence %d, expected %d", protocol.ErrProtocolViolation, p.Seq, s.seq)
	}
	return p, nil
}

// ack acknowledges the packet at the current sequence and advances it
func (s *Session) ack(data []byte) error {
	if err := s.write(Packet{Seq: s.seq, Type: TypeAck, Data: data}); err != nil {
		return err
	}
	s.seq = (s.seq + 1) % SeqModulus
	return nil
}

func (s *Session) write(p Packet) error {
	s.log.WithField("packet", p.String()).Debug("Sending packet")
	if err := s.link.Write(p.Encode()); err != nil {
		return fmt.Errorf("failed to write %c packet: %w", p.Type, err)
	}
	return nil
}

func (s *Session) read() (Packet, error) {
	s.link.Settle(s.cfg.Settle)
	p, err := ReadPacket(s.link)
	if err != nil {
		return Packet{}, err
	}
	s.log.WithField("packet", p.String()).Debug("Received packet")
	return p, nil
}
