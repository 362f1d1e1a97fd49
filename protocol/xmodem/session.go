package xmodem

import (
	"bytes"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"hpxfer/protocol"
)

// Config holds XModem session settings
type Config struct {
	// MaxAttempts bounds the writes of one packet (and consecutive bad
	// inbound blocks) before the transfer is abandoned.
	MaxAttempts int

	// GetSettle is waited before the NAK that starts a receive
	GetSettle time.Duration

	// BlockSettle is waited before reading each inbound block
	BlockSettle time.Duration

	// FinishSettle is waited before sending the quit command; without it
	// the server drops the byte.
	FinishSettle time.Duration

	Logger log.FieldLogger
}

// DefaultConfig returns the timings that work with an HP 48
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		GetSettle:    500 * time.Millisecond,
		BlockSettle:  300 * time.Millisecond,
		FinishSettle: 300 * time.Millisecond,
		Logger:       log.StandardLogger(),
	}
}

// Session drives one XModem transfer
type Session struct {
	link *protocol.Link
	cfg  *Config
	log  log.FieldLogger
}

// NewSession creates a session over rw. A nil cfg uses DefaultConfig.
func NewSession(rw io.ReadWriter, cfg *Config) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Session{
		link: protocol.NewLink(rw),
		cfg:  cfg,
		log:  logger.WithField("protocol", "xmodem"),
	}
}

// Send transfers data. In direct mode the calculator runs XRECV: wait for
// its NAK and send Normal 128-byte blocks. Otherwise announce the file to
// the XModem server, wait for it to become ready and send Conn4x blocks.
func (s *Session) Send(name string, data []byte, direct bool) error {
	mode := Conn4x
	if direct {
		mode = Normal
		if err := s.expectByte(protocol.NAK, "receiver start"); err != nil {
			return err
		}
	} else {
		if err := s.command(CmdPut, name); err != nil {
			return err
		}
		if err := s.expectByte(CmdReady, "server ready"); err != nil {
			return err
		}
	}

	packets := Packetize(data, mode)
	s.log.WithFields(log.Fields{"file": name, "bytes": len(data), "packets": len(packets), "mode": mode}).Info("Sending file")

	for i, p := range packets {
		if err := s.sendPacket(p); err != nil {
			return fmt.Errorf("packet %d/%d: %w", i+1, len(packets), err)
		}
	}
	if err := s.sendPacket([]byte{protocol.EOT}); err != nil {
		return fmt.Errorf("end of transmission: %w", err)
	}
	return nil
}

// sendPacket writes p until it is ACKed, at most MaxAttempts times
func (s *Session) sendPacket(p []byte) error {
	for attempt := 1; ; attempt++ {
		if err := s.link.Write(p); err != nil {
			return err
		}
		resp, err := s.link.ReadByte()
		if err != nil {
			return err
		}

		switch resp {
		case protocol.ACK:
			return nil
		case protocol.CAN:
			return protocol.ErrTransferCancelled
		case protocol.NAK:
			if attempt >= s.cfg.MaxAttempts {
				return fmt.Errorf("%w: NAKed %d times", protocol.ErrRetriesExhausted, attempt)
			}
			s.log.WithFields(log.Fields{"seq": seqOf(p), "attempt": attempt}).Warn("Packet NAKed, retransmitting")
		default:
			return fmt.Errorf("%w: expected ACK or NAK, got 0x%02x", protocol.ErrProtocolViolation, resp)
		}
	}
}

// Receive fetches a file. Unless direct, the server is first asked for
// name. Blocks with a bad check are NAKed and read again; trailing zero
// bytes, which the sender uses as padding, are trimmed from the result.
func (s *Session) Receive(name string, direct bool) ([]byte, error) {
	if !direct {
		if err := s.command(CmdGet, name); err != nil {
			return nil, err
		}
	}

	s.link.Settle(s.cfg.GetSettle)
	if err := s.link.WriteByte(protocol.NAK); err != nil {
		return nil, fmt.Errorf("failed to start transfer: %w", err)
	}

	var content []byte
	expected := byte(1)
	failures := 0
	frame := make([]byte, FrameSize)

	for {
		s.link.Settle(s.cfg.BlockSettle)
		mark, err := s.link.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", expected, err)
		}

		switch mark {
		case protocol.EOT:
			if err := s.link.WriteByte(protocol.ACK); err != nil {
				return nil, fmt.Errorf("failed to acknowledge end of transmission: %w", err)
			}
			content = bytes.TrimRight(content, "\x00")
			s.log.WithFields(log.Fields{"file": name, "bytes": len(content)}).Info("File received")
			return content, nil
		case protocol.CAN:
			return nil, protocol.ErrTransferCancelled
		case protocol.SOH:
		default:
			return nil, fmt.Errorf("%w: block %d starts with 0x%02x", protocol.ErrProtocolViolation, expected, mark)
		}

		frame[0] = mark
		if err := s.link.ReadFull(frame[1:]); err != nil {
			return nil, fmt.Errorf("block %d: %w", expected, err)
		}

		seq, payload, err := ParseFrame(frame)
		if err != nil {
			failures++
			if failures >= s.cfg.MaxAttempts {
				return nil, fmt.Errorf("block %d: giving up after %d bad reads: %w", expected, failures, err)
			}
			s.log.WithError(err).WithField("seq", expected).Warn("Bad block, sending NAK")
			if err := s.link.WriteByte(protocol.NAK); err != nil {
				return nil, err
			}
			continue
		}
		failures = 0

		switch seq {
		case expected:
			content = append(content, payload...)
			expected++
		case expected - 1:
			// our ACK was lost; the sender repeated the last block
			s.log.WithField("seq", seq).Debug("Duplicate block dropped")
		default:
			return nil, fmt.Errorf("%w: got block %d, expected %d", protocol.ErrProtocolViolation, seq, expected)
		}
		if err := s.link.WriteByte(protocol.ACK); err != nil {
			return nil, fmt.Errorf("failed to acknowledge block %d: %w", seq, err)
		}
		s.log.WithField("seq", seq).Debug("Block received")
	}
}

// Finish asks the XModem server to exit
func (s *Session) Finish() error {
	s.link.Settle(s.cfg.FinishSettle)
	if err := s.link.WriteByte(CmdQuit); err != nil {
		return fmt.Errorf("failed to send quit: %w", err)
	}
	return nil
}

// command sends a server command and waits for its ACK
func (s *Session) command(cmd byte, name string) error {
	s.log.WithFields(log.Fields{"command": string(rune(cmd)), "file": name}).Debug("Sending server command")
	if err := s.link.Write(CommandPacket(cmd, name)); err != nil {
		return fmt.Errorf("failed to send %c command: %w", cmd, err)
	}
	return s.expectByte(protocol.ACK, fmt.Sprintf("%c command", cmd))
}

// expectByte reads one byte and requires it to be want
func (s *Session) expectByte(want byte, what string) error {
	b, err := s.link.ReadByte()
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	switch b {
	case want:
		return nil
	case protocol.CAN:
		return fmt.Errorf("waiting for %s: %w", what, protocol.ErrTransferCancelled)
	default:
		return fmt.Errorf("%w: waiting for %s, got 0x%02x", protocol.ErrProtocolViolation, what, b)
	}
}

func seqOf(p []byte) int {
	if len(p) < 2 {
		return 0
	}
	return int(p[1])
}
