// Package kermit implements the subset of the Kermit file transfer protocol
// spoken by the HP 48: short packets, type 1 block check, control-prefix
// quoting and a single generic server command (finish).
//
// Kermit Protocol Manual: https://www.kermitproject.org/kproto.pdf
package kermit

import (
	"fmt"

	"hpxfer/protocol"
)

// Packet types
const (
	TypeSendInit = 'S'
	TypeInit     = 'I'
	TypeReceive  = 'R'
	TypeFile     = 'F'
	TypeData     = 'D'
	TypeEOF      = 'Z'
	TypeBreak    = 'B'
	TypeAck      = 'Y'
	TypeNak      = 'N'
	TypeError    = 'E'
	TypeGeneric  = 'G'
)

const (
	// QCTL is the control-quote prefix
	QCTL = '#'

	// MaxLen is the MAXL value advertised in send-init
	MaxLen = 94

	// dataBudget is the escaped length after which a D packet is closed.
	// The worst case is dataBudget+2 bytes, which still fits in MaxLen.
	dataBudget = 83

	// SeqModulus is the sequence number range
	SeqModulus = 64

	headerSize = 4 // MARK LEN SEQ TYPE
)

// ToChar makes a control value printable
func ToChar(c byte) byte { return c + 32 }

// UnChar reverses ToChar
func UnChar(c byte) byte { return c - 32 }

// Ctl toggles a byte between its control and printable forms
func Ctl(c byte) byte { return c ^ 64 }

// BlockCheck1 is the single character type 1 check over LEN..DATA.
func BlockCheck1(data []byte) byte {
	var s uint32
	for _, b := range data {
		s += uint32(b)
	}
	return ToChar(byte((s + ((s & 192) >> 6)) & 63))
}

// Packet is a decoded Kermit packet. Seq is the plain sequence number (0-63)
// and Data is the payload exactly as carried on the wire (still quoted for
// F and D packets).
type Packet struct {
	Seq  byte
	Type byte
	Data []byte
}

func (p Packet) String() string {
	return fmt.Sprintf("%c#%d(%d bytes)", p.Type, p.Seq, len(p.Data))
}

// Encode frames the packet as MARK LEN SEQ TYPE DATA CHECK EOL. LEN is
// written last, once the payload size is known.
func (p Packet) Encode() []byte {
	out := protocol.NewScratchOutput(headerSize + len(p.Data) + 2)
	out.Output(protocol.SOH)
	lenPos := out.CurPosition()
	out.Output(0, ToChar(p.Seq%SeqModulus), p.Type)
	out.Output(p.Data...)

	// SEQ TYPE DATA plus the check character
	out.Update(lenPos, ToChar(byte(len(out.DataSince(lenPos+1))+1)))
	out.Output(BlockCheck1(out.DataSince(lenPos)), protocol.CR)
	return out.Result()
}

// Decode parses a complete frame as produced by Encode. The trailing EOL is
// optional.
func Decode(frame []byte) (Packet, error) {
	if len(frame) == 0 || frame[0] != protocol.SOH {
		return Packet{}, fmt.Errorf("%w: missing packet mark", protocol.ErrProtocolViolation)
	}
	if len(frame) < 2 {
		return Packet{}, fmt.Errorf("%w: packet cut short", protocol.ErrProtocolViolation)
	}
	n := int(UnChar(frame[1]))
	if n < 3 || n > MaxLen {
		return Packet{}, fmt.Errorf("%w: bad packet length %d", protocol.ErrProtocolViolation, n)
	}
	// LEN counts everything after itself up to and including the check
	if len(frame) < 2+n {
		return Packet{}, fmt.Errorf("%w: packet cut short: %d of %d bytes", protocol.ErrProtocolViolation, len(frame), 2+n)
	}

	body := frame[1 : 1+n] // LEN SEQ TYPE DATA
	check := frame[1+n]
	if want := BlockCheck1(body); want != check {
		return Packet{}, fmt.Errorf("%w: got %q, computed %q", protocol.ErrChecksumMismatch, check, want)
	}

	data := make([]byte, n-3)
	copy(data, frame[4:1+n])
	return Packet{
		Seq:  UnChar(frame[2]),
		Type: frame[3],
		Data: data,
	}, nil
}

// ReadPacket reads one frame from link: first the mark, length and
// sequence, then the remainder including the EOL.
func ReadPacket(link *protocol.Link) (Packet, error) {
	header := make([]byte, 3)
	if err := link.ReadFull(header); err != nil {
		return Packet{}, fmt.Errorf("failed to read packet header: %w", err)
	}
	if header[0] != protocol.SOH {
		return Packet{}, fmt.Errorf("%w: missing packet mark, got 0x%02x", protocol.ErrProtocolViolation, header[0])
	}
	n := int(UnChar(header[1]))
	if n < 3 || n > MaxLen {
		return Packet{}, fmt.Errorf("%w: bad packet length %d", protocol.ErrProtocolViolation, n)
	}

	// TYPE DATA CHECK (n-1 bytes) and the EOL
	rest := make([]byte, n)
	if err := link.ReadFull(rest); err != nil {
		return Packet{}, fmt.Errorf("failed to read packet body: %w", err)
	}
	return Decode(append(header, rest...))
}

// SendInitData is the parameter block carried by S and I packets and by the
// ACK to an inbound S.
func SendInitData() []byte {
	return []byte{
		ToChar(MaxLen),      // MAXL
		ToChar(2),           // TIME, seconds
		ToChar(0),           // NPAD
		Ctl(0),              // PADC
		ToChar(protocol.CR), // EOL
		QCTL,                // QCTL
		'Y',                 // QBIN: agree, not needed
		'1',                 // CHKT
	}
}

func needsQuote(b byte) bool {
	low := b & 0x7F
	return low <= 31 || low == 127 || low == QCTL
}

// Quote appends the quoted form of b to dst
func Quote(dst []byte, b byte) []byte {
	if needsQuote(b) {
		return append(dst, QCTL, Ctl(b))
	}
	return append(dst, b)
}

// Unquote reverses Quote over a whole payload. It also accepts the
// "##" form other Kermits use for a literal prefix.
func Unquote(payload []byte) ([]byte, error) {
	out := make([]byte, 0, len(payload))
	in := protocol.NewSliceInputBuffer(payload)
	for {
		b, ok := in.Next()
		if !ok {
			return out, nil
		}
		if b != QCTL {
			out = append(out, b)
			continue
		}
		q, ok := in.Next()
		if !ok {
			return nil, fmt.Errorf("%w: dangling quote at end of data", protocol.ErrProtocolViolation)
		}
		if q&0x7F == QCTL {
			// a quoted prefix stands for itself
			out = append(out, q)
			continue
		}
		out = append(out, Ctl(q))
	}
}

// QuoteName quotes a file name for an F or R packet. The name must fit a
// single packet.
func QuoteName(name string) ([]byte, error) {
	var quoted []byte
	for i := 0; i < len(name); i++ {
		quoted = Quote(quoted, name[i])
	}
	if len(quoted)+3 > MaxLen {
		return nil, fmt.Errorf("%w: name %q is %d bytes quoted, at most %d fit a packet",
			protocol.ErrProtocolViolation, name, len(quoted), MaxLen-3)
	}
	return quoted, nil
}

// Segment splits data into quoted D packet payloads. A payload is closed as
// soon as its quoted length passes the data budget, so boundaries depend on
// how many bytes needed quoting.
func Segment(data []byte) [][]byte {
	var payloads [][]byte
	var cur []byte
	for _, b := range data {
		cur = Quote(cur, b)
		if len(cur) > dataBudget {
			payloads = append(payloads, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		payloads = append(payloads, cur)
	}
	return payloads
}
