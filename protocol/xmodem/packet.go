// Package xmodem implements XModem as used by the HP 48: plain 128-byte
// XModem with an additive checksum for the built-in XSEND/XRECV, and the
// Conn4x variant (1K blocks, nibble CRC) spoken by the XModem server.
package xmodem

import (
	"fmt"

	"hpxfer/protocol"
)

// Mode selects the block check
type Mode int

const (
	// Normal is an 8-bit sum of the payload
	Normal Mode = iota
	// Conn4x is the two byte, big-endian nibble CRC
	Conn4x
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Conn4x:
		return "conn4x"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Block sizes
const (
	ShortBlock = 128
	LongBlock  = 1024

	headerSize = 3 // mark, seq, ~seq

	// FrameSize is a 128-byte block with a one byte checksum
	FrameSize = headerSize + ShortBlock + 1
)

// Server commands
const (
	CmdPut   = 'P'
	CmdGet   = 'G'
	CmdQuit  = 'Q'
	CmdReady = 'D' // sent by the server once it is ready for Conn4x data
)

// Checksum is the additive block check of Normal mode
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// Block is one numbered chunk of the file
type Block struct {
	Seq  byte
	Data []byte
}

// Encode frames the block, padding short data with SUB up to 128 bytes
// (or up to 1024 when the data is longer than 128).
func (b Block) Encode(mode Mode) []byte {
	size := ShortBlock
	mark := byte(protocol.SOH)
	if len(b.Data) > ShortBlock {
		size = LongBlock
		mark = protocol.STX
	}

	out := protocol.NewScratchOutput(headerSize + size + 2)
	out.Output(mark, b.Seq, 255-b.Seq)
	start := out.CurPosition()
	out.Output(b.Data...)
	for out.CurPosition()-start < size {
		out.Output(protocol.SUB)
	}

	payload := out.DataSince(start)
	if mode == Conn4x {
		crc := protocol.Conn4xCRC(payload)
		out.Output(byte(crc>>8), byte(crc))
	} else {
		out.Output(Checksum(payload))
	}
	return out.Result()
}

// Packetize cuts data into framed packets. Normal mode uses 128-byte blocks
// only. Conn4x uses 1024-byte blocks while a full 1024 bytes remain and
// finishes with 128-byte blocks. Sequence numbers start at 1, carry on
// across the size change and wrap at 256.
func Packetize(data []byte, mode Mode) [][]byte {
	var packets [][]byte
	seq := byte(1)

	if mode == Conn4x {
		for len(data) >= LongBlock {
			packets = append(packets, Block{Seq: seq, Data: data[:LongBlock]}.Encode(mode))
			data = data[LongBlock:]
			seq++
		}
	}
	for len(data) > 0 {
		n := min(len(data), ShortBlock)
		packets = append(packets, Block{Seq: seq, Data: data[:n]}.Encode(mode))
		data = data[n:]
		seq++
	}
	return packets
}

// ParseFrame checks a 132-byte Normal mode frame and returns its sequence
// number and payload.
func ParseFrame(frame []byte) (seq byte, payload []byte, err error) {
	if len(frame) != FrameSize {
		return 0, nil, fmt.Errorf("%w: frame of %d bytes, want %d", protocol.ErrProtocolViolation, len(frame), FrameSize)
	}
	if frame[0] != protocol.SOH {
		return 0, nil, fmt.Errorf("%w: bad block mark 0x%02x", protocol.ErrProtocolViolation, frame[0])
	}
	seq = frame[1]
	if frame[2] != 255-seq {
		return 0, nil, fmt.Errorf("%w: sequence %d with complement %d", protocol.ErrProtocolViolation, seq, frame[2])
	}
	payload = frame[headerSize : headerSize+ShortBlock]
	if got, want := frame[FrameSize-1], Checksum(payload); got != want {
		return 0, nil, fmt.Errorf("%w: block %d carries 0x%02x, computed 0x%02x", protocol.ErrChecksumMismatch, seq, got, want)
	}
	return seq, payload, nil
}

// CommandPacket builds a server command: the command byte, the big-endian
// name length, the name and an additive checksum over the name.
func CommandPacket(cmd byte, name string) []byte {
	out := protocol.NewScratchOutput(len(name) + 4)
	out.Output(cmd, byte(len(name)>>8), byte(len(name)))
	start := out.CurPosition()
	out.Output([]byte(name)...)
	out.Output(Checksum(out.DataSince(start)))
	return out.Result()
}
