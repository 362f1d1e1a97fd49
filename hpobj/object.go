package hpobj

import (
	"bytes"
	"fmt"

	"hpxfer/protocol"
)

// Signature starts every HP 48 binary object file. The HP 49 writes
// HPHP49, whose objects checksum differently.
const Signature = "HPHP48"

// headerSize is the signature, a byte we ignore and the ROM revision
const headerSize = 8

// ObjectDescriptor is what the calculator's BYTES command reports
type ObjectDescriptor struct {
	ROMRevision byte
	Checksum    uint16
	// Length is in nibbles
	Length int
}

// Checksum returns the nibble CRC of n
func Checksum(n Nibbles) uint16 {
	return protocol.NibbleCRC(n)
}

// ParseFile decodes an object file read from disk
func ParseFile(data []byte) (*ObjectDescriptor, error) {
	if !bytes.HasPrefix(data, []byte(Signature)) {
		sig := data[:min(len(data), len(Signature))]
		return nil, fmt.Errorf("%w: file starts with %q, want %q", ErrUnsupportedFormat, sig, Signature)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header of %d bytes", ErrTruncatedObject, len(data))
	}

	nibbles := SplitNibbles(data[headerSize:])
	length, err := Size(nibbles)
	if err != nil {
		return nil, err
	}
	return &ObjectDescriptor{
		ROMRevision: data[7],
		Checksum:    Checksum(nibbles[:length]),
		Length:      length,
	}, nil
}

// CRCString renders the checksum the way the calculator prints it
func (d *ObjectDescriptor) CRCString() string {
	return fmt.Sprintf("#%Xh", d.Checksum)
}

// ByteLength renders the length in bytes; objects with an odd number of
// nibbles end in a half byte.
func (d *ObjectDescriptor) ByteLength() string {
	if d.Length%2 == 1 {
		return fmt.Sprintf("%d.5", d.Length/2)
	}
	return fmt.Sprintf("%d", d.Length/2)
}

func (d *ObjectDescriptor) Report() string {
	return fmt.Sprintf("ROM Revision: %c, Object CRC: %s, Object length (bytes): %s",
		d.ROMRevision, d.CRCString(), d.ByteLength())
}
