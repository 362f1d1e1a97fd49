// Package hpobj decodes HP 48 binary object files: the length of the object
// in nibbles, and the checksum the calculator's BYTES command reports for it.
package hpobj

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedObject      = errors.New("truncated object")
	ErrUnrecognizedPrologue = errors.New("unrecognized prologue")
	ErrUnsupportedFormat    = errors.New("unsupported object format")
)

// Nibbles is an object split into 4-bit values, one per byte
type Nibbles []byte

// SplitNibbles expands data into nibbles, low nibble of each byte first
func SplitNibbles(data []byte) Nibbles {
	n := make(Nibbles, 0, 2*len(data))
	for _, b := range data {
		n = append(n, b&0xF, b>>4)
	}
	return n
}

// Field reads count nibbles at offset as one value. The Saturn stores
// multi-nibble values least significant nibble first.
func (n Nibbles) Field(offset, count int) (uint32, error) {
	if offset < 0 || offset+count > len(n) {
		return 0, fmt.Errorf("%w: %d-nibble field at %d, object has %d nibbles",
			ErrTruncatedObject, count, offset, len(n))
	}
	var v uint32
	for i := offset + count - 1; i >= offset; i-- {
		v = v<<4 | uint32(n[i])
	}
	return v, nil
}

// Bytes packs the nibbles back into bytes. An odd trailing nibble fills the
// low half of the last byte.
func (n Nibbles) Bytes() []byte {
	out := make([]byte, (len(n)+1)/2)
	for i, v := range n {
		out[i/2] |= (v & 0xF) << (4 * (i % 2))
	}
	return out
}
