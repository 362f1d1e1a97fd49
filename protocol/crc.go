package protocol

// The Saturn CPU checksums objects one nibble at a time with a fixed
// multiplier of 0x1081. The same mix drives the Conn4x XModem variant, which
// feeds every byte as two nibbles (low first).

const crcMultiplier = 0x1081

// Conn4xTable is the 256-entry lookup used by Conn4x, indexed by
// (crcNibble<<4)|inputNibble.
var Conn4xTable = func() [256]uint32 {
	var table [256]uint32
	for crc := uint32(0); crc < 16; crc++ {
		for in := uint32(0); in < 16; in++ {
			table[crc<<4|in] = (crc ^ in) * crcMultiplier
		}
	}
	return table
}()

// UpdateNibble folds one nibble into acc. The arithmetic is 32-bit so the
// product is never truncated before the shift.
func UpdateNibble(acc uint32, nibble byte) uint32 {
	return (acc >> 4) ^ (((acc ^ uint32(nibble)) & 0xF) * crcMultiplier)
}

// NibbleCRC runs UpdateNibble over nibbles starting from a zero seed.
func NibbleCRC(nibbles []byte) uint16 {
	var acc uint32
	for _, n := range nibbles {
		acc = UpdateNibble(acc, n)
	}
	return uint16(acc)
}

// Conn4xCRC checksums data the way the Conn4x XModem server does.
func Conn4xCRC(data []byte) uint16 {
	var acc uint32
	for _, b := range data {
		acc = (acc >> 4) ^ Conn4xTable[(acc&0xF)<<4|uint32(b&0xF)]
		acc = (acc >> 4) ^ Conn4xTable[(acc&0xF)<<4|uint32(b>>4)]
	}
	return uint16(acc)
}
