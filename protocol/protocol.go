// Package protocol holds the pieces shared by the Kermit and XModem
// implementations: control bytes, error kinds, packet buffers, the Saturn
// nibble CRC and the blocking serial link.
package protocol

import "errors"

// Version represents the hpxfer version
const Version = "0.1.0"

// Control bytes used on the wire
const (
	SOH = 0x01 // Start of header (Kermit mark, XModem 128-byte block)
	STX = 0x02 // Start of text (XModem 1024-byte block)
	EOT = 0x04 // End of transmission
	ACK = 0x06
	CR  = 0x0D // Kermit end-of-line
	NAK = 0x15
	CAN = 0x18
	SUB = 0x1A // XModem pad byte
)

// Error kinds reported by the protocol sessions
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTransferCancelled = errors.New("transfer cancelled by remote")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrTransportIO       = errors.New("transport I/O error")
)
