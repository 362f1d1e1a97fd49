package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Scripted ports for testing
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// DefaultDevice is used when no port is given
const DefaultDevice = "/dev/ttyUSB0"

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate (the HP 48 defaults to 9600, IOPAR can raise it to 19200)
	Baud int

	// Read timeout in milliseconds; a read that gets nothing in this time
	// returns zero bytes
	ReadTimeout int
}

// DefaultConfig returns the HP 48 power-on settings
func DefaultConfig(device string) *Config {
	if device == "" {
		device = DefaultDevice
	}
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 4000,
	}
}
