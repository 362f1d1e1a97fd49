package calc

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"hpxfer/host/serial"
	"hpxfer/protocol/kermit"
	"hpxfer/protocol/xmodem"
)

// Config holds the settings of one command run
type Config struct {
	Kermit *kermit.Config
	XModem *xmodem.Config

	// Finish asks the calculator's server to exit after the transfer
	Finish bool

	Logger log.FieldLogger
}

// DefaultConfig returns the protocol defaults and leaves the server running
func DefaultConfig() *Config {
	return &Config{
		Kermit: kermit.DefaultConfig(),
		XModem: xmodem.DefaultConfig(),
		Logger: log.StandardLogger(),
	}
}

// Calculator represents a serial connection to an HP 48. It owns the port
// for the duration of one command.
type Calculator struct {
	port serial.Port
	cfg  *Config
	log  log.FieldLogger

	// Connection state
	connected bool
}

// NewCalculator creates a new Calculator instance (not yet connected)
func NewCalculator(cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Calculator{
		cfg: cfg,
		log: logger,
	}
}

// Connect opens the serial port with the HP 48 defaults
func (c *Calculator) Connect(device string) error {
	return c.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the serial port with a custom config
func (c *Calculator) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	c.log.WithFields(log.Fields{"device": cfg.Device, "baud": cfg.Baud}).Debug("Serial port open")
	c.Attach(port)
	return nil
}

// Attach uses an already open port
func (c *Calculator) Attach(port serial.Port) {
	c.port = port
	c.connected = true
}

// Close closes the connection to the calculator
func (c *Calculator) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.port.Close()
}

// IsConnected returns whether a port is open
func (c *Calculator) IsConnected() bool {
	return c.connected
}

func (c *Calculator) checkConnected() error {
	if !c.connected {
		return fmt.Errorf("not connected to calculator")
	}
	// stale bytes from an earlier, aborted transfer would be taken as
	// the first response
	if err := c.port.Flush(); err != nil {
		return fmt.Errorf("failed to flush serial port: %w", err)
	}
	return nil
}
