package sdspi

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// BusConfig describes the SPI bus settings the card is driven with.
type BusConfig struct {
	Clock physic.Frequency
	// Mode is the clock polarity/phase; OR spi.LSBFirst for LSB-first bit order.
	Mode spi.Mode
	// IdleFill is the byte driven on MOSI while only clocking data in.
	IdleFill byte
}

func (c BusConfig) String() string {
	return fmt.Sprintf("%s %s idle=0x%02X", c.Clock, c.Mode, c.IdleFill)
}

// Transport is the synchronous full-duplex channel to the card.
//
// Exchange clocks out tx and returns the bytes clocked in, of equal length.
// Chip select is driven separately so that the preamble can be sent with
// the card deselected.
type Transport interface {
	Configure(c BusConfig) error
	AssertChipSelect() error
	DeassertChipSelect() error
	Exchange(tx []byte) ([]byte, error)
}

// PortTransport drives a card through a periph SPI port with a GPIO chip
// select (active low).
type PortTransport struct {
	port spi.Port
	cs   gpio.PinOut

	conn spi.Conn
	cfg  BusConfig
}

func NewPortTransport(port spi.Port, cs gpio.PinOut) *PortTransport {
	return &PortTransport{
		port: port,
		cs:   cs,
	}
}

// Configure connects the port. periph ports can be connected only once, so
// a later call must ask for the same configuration.
func (t *PortTransport) Configure(c BusConfig) error {
	if t.conn != nil {
		if c != t.cfg {
			return fmt.Errorf("%w: have %s, want %s", ErrBusConfigured, t.cfg, c)
		}
		return nil
	}
	conn, err := t.port.Connect(c.Clock, c.Mode, 8)
	if err != nil {
		return fmt.Errorf("failed to connect SPI port: %w", err)
	}
	t.conn = conn
	t.cfg = c
	return nil
}

func (t *PortTransport) AssertChipSelect() error   { return t.cs.Out(gpio.Low) }
func (t *PortTransport) DeassertChipSelect() error { return t.cs.Out(gpio.High) }

func (t *PortTransport) Exchange(tx []byte) ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("SPI port %s not configured", t.port)
	}
	rx := make([]byte, len(tx))
	if err := t.conn.Tx(tx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}
