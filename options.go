package sdspi

import (
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Config holds the card initialization settings.
type Config struct {
	Bus BusConfig

	// FixedCMD0CRC sends CMD0 with the literal 0x95 CRC byte instead of a
	// computed one.
	FixedCMD0CRC bool

	// CRCChecking turns on CRC verification in the card with CMD59.
	CRCChecking bool

	// ReadOCR reads the OCR with CMD58 after initialization so that
	// high capacity is taken from the CCS bit.
	ReadOCR bool

	// PreambleBytes is the number of 0xFF bytes clocked with the card
	// deselected before CMD0.
	PreambleBytes int

	// ResponseBudget is the number of bytes read while waiting for a
	// response to start (Ncr).
	ResponseBudget int

	IdleAttempts      int
	IdleRetryInterval time.Duration
	PollInterval      time.Duration
	InitTimeout       time.Duration

	Clock  Clock
	Logger *slog.Logger
}

func defaultConfig() Config {
	return Config{
		Bus: BusConfig{
			// [SD-PLS|4.2.1 Card Reset] identification runs at 100-400kHz
			Clock:    400 * physic.KiloHertz,
			Mode:     spi.Mode0,
			IdleFill: 0xFF,
		},
		FixedCMD0CRC: true,

		// [SD-PLS|6.4.1.1 Power Up Time of Host] at least 74 clocks
		PreambleBytes: 10,
		// [SD-PLS|7.5.4 Timing Values] Ncr is at most 8 bytes
		ResponseBudget: 8,

		IdleAttempts:      10,
		IdleRetryInterval: time.Millisecond,
		PollInterval:      10 * time.Millisecond,
		// [SD-PLS|4.2.3 Card Initialization and Identification Process]
		// ACMD41 must finish within 1 second
		InitTimeout: time.Second,

		Clock: systemClock{},
	}
}

// Option configures a Card.
type Option func(*Config)

// WithBus sets the SPI bus settings used during initialization.
func WithBus(c BusConfig) Option {
	return func(cfg *Config) {
		cfg.Bus = c
	}
}

// WithFixedCMD0CRC selects between the precomputed 0x95 CRC byte for CMD0
// (default) and a computed one.
func WithFixedCMD0CRC(fixed bool) Option {
	return func(c *Config) {
		c.FixedCMD0CRC = fixed
	}
}

func WithCRCChecking(on bool) Option {
	return func(c *Config) {
		c.CRCChecking = on
	}
}

func WithReadOCR(on bool) Option {
	return func(c *Config) {
		c.ReadOCR = on
	}
}

// WithIdleAttempts sets how many times CMD0 is sent before giving up.
func WithIdleAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.IdleAttempts = n
		}
	}
}

// WithPolling sets the ACMD41 polling interval and the total time the card
// is given to leave the idle state.
func WithPolling(interval, timeout time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.PollInterval = interval
		}
		if timeout > 0 {
			c.InitTimeout = timeout
		}
	}
}

func WithResponseBudget(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ResponseBudget = n
		}
	}
}

func WithClock(clk Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
