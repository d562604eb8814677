package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gentam/sdspi"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

type Config struct {
	Adapter AdapterConfig `yaml:"adapter"`
	Init    InitConfig    `yaml:"init"`
}

type AdapterConfig struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"` // 0 accepts FT2232H and FT232H
	CS        string `yaml:"cs"`
}

type InitConfig struct {
	ClockHz      int64         `yaml:"clock_hz"`
	IdleAttempts int           `yaml:"idle_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
	InitTimeout  time.Duration `yaml:"init_timeout"`
	FixedCMD0CRC bool          `yaml:"fixed_cmd0_crc"`
	CRCChecking  bool          `yaml:"crc_checking"`
	ReadOCR      bool          `yaml:"read_ocr"`
}

// [SD-PLS|4.2.1 Card Reset] identification clock
const (
	minClockHz = 100_000
	maxClockHz = 400_000
)

func defaultConfig() Config {
	return Config{
		Adapter: AdapterConfig{
			VendorID:  sdspi.DefaultAdapterConfig.VendorID,
			ProductID: sdspi.DefaultAdapterConfig.ProductID,
			CS:        sdspi.DefaultAdapterConfig.CS,
		},
		Init: InitConfig{
			ClockHz:      maxClockHz,
			IdleAttempts: 10,
			PollInterval: 10 * time.Millisecond,
			InitTimeout:  time.Second,
			FixedCMD0CRC: true,
		},
	}
}

// LoadConfig reads a YAML file on top of the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Adapter.VendorID == 0 {
		return errors.New("adapter.vendor_id is required")
	}
	if c.Adapter.CS == "" {
		return errors.New("adapter.cs is required")
	}
	if c.Init.ClockHz < minClockHz || c.Init.ClockHz > maxClockHz {
		return fmt.Errorf("init.clock_hz=%d out of range [%d, %d]", c.Init.ClockHz, minClockHz, maxClockHz)
	}
	if c.Init.IdleAttempts <= 0 {
		return fmt.Errorf("init.idle_attempts must be greater than 0")
	}
	if c.Init.PollInterval <= 0 {
		return fmt.Errorf("init.poll_interval must be greater than 0")
	}
	if c.Init.InitTimeout < c.Init.PollInterval {
		return fmt.Errorf("init.init_timeout=%s shorter than init.poll_interval=%s", c.Init.InitTimeout, c.Init.PollInterval)
	}
	return nil
}

func (c *Config) AdapterConfig() sdspi.AdapterConfig {
	return sdspi.AdapterConfig{
		VendorID:  c.Adapter.VendorID,
		ProductID: c.Adapter.ProductID,
		CS:        c.Adapter.CS,
	}
}

// CardOptions converts the init section into card options.
func (c *Config) CardOptions() []sdspi.Option {
	return []sdspi.Option{
		sdspi.WithBus(sdspi.BusConfig{
			Clock:    physic.Frequency(c.Init.ClockHz) * physic.Hertz,
			Mode:     spi.Mode0,
			IdleFill: 0xFF,
		}),
		sdspi.WithIdleAttempts(c.Init.IdleAttempts),
		sdspi.WithPolling(c.Init.PollInterval, c.Init.InitTimeout),
		sdspi.WithFixedCMD0CRC(c.Init.FixedCMD0CRC),
		sdspi.WithCRCChecking(c.Init.CRCChecking),
		sdspi.WithReadOCR(c.Init.ReadOCR),
	}
}
