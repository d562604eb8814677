package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gentam/sdspi"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdspi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.Equal(t, sdspi.DefaultAdapterConfig, c.AdapterConfig())
	require.True(t, c.Init.FixedCMD0CRC)
	require.Equal(t, int64(400_000), c.Init.ClockHz)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
adapter:
  product_id: 0x6014
  cs: C0
init:
  clock_hz: 250000
  poll_interval: 20ms
  init_timeout: 2s
  read_ocr: true
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, sdspi.AdapterConfig{VendorID: 0x0403, ProductID: 0x6014, CS: "C0"}, c.AdapterConfig())
	require.Equal(t, int64(250_000), c.Init.ClockHz)
	require.Equal(t, 20*time.Millisecond, c.Init.PollInterval)
	require.Equal(t, 2*time.Second, c.Init.InitTimeout)
	require.True(t, c.Init.ReadOCR)
	// untouched keys keep their defaults
	require.Equal(t, 10, c.Init.IdleAttempts)
	require.True(t, c.Init.FixedCMD0CRC)
	require.Len(t, c.CardOptions(), 6)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"clock too fast", "init:\n  clock_hz: 25000000\n", "init.clock_hz"},
		{"no chip select", "adapter:\n  cs: \"\"\n", "adapter.cs"},
		{"no vendor", "adapter:\n  vendor_id: 0\n", "adapter.vendor_id"},
		{"zero attempts", "init:\n  idle_attempts: 0\n", "init.idle_attempts"},
		{"timeout below interval", "init:\n  poll_interval: 1s\n  init_timeout: 10ms\n", "init.init_timeout"},
		{"bad yaml", "init: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
