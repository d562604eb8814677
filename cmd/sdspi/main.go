package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gentam/sdspi"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
		config     *Config
	)

	root := &cobra.Command{
		Use:          "sdspi",
		Short:        "SD card bring-up over an FTDI SPI bridge",
		Long:         "Initialize SD and SDNAND cards in SPI mode and query their registers",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			setupLogger(verbose)
			var err error
			config, err = LoadConfig(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every command and response")

	cfg := func() *Config { return config }
	root.AddCommand(newInitCommand(cfg))
	root.AddCommand(newOCRCommand(cfg))
	root.AddCommand(newStatusCommand(cfg))
	root.AddCommand(newInfoCommand(cfg))
	return root
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(
		slog.New(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}),
		),
	)
}

// openCard finds the adapter and initializes the card behind it. The caller
// closes the adapter.
func openCard(config *Config) (*sdspi.Card, *sdspi.Adapter, sdspi.CardInfo, error) {
	a, err := sdspi.NewAdapter(config.AdapterConfig())
	if err != nil {
		return nil, nil, sdspi.CardInfo{}, fmt.Errorf("failed to open adapter: %w", err)
	}
	card := sdspi.New(a.Transport(), config.CardOptions()...)
	info, err := card.Initialize()
	if err != nil {
		a.Close()
		return nil, nil, sdspi.CardInfo{}, err
	}
	return card, a, info, nil
}
