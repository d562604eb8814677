package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCommand(config func() *Config) *cobra.Command {
	var readOCR, crc bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Run the SPI mode initialization sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := config()
			if cmd.Flags().Changed("read-ocr") {
				c.Init.ReadOCR = readOCR
			}
			if cmd.Flags().Changed("crc") {
				c.Init.CRCChecking = crc
			}

			card, a, info, err := openCard(c)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Printf("State:            %s\n", card.State())
			fmt.Printf("High capacity:    %t\n", info.SupportsHighCapacity)
			fmt.Printf("Legacy (v1.x):    %t\n", info.UsesLegacyVoltageCheck)
			if c.Init.ReadOCR && !info.UsesLegacyVoltageCheck {
				fmt.Printf("OCR:              %s\n", info.OCR)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&readOCR, "read-ocr", false, "read OCR after initialization to confirm capacity")
	cmd.Flags().BoolVar(&crc, "crc", false, "enable CRC checking in the card (CMD59)")
	return cmd
}

func newOCRCommand(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr",
		Short: "Initialize the card and print its OCR register",
		RunE: func(_ *cobra.Command, _ []string) error {
			card, a, _, err := openCard(config())
			if err != nil {
				return err
			}
			defer a.Close()

			ocr, err := card.ReadOCR()
			if err != nil {
				return fmt.Errorf("read OCR failed: %w", err)
			}
			fmt.Println(ocr)
			return nil
		},
	}
}

func newStatusCommand(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Initialize the card and print its status (CMD13)",
		RunE: func(_ *cobra.Command, _ []string) error {
			card, a, _, err := openCard(config())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := card.SendStatus()
			if err != nil {
				return fmt.Errorf("send status failed: %w", err)
			}
			fmt.Printf("R1: %s\n", st.R1)
			fmt.Printf("R2: %s\n", st.Ext)
			return nil
		},
	}
}
