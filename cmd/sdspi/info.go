package main

import (
	"fmt"

	"github.com/gentam/sdspi"
	"github.com/spf13/cobra"
)

func newInfoCommand(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print FTDI adapter information",
		RunE: func(_ *cobra.Command, _ []string) error {
			c := config()
			a, err := sdspi.NewAdapter(c.AdapterConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			i, err := a.Info()
			fmt.Printf("Type:            %s\n", i.Type)
			fmt.Printf("Vendor ID:       %#04x\n", i.VendorID)
			fmt.Printf("Device ID:       %#04x\n", i.ProductID)
			if err != nil {
				return err
			}
			fmt.Printf("Manufacturer:    %s\n", i.Manufacturer)
			fmt.Printf("Desc:            %s\n", i.Desc)
			fmt.Printf("Serial:          %s\n", i.Serial)
			fmt.Printf("Chip select:     %s\n", c.Adapter.CS)

			for _, p := range a.FTDI.Header() {
				fmt.Printf("%s: %s\n", p, p.Function())
			}
			return nil
		},
	}
}
