package sdspi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

const (
	vendorFTDI      = 0x0403
	productFT2232H  = 0x6010
	productFT232H   = 0x6014
	defaultCSPinTag = "D4"
)

// AdapterConfig selects the USB-SPI bridge and the pin wired to the card's
// chip select.
type AdapterConfig struct {
	VendorID  uint16
	ProductID uint16 // 0 accepts both FT2232H and FT232H
	CS        string // MPSSE pin name, D3-D7 or C0-C7
}

var DefaultAdapterConfig = AdapterConfig{
	VendorID:  vendorFTDI,
	ProductID: productFT2232H,
	CS:        defaultCSPinTag,
}

// Adapter is an FTDI MPSSE bridge with an SD card on its SPI port.
type Adapter struct {
	FTDI *ftdi.FT232H

	// [FTDI-AN_114|2 Connecting the Hardware]
	// ADBUS0 | SCK  -> card CLK
	// ADBUS1 | MOSI -> card CMD/DI
	// ADBUS2 | MISO <- card DAT0/DO
	// ADBUS4 | GPIO -> card DAT3/CS (default)
	cs   gpio.PinIO
	port spi.PortCloser
}

var hostInitialized atomic.Bool

// NewAdapter finds the FTDI device and opens its MPSSE SPI port. The bus is
// connected later by the card's Configure call.
func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	a := &Adapter{}
	if err := a.findFTDI(cfg.VendorID, cfg.ProductID); err != nil {
		return nil, err
	}

	cs, err := a.pin(cfg.CS)
	if err != nil {
		return nil, err
	}
	a.cs = cs
	// card deselected until the first exchange
	if err := a.cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to drive %s high: %w", cfg.CS, err)
	}

	a.port, err = a.FTDI.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}
	return a, nil
}

// Transport returns a Transport over the adapter's SPI port. The FTDI MPSSE
// engine supports SPI mode 0 and 2 only [FTDI-AN_114|1.2]; SD cards use mode 0.
func (a *Adapter) Transport() *PortTransport {
	return NewPortTransport(a.port, a.cs)
}

func (a *Adapter) Close() error {
	return a.port.Close()
}

// AdapterInfo identifies the bridge chip.
type AdapterInfo struct {
	Type         string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Desc         string
	Serial       string
}

// Info reads the device descriptor and the EEPROM strings.
// Reference: https://github.com/periph/cmd/tree/main/ftdi-list
func (a *Adapter) Info() (AdapterInfo, error) {
	i := ftdi.Info{}
	a.FTDI.Info(&i)
	info := AdapterInfo{
		Type:      i.Type,
		VendorID:  i.VenID,
		ProductID: i.DevID,
	}

	ee := ftdi.EEPROM{}
	if err := a.FTDI.EEPROM(&ee); err != nil {
		return info, fmt.Errorf("failed to read EEPROM: %w", err)
	}
	info.Manufacturer = ee.Manufacturer
	info.Desc = ee.Desc
	info.Serial = ee.Serial
	return info, nil
}

// matchDevice reports whether an enumerated device is the bridge asked for.
func matchDevice(info ftdi.Info, vendorID, productID uint16) bool {
	if info.VenID != vendorID {
		return false
	}
	if productID != 0 {
		return info.DevID == productID
	}
	return info.DevID == productFT2232H || info.DevID == productFT232H
}

func (a *Adapter) findFTDI(vendorID, productID uint16) error {
	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if !matchDevice(info, vendorID, productID) {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			a.FTDI = ft
			return nil
		}
	}
	return errors.New("FTDI MPSSE device not found")
}

func (a *Adapter) pin(name string) (gpio.PinIO, error) {
	ft := a.FTDI
	pins := map[string]gpio.PinIO{
		"D3": ft.D3, "D4": ft.D4, "D5": ft.D5, "D6": ft.D6, "D7": ft.D7,
		"C0": ft.C0, "C1": ft.C1, "C2": ft.C2, "C3": ft.C3,
		"C4": ft.C4, "C5": ft.C5, "C6": ft.C6, "C7": ft.C7,
	}
	p, ok := pins[name]
	if !ok {
		return nil, fmt.Errorf("unknown chip select pin %q", name)
	}
	return p, nil
}
