// Package sdspi brings up SD and SDNAND cards in SPI mode: command framing
// with CRC7, response decoding and the power-up initialization sequence.
//
// # References:
//
// SD Association (https://www.sdcard.org/downloads/pls/)
//   - [SD-PLS]: Physical Layer Simplified Specification Version 9.10 (https://www.sdcard.org/downloads/pls/pdf/?p=Part1PhysicalLayerSimplifiedSpecificationVer9.10Fin_20231201.pdf)
//
// FTDI (https://ftdichip.com/document/application-notes/)
//   - [FTDI-AN_108]: Command Processor for MPSSE and MCU Host Bus Emulation Modes (https://ftdichip.com/wp-content/uploads/2020/08/AN_108_Command_Processor_for_MPSSE_and_MCU_Host_Bus_Emulation_Modes.pdf)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
//   - [FTDI-DS_FT2232H]: FT2232H Hi-Speed Dual USB UART/FIFO IC Data Sheet (https://ftdichip.com/wp-content/uploads/2024/09/DS_FT2232H.pdf)
package sdspi
