package sdspi

import "fmt"

// Command is an SD command as sent in SPI mode. Application commands (ACMD)
// share the index space of regular commands and are told apart only by the
// CMD55 prefix the card receives before them.
type Command struct {
	Index    uint8
	Argument uint32
	App      bool
}

func (c Command) String() string {
	if c.App {
		return fmt.Sprintf("ACMD%d(0x%08X)", c.Index, c.Argument)
	}
	return fmt.Sprintf("CMD%d(0x%08X)", c.Index, c.Argument)
}

// Commands used in SPI mode: [SD-PLS|7.3.1.3 Detailed Command Description]
const (
	cmdGoIdleState      = 0
	cmdSendRelativeAddr = 3 // SD mode only, kept for the response table
	cmdSendIfCond       = 8
	cmdSendStatus       = 13
	cmdAppCmd           = 55
	cmdReadOCR          = 58
	cmdCRCOnOff         = 59

	acmdSendOpCond = 41
)

const (
	frameLen   = 6
	maxCmdIdx  = 0x3F
	cmd0CRC    = 0x95 // CRC byte of CMD0 with argument 0, precomputed
	frameStart = 0x40 // start bit 0, transmission bit 1
)

// [SD-PLS|4.3.13 Send Interface Condition Command (CMD8)]
const (
	ifCondVoltage = 0x1 // 2.7-3.6V
	ifCondPattern = 0xAA
	ifCondArg     = ifCondVoltage<<8 | ifCondPattern
)

// hcsBit is the Host Capacity Support bit of the ACMD41 argument.
const hcsBit = 1 << 30

// framer encodes commands into 6-byte frames.
//
// With fixedCMD0 set, CMD0 carries the literal 0x95 CRC byte instead of a
// computed one; the card has not been told to ignore CRCs when the first
// CMD0 arrives.
type framer struct {
	fixedCMD0 bool
}

// frame encodes cmd as
//
//	[01 index(6)] [argument(32) big-endian] [crc7(7) 1]
func (f framer) frame(cmd Command) ([frameLen]byte, error) {
	var buf [frameLen]byte
	if cmd.Index > maxCmdIdx {
		return buf, fmt.Errorf("%w: index %d does not fit in 6 bits", ErrInvalidCommand, cmd.Index)
	}

	buf[0] = frameStart | cmd.Index
	buf[1] = byte(cmd.Argument >> 24)
	buf[2] = byte(cmd.Argument >> 16)
	buf[3] = byte(cmd.Argument >> 8)
	buf[4] = byte(cmd.Argument)

	if f.fixedCMD0 && cmd.Index == cmdGoIdleState && !cmd.App {
		buf[5] = cmd0CRC
		return buf, nil
	}
	buf[5] = crc7(buf[:5])<<1 | 1
	return buf, nil
}
