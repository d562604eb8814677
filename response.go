package sdspi

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// ResponseKind identifies the format of a card response. It depends only on
// the command that produced it. [SD-PLS|7.3.2 Responses]
type ResponseKind uint8

const (
	KindR1 ResponseKind = iota + 1
	KindR2
	KindR3
	KindR6
	KindR7
)

// Len returns the number of bytes of the response, counted from the first
// byte with its top bit cleared.
func (k ResponseKind) Len() int {
	switch k {
	case KindR2:
		return 2
	case KindR3, KindR6, KindR7:
		return 5
	default:
		return 1
	}
}

func (k ResponseKind) String() string {
	switch k {
	case KindR1:
		return "R1"
	case KindR2:
		return "R2"
	case KindR3:
		return "R3"
	case KindR6:
		return "R6"
	case KindR7:
		return "R7"
	}
	return fmt.Sprintf("ResponseKind(%d)", k)
}

func responseKind(index uint8) ResponseKind {
	switch index {
	case cmdSendRelativeAddr:
		return KindR6
	case cmdSendIfCond:
		return KindR7
	case cmdSendStatus:
		return KindR2
	case cmdReadOCR:
		return KindR3
	}
	return KindR1
}

// Response is a decoded card response: one of R1, R2, R3, R6 or R7.
type Response interface {
	Kind() ResponseKind
	Status() R1
}

// R1 is the status byte that starts every SPI response.
//
//	Bits| [SD-PLS|7.3.2.1 Format R1]
//	----+---------------------------
//	7   | always 0
//	6   | parameter error
//	5   | address error
//	4   | erase sequence error
//	3   | com crc error
//	2   | illegal command
//	1   | erase reset
//	0   | in idle state
type R1 byte

func (r R1) InIdleState() bool        { return r&(1<<0) != 0 }
func (r R1) EraseReset() bool         { return r&(1<<1) != 0 }
func (r R1) IllegalCommand() bool     { return r&(1<<2) != 0 }
func (r R1) CRCError() bool           { return r&(1<<3) != 0 }
func (r R1) EraseSequenceError() bool { return r&(1<<4) != 0 }
func (r R1) AddressError() bool       { return r&(1<<5) != 0 }
func (r R1) ParameterError() bool     { return r&(1<<6) != 0 }

func (r R1) Kind() ResponseKind { return KindR1 }
func (r R1) Status() R1         { return r }

// Rejected reports whether the card refused the command.
func (r R1) Rejected() bool { return r.IllegalCommand() || r.ParameterError() }

func (r R1) String() string {
	b := fmt.Sprintf("%08b", byte(r))
	s := []string{}
	if r.ParameterError() {
		s = append(s, "PARAM")
	}
	if r.AddressError() {
		s = append(s, "ADDR")
	}
	if r.EraseSequenceError() {
		s = append(s, "ERASE_SEQ")
	}
	if r.CRCError() {
		s = append(s, "CRC")
	}
	if r.IllegalCommand() {
		s = append(s, "ILLEGAL")
	}
	if r.EraseReset() {
		s = append(s, "ERASE_RESET")
	}
	if r.InIdleState() {
		s = append(s, "IDLE")
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

// R2Status is the second byte of an R2 response.
//
//	Bits| [SD-PLS|7.3.2.3 Format R2]
//	----+---------------------------
//	7   | out of range | csd overwrite
//	6   | erase param
//	5   | wp violation
//	4   | card ECC failed
//	3   | CC error
//	2   | error
//	1   | wp erase skip | lock/unlock cmd failed
//	0   | card is locked
type R2Status byte

func (s R2Status) OutOfRange() bool       { return s&(1<<7) != 0 }
func (s R2Status) EraseParam() bool       { return s&(1<<6) != 0 }
func (s R2Status) WPViolation() bool      { return s&(1<<5) != 0 }
func (s R2Status) ECCFailed() bool        { return s&(1<<4) != 0 }
func (s R2Status) CCError() bool          { return s&(1<<3) != 0 }
func (s R2Status) GeneralError() bool     { return s&(1<<2) != 0 }
func (s R2Status) LockUnlockFailed() bool { return s&(1<<1) != 0 }
func (s R2Status) Locked() bool           { return s&(1<<0) != 0 }

func (s R2Status) String() string {
	b := fmt.Sprintf("%08b", byte(s))
	names := []string{"LOCKED", "LOCK_FAILED", "ERROR", "CC_ERROR", "ECC_FAILED", "WP_VIOLATION", "ERASE_PARAM", "OUT_OF_RANGE"}
	set := []string{}
	for i := len(names) - 1; i >= 0; i-- {
		if s&(1<<i) != 0 {
			set = append(set, names[i])
		}
	}
	if len(set) == 0 {
		return b
	}
	return b + " " + strings.Join(set, ",")
}

// R2 is the response to CMD13 (SEND_STATUS).
type R2 struct {
	R1
	Ext R2Status
}

func (R2) Kind() ResponseKind { return KindR2 }

// R3 is the response to CMD58 (READ_OCR).
type R3 struct {
	R1
	OCR OCR
}

func (R3) Kind() ResponseKind { return KindR3 }

// R6 carries the relative card address. Cards answer CMD3 only in SD mode.
type R6 struct {
	R1
	RCA        uint16
	CardStatus uint16
}

func (R6) Kind() ResponseKind { return KindR6 }

// R7 is the response to CMD8 (SEND_IF_COND); Echo repeats the argument bits
// the card accepted.
type R7 struct {
	R1
	Echo uint32
}

func (R7) Kind() ResponseKind { return KindR7 }

// CheckPattern returns the echoed check pattern.
func (r R7) CheckPattern() byte { return byte(r.Echo) }

// Voltage returns the accepted voltage range code (0x1 for 2.7-3.6V).
func (r R7) Voltage() byte { return byte(r.Echo>>8) & 0x0F }

// OCR is the operation conditions register. [SD-PLS|5.1 OCR register]
type OCR uint32

// PowerUpDone reports the card power up status bit (bit 31).
func (o OCR) PowerUpDone() bool { return o&(1<<31) != 0 }

// CCS reports the Card Capacity Status bit (bit 30), valid only after
// PowerUpDone; set for SDHC/SDXC cards.
func (o OCR) CCS() bool { return o&(1<<30) != 0 }

// VoltageWindow returns the supported VDD bits 15-23 (2.7V to 3.6V in 100mV
// steps), lowest window in bit 0.
func (o OCR) VoltageWindow() uint16 { return uint16(o>>15) & 0x1FF }

func (o OCR) String() string {
	s := fmt.Sprintf("%08X", uint32(o))
	if o.PowerUpDone() {
		s += " READY"
	}
	if o.CCS() {
		s += " CCS"
	}
	return s + fmt.Sprintf(" VDD=%09b", o.VoltageWindow())
}

// decode parses the bytes clocked in after the command frame for command
// index. Leading 0xFF filler is skipped. A card that does not know the
// command answers with a bare R1, so an R1 with illegal-command set is
// returned alone whatever the expected kind.
func decode(index uint8, raw []byte) (Response, error) {
	kind := responseKind(index)

	start := slices.IndexFunc(raw, func(b byte) bool { return b&0x80 == 0 })
	if start < 0 {
		return nil, fmt.Errorf("%w: CMD%d within %d bytes", ErrResponseTimeout, index, len(raw))
	}
	body := raw[start:]
	r1 := R1(body[0])
	if kind == KindR1 || r1.IllegalCommand() {
		return r1, nil
	}

	if len(body) < kind.Len() {
		return nil, fmt.Errorf("%w: CMD%d %s needs %d bytes, got %d", ErrShortRead, index, kind, kind.Len(), len(body))
	}

	switch kind {
	case KindR2:
		return R2{R1: r1, Ext: R2Status(body[1])}, nil
	case KindR3:
		return R3{R1: r1, OCR: OCR(binary.BigEndian.Uint32(body[1:5]))}, nil
	case KindR6:
		return R6{
			R1:         r1,
			RCA:        binary.BigEndian.Uint16(body[1:3]),
			CardStatus: binary.BigEndian.Uint16(body[3:5]),
		}, nil
	default:
		return R7{R1: r1, Echo: binary.BigEndian.Uint32(body[1:5])}, nil
	}
}

// rejection returns a *CommandRejectedError when resp reports cmd as refused.
func rejection(cmd Command, resp Response) error {
	if st := resp.Status(); st.Rejected() {
		return &CommandRejectedError{Command: cmd, Status: st}
	}
	return nil
}
