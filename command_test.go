package sdspi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		name  string
		fixed bool
		cmd   Command
		want  [frameLen]byte
	}{
		{"CMD0 fixed CRC", true, Command{Index: 0}, [frameLen]byte{0x40, 0x00, 0x00, 0x00, 0x00, 0x95}},
		{"CMD0 computed CRC", false, Command{Index: 0}, [frameLen]byte{0x40, 0x00, 0x00, 0x00, 0x00, 0x95}},
		{"CMD0 fixed CRC ignores argument", true, Command{Index: 0, Argument: 1}, [frameLen]byte{0x40, 0x00, 0x00, 0x00, 0x01, 0x95}},
		{"CMD8", false, Command{Index: 8, Argument: 0x1AA}, [frameLen]byte{0x48, 0x00, 0x00, 0x01, 0xAA, 0x87}},
		{"CMD8 fixed mode", true, Command{Index: 8, Argument: 0x1AA}, [frameLen]byte{0x48, 0x00, 0x00, 0x01, 0xAA, 0x87}},
		{"CMD55", true, Command{Index: 55}, [frameLen]byte{0x77, 0x00, 0x00, 0x00, 0x00, 0x65}},
		{"ACMD41 HCS", true, Command{Index: 41, Argument: hcsBit, App: true}, [frameLen]byte{0x69, 0x40, 0x00, 0x00, 0x00, 0x77}},
		{"CMD58", true, Command{Index: 58}, [frameLen]byte{0x7A, 0x00, 0x00, 0x00, 0x00, 0xFD}},
		{"CMD63", false, Command{Index: 63, Argument: 0xDEADBEEF}, [frameLen]byte{0x7F, 0xDE, 0xAD, 0xBE, 0xEF, crc7([]byte{0x7F, 0xDE, 0xAD, 0xBE, 0xEF})<<1 | 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := framer{fixedCMD0: tt.fixed}.frame(tt.cmd)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, byte(1), got[5]&1, "stop bit")
		})
	}
}

func TestFrame_InvalidIndex(t *testing.T) {
	for _, idx := range []uint8{64, 0x80, 0xFF} {
		_, err := framer{}.frame(Command{Index: idx})
		require.ErrorIs(t, err, ErrInvalidCommand)
	}
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "CMD8(0x000001AA)", Command{Index: 8, Argument: 0x1AA}.String())
	require.Equal(t, "ACMD41(0x40000000)", Command{Index: 41, Argument: hcsBit, App: true}.String())
}
