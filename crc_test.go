package sdspi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC7(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  byte
	}{
		{"CMD0", []byte{0x40, 0x00, 0x00, 0x00, 0x00}, 0x4A},
		{"CMD8 0x1AA", []byte{0x48, 0x00, 0x00, 0x01, 0xAA}, 0x43},
		{"CMD55", []byte{0x77, 0x00, 0x00, 0x00, 0x00}, 0x32},
		{"ACMD41 HCS", []byte{0x69, 0x40, 0x00, 0x00, 0x00}, 0x3B},
		{"CMD58", []byte{0x7A, 0x00, 0x00, 0x00, 0x00}, 0x7E},
		{"empty", nil, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, crc7(tt.frame))
		})
	}
}

func TestCRC7_Range(t *testing.T) {
	buf := make([]byte, 5)
	for i := 0; i < 256; i++ {
		for j := range buf {
			buf[j] = byte(i * (j + 7))
		}
		got := crc7(buf)
		require.LessOrEqual(t, got, byte(0x7F))
		require.Equal(t, got, crc7(buf), "crc7 must be deterministic")
	}
}
