package sdspi

// crc7 computes the 7-bit CRC of an SD command frame (without its last byte)
// using the generator x^7 + x^3 + 1 [SD-PLS|4.5 Cyclic Redundancy Code].
// Bits are consumed most significant first.
func crc7(data []byte) byte {
	const poly = 0x09 // x^3 + 1, x^7 is implicit

	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			crc <<= 1
			if (b^crc)&0x80 != 0 {
				crc ^= poly
			}
			b <<= 1
		}
	}
	return crc & 0x7F
}
