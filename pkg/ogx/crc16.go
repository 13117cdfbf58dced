package ogx

// CRC16 computes the CRC-16/CCITT (XMODEM) checksum of data.
//
// Parameters: polynomial 0x1021, initial value 0x0000, no input or
// output reflection, no final XOR. Reference vector:
// CRC16([]byte("123456789")) == 0x31C3.
//
// The checksum is exposed for local pre-submission validation; the
// gateway performs its own verification on receipt.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
