package armor

const (
	crc24Init = 0xB704CE
	crc24Poly = 0x1864CFB
	crc24Mask = 0xFFFFFF
)

// CRC24 returns the armour checksum of data
func CRC24(data []byte) uint32 {
	return crc24Update(crc24Init, data)
}

func crc24Update(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc & crc24Mask
}
