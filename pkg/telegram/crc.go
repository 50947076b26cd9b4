package telegram

import "github.com/sigurn/crc16"

// CRC-16/CCITT-FALSE: poly 0x1021, seed 0xffff.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum computes the integrity check over b.
func Checksum(b []byte) uint16 {
	return crc16.Checksum(b, crcTable)
}

func putCRC(frame []byte) {
	n := len(frame) - CRCSize
	putUint16(frame[n:], Checksum(frame[:n]))
}

func checkCRC(frame []byte) bool {
	n := len(frame) - CRCSize
	return getUint16(frame[n:]) == Checksum(frame[:n])
}

func putUint16(b []byte, v uint16) {
	b[0], b[1] = byte(v), byte(v>>8)
}

func getUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
