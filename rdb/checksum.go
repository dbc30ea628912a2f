package rdb

import "hash/crc64"

// Reflected form of the Jones polynomial 0xad93d23594c935a9 used by redis crc64.c.
const jonesPolyReflected = 0x95ac9329ac4bc9b5

var jonesTable = crc64.MakeTable(jonesPolyReflected)

// Checksum continues a redis CRC-64 over p. Redis starts from 0 and applies no
// final inversion, while hash/crc64 inverts on both ends, hence the double ^.
func Checksum(crc uint64, p []byte) uint64 {
	return ^crc64.Update(^crc, jonesTable, p)
}
