package stream

import (
	"encoding/binary"
	"hash/crc32"
)

// crcTable is the IEEE CRC-32 table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// CRC32Digest is a cheap non-cryptographic digest, big-endian.
func CRC32Digest(raw []byte) []byte {
	return binary.BigEndian.AppendUint32(nil, ComputeCRC(raw))
}
