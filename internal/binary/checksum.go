// Package binary holds the checksums used on stored chunk data.
package binary

import (
	"encoding/binary"
	"fmt"
)

// Fletcher32 computes the Fletcher-32 checksum of data taken as
// little-endian 16-bit words. An odd trailing byte is padded with zero.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	for len(data) >= 2 {
		sum1 = (sum1 + uint32(binary.LittleEndian.Uint16(data))) % 65535
		sum2 = (sum2 + sum1) % 65535
		data = data[2:]
	}
	if len(data) == 1 {
		sum1 = (sum1 + uint32(data[0])) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	return sum2<<16 | sum1
}

// AppendFletcher32 returns data followed by its little-endian checksum.
func AppendFletcher32(data []byte) []byte {
	out := make([]byte, len(data)+4)
	copy(out, data)
	binary.LittleEndian.PutUint32(out[len(data):], Fletcher32(data))
	return out
}

// StripFletcher32 verifies the trailing checksum written by
// AppendFletcher32 and returns the data without it.
func StripFletcher32(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: input of %d bytes is too short for a checksum", len(input))
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	if computed := Fletcher32(data); stored != computed {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (stored=0x%08x, computed=0x%08x)", stored, computed)
	}
	return data, nil
}
