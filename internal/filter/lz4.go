package filter

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4HeaderSize is the big-endian decoded length stored ahead of the block.
const lz4HeaderSize = 8

// LZ4 implements LZ4 block compression. Encoded chunks carry their decoded
// size so the output buffer can be sized exactly.
type LZ4 struct{}

// NewLZ4 creates a new LZ4 filter.
func NewLZ4(clientData []uint32) *LZ4 {
	return &LZ4{}
}

func (f *LZ4) ID() uint16 {
	return FilterLZ4
}

func (f *LZ4) Encode(input []byte) ([]byte, error) {
	dst := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(input)))
	binary.BigEndian.PutUint64(dst, uint64(len(input)))
	if len(input) == 0 {
		return dst[:lz4HeaderSize], nil
	}

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(input, dst[lz4HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("lz4 compress: %d bytes are incompressible", len(input))
	}
	return dst[:lz4HeaderSize+n], nil
}

func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < lz4HeaderSize {
		return nil, fmt.Errorf("lz4 decompress: %d bytes is shorter than the header", len(input))
	}
	size := binary.BigEndian.Uint64(input)
	output := make([]byte, size)
	if size == 0 {
		return output, nil
	}
	n, err := lz4.UncompressBlock(input[lz4HeaderSize:], output)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, header says %d", n, size)
	}
	return output, nil
}
