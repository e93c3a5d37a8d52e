package filter

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

// One encoder pool per speed level. zstd.EncoderLevel runs from SpeedFastest
// to SpeedBestCompression.
var zstdEncoderPools [zstd.SpeedBestCompression + 1]sync.Pool

func init() {
	for lvl := zstd.SpeedFastest; lvl <= zstd.SpeedBestCompression; lvl++ {
		lvl := lvl
		zstdEncoderPools[lvl].New = func() any {
			encoder, err := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(lvl),
				zstd.WithEncoderCRC(false),
			)
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
			}
			return encoder
		}
	}
}

// Zstd implements Zstandard compression.
type Zstd struct {
	level zstd.EncoderLevel
}

// NewZstd creates a new zstd filter.
// Client data: [0] = zstd compression level (1-22, or default if empty)
func NewZstd(clientData []uint32) *Zstd {
	level := zstd.SpeedDefault
	if len(clientData) > 0 && clientData[0] > 0 {
		level = zstd.EncoderLevelFromZstd(int(clientData[0]))
	}
	return &Zstd{level: level}
}

func (f *Zstd) ID() uint16 {
	return FilterZstd
}

func (f *Zstd) Encode(input []byte) ([]byte, error) {
	pool := &zstdEncoderPools[f.level]
	encoder := pool.Get().(*zstd.Encoder)
	defer pool.Put(encoder)

	return encoder.EncodeAll(input, nil), nil
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	output, err := decoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return output, nil
}
