package layout

import (
	"math"
	"math/bits"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// ChunkDims guesses chunk dimensions: an N-dimensional cube whose byte size
// is the data volume clamped to the chunk band and rounded up to a power of
// two. Axes never exceed a bounded max axis. Non-chunked layouts get nil and
// scalars get their (empty) dims.
func (t Thresholds) ChunkDims(class Class, elemBytes uint64, dims, maxDims []uint64) ([]uint64, error) {
	if class != Chunked {
		return nil, nil
	}
	if len(dims) == 0 {
		return []uint64{}, nil
	}
	if elemBytes == 0 {
		return nil, h5err.New(h5err.InvalidConfig, "cannot plan chunks for zero-byte elements")
	}

	effective := make([]uint64, len(dims))
	for i, d := range dims {
		effective[i] = max(1, d)
	}
	if maxDims != nil {
		if len(maxDims) != len(dims) {
			return nil, h5err.New(h5err.RankMismatch,
				"could not get chunk dimensions: dims %s and max dims %s have different ranks",
				space.Format(dims), space.Format(maxDims))
		}
		if err := space.CheckBounds(dims, maxDims); err != nil {
			return nil, err
		}
		for i, m := range maxDims {
			if m != space.Unlimited {
				effective[i] = max(effective[i], m)
			}
		}
	}

	rank := float64(len(dims))
	var longest uint64
	for _, e := range effective {
		longest = max(longest, e)
	}
	volume := math.Pow(float64(longest), rank) * float64(elemBytes)

	lo := float64(max(elemBytes, t.MinChunkBytes))
	hi := float64(max(elemBytes, t.MaxChunkBytes))
	target := nextPowerOfTwo(uint64(math.Min(math.Max(volume, lo), hi)))

	root := math.Pow(float64(target/elemBytes), 1/rank)
	if r := math.Round(root); math.Abs(root-r) < 1e-9 {
		root = r
	}
	edge := max(1, uint64(math.Ceil(root)))

	chunk := make([]uint64, len(dims))
	for i := range chunk {
		chunk[i] = edge
		if maxDims != nil && maxDims[i] != space.Unlimited {
			chunk[i] = max(1, min(maxDims[i], edge))
		}
	}
	return chunk, nil
}

func nextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len64(v-1)
}
