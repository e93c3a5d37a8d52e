package space

import (
	"github.com/robert-malhotra/go-h5pp/h5err"
)

// RunFunc receives one contiguous run of selected elements. coord is the
// coordinate of the first element of the run and is only valid during the
// call; n is the run length along the last axis.
type RunFunc func(coord []uint64, n uint64) error

// WalkRuns visits the selected elements in row-major order as contiguous
// runs along the last axis.
func (s *Space) WalkRuns(fn RunFunc) error {
	switch s.sel {
	case SelectNone:
		return nil
	case SelectAll:
		if s.Kind == Null {
			return nil
		}
		if s.Rank() == 0 {
			return fn(nil, 1)
		}
		all := Hyperslab{Offset: make([]uint64, s.Rank()), Extent: Clone(s.Dims)}
		if all.selectsNothing() {
			return nil
		}
		return walkSlab(all.normalized(), fn)
	default:
		if s.slab.selectsNothing() {
			return nil
		}
		return walkSlab(s.slab, fn)
	}
}

func walkSlab(h Hyperslab, fn RunFunc) error {
	coord := make([]uint64, len(h.Offset))
	return walkAxis(h, 0, coord, fn)
}

func walkAxis(h Hyperslab, dim int, coord []uint64, fn RunFunc) error {
	last := len(h.Offset) - 1
	if dim == last {
		// Innermost dimension: blocks are contiguous, and so is the whole
		// axis when blocks abut.
		if h.Stride[dim] == h.Block[dim] {
			coord[dim] = h.Offset[dim]
			return fn(coord, h.Extent[dim]*h.Block[dim])
		}
		for c := uint64(0); c < h.Extent[dim]; c++ {
			coord[dim] = h.Offset[dim] + c*h.Stride[dim]
			if err := fn(coord, h.Block[dim]); err != nil {
				return err
			}
		}
		return nil
	}

	for c := uint64(0); c < h.Extent[dim]; c++ {
		for b := uint64(0); b < h.Block[dim]; b++ {
			coord[dim] = h.Offset[dim] + c*h.Stride[dim] + b
			if err := walkAxis(h, dim+1, coord, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// RowMajorStrides returns the element stride of every axis of dims.
func RowMajorStrides(dims []uint64) []uint64 {
	strides := make([]uint64, len(dims))
	acc := uint64(1)
	for d := len(dims) - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= dims[d]
	}
	return strides
}

// Linear converts a coordinate to a row-major element index.
func Linear(coord, strides []uint64) uint64 {
	var idx uint64
	for i, c := range coord {
		idx += c * strides[i]
	}
	return idx
}

// Gather copies the selected elements of a full row-major buffer into a
// new packed buffer.
func Gather(src []byte, s *Space, elemSize int) ([]byte, error) {
	es := uint64(elemSize)
	if need := s.NumElements() * es; uint64(len(src)) < need {
		return nil, h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"source buffer of %d bytes is smaller than space %s (%d bytes)", len(src), s, need), uint64(len(src)), need)
	}
	out := make([]byte, s.NumSelected()*es)
	strides := RowMajorStrides(s.Dims)
	var pos uint64
	err := s.WalkRuns(func(coord []uint64, n uint64) error {
		off := Linear(coord, strides) * es
		pos += uint64(copy(out[pos:pos+n*es], src[off:off+n*es]))
		return nil
	})
	return out, err
}

// Scatter copies a packed buffer of selected elements into their positions
// in a full row-major buffer.
func Scatter(dst []byte, s *Space, elemSize int, packed []byte) error {
	es := uint64(elemSize)
	if need := s.NumElements() * es; uint64(len(dst)) < need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"destination buffer of %d bytes is smaller than space %s (%d bytes)", len(dst), s, need), uint64(len(dst)), need)
	}
	if need := s.NumSelected() * es; uint64(len(packed)) < need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"packed buffer of %d bytes is smaller than the selection (%d bytes)", len(packed), need), uint64(len(packed)), need)
	}
	strides := RowMajorStrides(s.Dims)
	var pos uint64
	return s.WalkRuns(func(coord []uint64, n uint64) error {
		off := Linear(coord, strides) * es
		pos += uint64(copy(dst[off:off+n*es], packed[pos:pos+n*es]))
		return nil
	})
}
