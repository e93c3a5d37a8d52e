package introspect

import (
	"reflect"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Resolved is the shape and size a value implies.
type Resolved struct {
	Rank     int
	Dims     []uint64
	Size     uint64 // Number of elements
	Bytes    uint64 // Total bytes; for text, the encoded lengths plus terminators
	ElemSize uint64 // Bytes per element; for text, the fixed width or 0 for containers
}

func sized(dims []uint64, elemSize uint64) Resolved {
	n := space.Size(dims)
	return Resolved{Rank: len(dims), Dims: space.Clone(dims), Size: n, Bytes: n * elemSize, ElemSize: elemSize}
}

// Resolve derives the shape of v. A nil hint means none was given; an empty
// non-nil hint asks for a scalar.
//
// Raw pointers take the hint as authoritative. Containers that report their
// dims must agree with the hint. 1-D buffers and fixed arrays may be
// reshaped by a hint holding the same number of elements. A single string
// is always rank 0; with a hint its fixed width is the hinted element count.
func Resolve(v reflect.Value, info Info, hint []uint64) (Resolved, error) {
	v, err := deref(v)
	if err != nil {
		return Resolved{}, err
	}
	es := info.ElemSize()

	switch {
	case info.Has(RawPointer):
		if hint == nil {
			return Resolved{}, h5err.New(h5err.MissingDimensions,
				"raw buffer %v needs a shape hint", info.Type)
		}
		return sized(hint, es), nil

	case info.Has(AxisAccessor):
		dims := asShaped(v).Dims()
		if hint != nil {
			if err := matchHint(dims, hint); err != nil {
				return Resolved{}, err
			}
		}
		return sized(dims, es), nil

	case info.Has(TextLike):
		if hint == nil {
			n := uint64(v.Len()) + 1
			return Resolved{Rank: 0, Size: 1, Bytes: n, ElemSize: n}, nil
		}
		w := space.Size(hint)
		return Resolved{Rank: 0, Size: 1, Bytes: w, ElemSize: w}, nil

	case info.Has(TextContainer):
		dims, err := reshape([]uint64{uint64(v.Len())}, hint)
		if err != nil {
			return Resolved{}, err
		}
		var total uint64
		for i := 0; i < v.Len(); i++ {
			total += uint64(v.Index(i).Len()) + 1
		}
		return Resolved{Rank: len(dims), Dims: dims, Size: uint64(v.Len()), Bytes: total}, nil

	case info.Rank == 0:
		dims, err := reshape(nil, hint)
		if err != nil {
			return Resolved{}, err
		}
		return sized(dims, es), nil

	case v.Kind() == reflect.Slice:
		dims, err := reshape([]uint64{uint64(v.Len())}, hint)
		if err != nil {
			return Resolved{}, err
		}
		return sized(dims, es), nil

	default:
		dims, err := reshape(info.StaticDims, hint)
		if err != nil {
			return Resolved{}, err
		}
		return sized(dims, es), nil
	}
}

func matchHint(dims, hint []uint64) error {
	if len(dims) != len(hint) {
		return h5err.New(h5err.RankMismatch,
			"value has rank %d %s, hint has rank %d %s", len(dims), space.Format(dims), len(hint), space.Format(hint))
	}
	for i := range dims {
		if dims[i] != hint[i] {
			return h5err.WithAxis(h5err.New(h5err.DimensionMismatch,
				"value dims %s differ from hint %s on axis %d", space.Format(dims), space.Format(hint), i), i)
		}
	}
	return nil
}

// reshape applies a hint to a buffer of the natural shape. The element
// count must not change.
func reshape(natural, hint []uint64) ([]uint64, error) {
	if hint == nil {
		return space.Clone(natural), nil
	}
	count := space.Size(natural)
	if len(hint) == 0 {
		if count != 1 {
			return nil, h5err.WithSizes(h5err.New(h5err.SizeMismatch,
				"an empty shape describes one element, the value holds %d", count), 1, count)
		}
		return nil, nil
	}
	if n := space.Size(hint); n != count {
		return nil, h5err.WithSizes(h5err.New(h5err.SizeMismatch,
			"shape %s holds %d elements, the value holds %d", space.Format(hint), n, count), n, count)
	}
	return space.Clone(hint), nil
}
