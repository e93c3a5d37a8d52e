// Package space models dataspaces: shapes, max-shapes and the rectangular
// subset selections (hyperslabs) applied to them.
package space

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Kind is the type of a dataspace.
type Kind uint8

const (
	Scalar Kind = 0 // Single element
	Simple Kind = 1 // Regular N-dimensional array
	Null   Kind = 2 // No data
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Simple:
		return "simple"
	case Null:
		return "null"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// SelectionKind describes what part of a space is selected.
type SelectionKind uint8

const (
	SelectAll SelectionKind = iota
	SelectNone
	SelectHyperslab
)

func (k SelectionKind) String() string {
	switch k {
	case SelectAll:
		return "all"
	case SelectNone:
		return "none"
	case SelectHyperslab:
		return "hyperslab"
	default:
		return fmt.Sprintf("selection(%d)", uint8(k))
	}
}

// Space is a dataspace with its current selection.
type Space struct {
	Kind    Kind
	Dims    []uint64
	MaxDims []uint64 // nil means same as Dims

	sel  SelectionKind
	slab Hyperslab
}

// NewScalar creates a rank-0 space holding one element.
func NewScalar() *Space {
	return &Space{Kind: Scalar}
}

// NewNull creates a space holding no elements.
func NewNull() *Space {
	return &Space{Kind: Null, sel: SelectNone}
}

// NewSimple creates an N-dimensional space. An empty dims yields a scalar
// space. maxDims may be nil; otherwise it must have the same rank and bound
// every finite axis.
func NewSimple(dims, maxDims []uint64) (*Space, error) {
	if len(dims) == 0 {
		if len(maxDims) != 0 {
			return nil, h5err.New(h5err.RankMismatch,
				"scalar space cannot have max dimensions %s", Format(maxDims))
		}
		return NewScalar(), nil
	}
	if err := CheckBounds(dims, maxDims); err != nil {
		return nil, err
	}
	return &Space{Kind: Simple, Dims: Clone(dims), MaxDims: Clone(maxDims)}, nil
}

// Rank returns the number of axes.
func (s *Space) Rank() int {
	return len(s.Dims)
}

// NumElements returns the total number of elements in the space.
func (s *Space) NumElements() uint64 {
	switch s.Kind {
	case Null:
		return 0
	case Scalar:
		return 1
	default:
		return Size(s.Dims)
	}
}

// MaxShape returns the max-shape, defaulting to the current shape.
func (s *Space) MaxShape() []uint64 {
	if s.MaxDims == nil {
		return Clone(s.Dims)
	}
	return Clone(s.MaxDims)
}

// IsScalar returns true if this is a scalar dataspace.
func (s *Space) IsScalar() bool {
	return s.Kind == Scalar
}

// IsNull returns true if this is a null dataspace.
func (s *Space) IsNull() bool {
	return s.Kind == Null
}

// Clone returns a deep copy including the selection.
func (s *Space) Clone() *Space {
	c := *s
	c.Dims = Clone(s.Dims)
	c.MaxDims = Clone(s.MaxDims)
	c.slab = s.slab.Clone()
	return &c
}

// SetExtent changes the current shape. The rank is fixed and every axis must
// stay within the max-shape. The selection is kept as is and may stop being
// contained; Selection reports that.
func (s *Space) SetExtent(dims []uint64) error {
	if s.Kind != Simple {
		return h5err.New(h5err.ResizeNotSupported, "cannot set extent of a %s space", s.Kind)
	}
	if len(dims) != len(s.Dims) {
		return h5err.New(h5err.RankMismatch,
			"new dimensions %s have rank %d, space has rank %d", Format(dims), len(dims), len(s.Dims))
	}
	bound := s.MaxShape()
	if err := CheckBounds(dims, bound); err != nil {
		return err
	}
	// Without explicit max dims the original shape stays the bound.
	if s.MaxDims == nil {
		s.MaxDims = bound
	}
	s.Dims = Clone(dims)
	return nil
}

func (s *Space) String() string {
	if s.Kind != Simple {
		return s.Kind.String()
	}
	if s.MaxDims == nil {
		return Format(s.Dims)
	}
	return fmt.Sprintf("%s max %s", Format(s.Dims), Format(s.MaxDims))
}
