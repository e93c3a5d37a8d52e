package space

import (
	"github.com/robert-malhotra/go-h5pp/h5err"
)

// SelectAll selects every element of the space.
func (s *Space) SelectAll() {
	s.sel = SelectAll
	s.slab = Hyperslab{}
}

// SelectNone clears the selection.
func (s *Space) SelectNone() {
	s.sel = SelectNone
	s.slab = Hyperslab{}
}

// SelectionKind returns what is currently selected.
func (s *Space) SelectionKind() SelectionKind {
	return s.sel
}

// Select applies a hyperslab to the space.
//
// The combine operator is forced to OpSet when the space has no hyperslab
// selection yet. After combining, the result must be a single regular
// region contained in the current shape; otherwise an InvalidSelection
// error is returned and the previous selection is left untouched.
func (s *Space) Select(h Hyperslab) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.IsEmpty() {
		return h5err.New(h5err.InvalidSelection, "hyperslab has no offset and extent")
	}
	if s.Kind != Simple {
		return h5err.New(h5err.InvalidSelection, "cannot select a hyperslab on a %s space", s.Kind)
	}
	if h.Rank() != s.Rank() {
		return h5err.New(h5err.InvalidSelection,
			"hyperslab rank %d does not match space rank %d | space: %s | hyperslab: %s",
			h.Rank(), s.Rank(), s, h)
	}

	next := h.normalized()
	op := next.Op
	if s.sel != SelectHyperslab {
		op = OpSet
	}
	next.Op = OpSet

	if axis := next.containedIn(s.Dims); axis >= 0 {
		return s.notContained(next, axis)
	}

	kind := SelectHyperslab
	switch op {
	case OpSet:
	case OpOr:
		merged, ok := union(s.slab, next)
		if !ok {
			return h5err.New(h5err.InvalidSelection,
				"union of hyperslabs is irregular (non-rectangular) | current: %s | added: %s", s.slab, next)
		}
		next = merged
	case OpAnd:
		common, empty, ok := intersect(s.slab, next)
		if !ok {
			return h5err.New(h5err.InvalidSelection,
				"intersection of hyperslabs is irregular (non-rectangular) | current: %s | added: %s", s.slab, next)
		}
		if empty {
			kind = SelectNone
		}
		next = common
	default:
		return h5err.New(h5err.InvalidSelection, "unknown selection operator %s", op)
	}

	if kind == SelectHyperslab && next.selectsNothing() {
		kind = SelectNone
	}
	if kind == SelectNone {
		s.SelectNone()
		return nil
	}
	if axis := next.containedIn(s.Dims); axis >= 0 {
		return s.notContained(next, axis)
	}
	s.sel = SelectHyperslab
	s.slab = next
	return nil
}

func (s *Space) notContained(h Hyperslab, axis int) error {
	return h5err.WithAxis(h5err.New(h5err.InvalidSelection,
		"hyperslab is not contained in the given space on axis %d (upper bound %d > extent %d) | space: %s | hyperslab: %s",
		axis, h.UpperBounds()[axis], s.Dims[axis], s, h), axis)
}

// Selection reconstructs the current selection as a hyperslab.
//
// An "all" selection yields zero offsets and the full extent. A "none"
// selection yields an empty hyperslab. A hyperslab that no longer fits the
// current shape is reported as InvalidSelection.
func (s *Space) Selection() (Hyperslab, error) {
	switch s.sel {
	case SelectAll:
		rank := s.Rank()
		return Hyperslab{
			Offset: make([]uint64, rank),
			Extent: Clone(s.Dims),
			Stride: ones(rank),
			Block:  ones(rank),
		}, nil
	case SelectNone:
		return Hyperslab{}, nil
	case SelectHyperslab:
		if axis := s.slab.containedIn(s.Dims); axis >= 0 {
			return Hyperslab{}, s.notContained(s.slab, axis)
		}
		return s.slab.Clone(), nil
	default:
		return Hyperslab{}, h5err.New(h5err.InvalidSelection, "unknown selection kind %s", s.sel)
	}
}

// IsRegular reports whether the selection is a single rectangular region.
// Irregular combinations are rejected by Select, so this only fails for an
// unknown selection state.
func (s *Space) IsRegular() bool {
	return s.sel == SelectAll || s.sel == SelectNone || s.sel == SelectHyperslab
}

// IsContained reports whether the selection lies inside the current shape.
func (s *Space) IsContained() bool {
	if s.sel != SelectHyperslab {
		return true
	}
	return s.slab.containedIn(s.Dims) < 0
}

// NumSelected returns the number of selected elements.
func (s *Space) NumSelected() uint64 {
	switch s.sel {
	case SelectAll:
		return s.NumElements()
	case SelectHyperslab:
		return s.slab.NumElements()
	default:
		return 0
	}
}

// SelectionShape returns the per-axis element counts of the selection.
func (s *Space) SelectionShape() []uint64 {
	switch s.sel {
	case SelectAll:
		return Clone(s.Dims)
	case SelectHyperslab:
		return s.slab.Shape()
	default:
		return make([]uint64, s.Rank())
	}
}
