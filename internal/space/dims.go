package space

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Unlimited marks an unbounded max-shape axis. It has the same bit pattern
// as HDF5's H5S_UNLIMITED.
const Unlimited = ^uint64(0)

// Size returns the number of elements in a shape. The empty shape is a
// scalar and holds one element.
func Size[T constraints.Integer](dims []T) T {
	n := T(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// Equal reports whether two shapes are identical. A nil shape equals an
// empty one.
func Equal(a, b []uint64) bool {
	return slices.Equal(a, b)
}

// Clone copies a shape. nil stays nil.
func Clone(dims []uint64) []uint64 {
	if dims == nil {
		return nil
	}
	return slices.Clone(dims)
}

// Format renders a shape as "{a, b, c}", printing Unlimited as "inf".
func Format(dims []uint64) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, d := range dims {
		if i > 0 {
			b.WriteString(", ")
		}
		if d == Unlimited {
			b.WriteString("inf")
		} else {
			fmt.Fprintf(&b, "%d", d)
		}
	}
	b.WriteByte('}')
	return b.String()
}

// HasUnlimited reports whether any axis of maxDims is unbounded.
func HasUnlimited(maxDims []uint64) bool {
	return slices.Contains(maxDims, Unlimited)
}

// CheckBounds verifies that every axis of dims fits within the matching
// bounded axis of maxDims. A nil maxDims imposes no bound.
func CheckBounds(dims, maxDims []uint64) error {
	if maxDims == nil {
		return nil
	}
	if len(dims) != len(maxDims) {
		return h5err.New(h5err.RankMismatch,
			"dimensions %s and max dimensions %s have different ranks", Format(dims), Format(maxDims))
	}
	for i := range dims {
		if maxDims[i] != Unlimited && dims[i] > maxDims[i] {
			return h5err.WithAxis(h5err.New(h5err.BoundsExceeded,
				"dimensions %s are larger than the maximum dimensions %s on axis %d",
				Format(dims), Format(maxDims), i), i)
		}
	}
	return nil
}
