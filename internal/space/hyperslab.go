package space

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Op combines a new hyperslab with the selection already on a space.
type Op uint8

const (
	OpSet Op = iota // Replace the current selection
	OpOr            // Union with the current selection
	OpAnd           // Intersection with the current selection
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "SET"
	case OpOr:
		return "OR"
	case OpAnd:
		return "AND"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Hyperslab is a regular rectangular subset of a shape. Extent is the number
// of blocks per axis; Stride and Block default to ones when nil.
type Hyperslab struct {
	Offset []uint64
	Extent []uint64
	Stride []uint64
	Block  []uint64
	Op     Op
}

// IsEmpty reports whether no field of the hyperslab is set.
func (h Hyperslab) IsEmpty() bool {
	return len(h.Offset) == 0 && len(h.Extent) == 0 && len(h.Stride) == 0 && len(h.Block) == 0
}

// Rank returns the number of axes the hyperslab addresses.
func (h Hyperslab) Rank() int {
	return len(h.Offset)
}

// Validate performs the checks that need no target space: offset and extent
// come together with equal length, and stride/block, when present, match
// that rank and are nonzero.
func (h Hyperslab) Validate() error {
	switch {
	case len(h.Offset) > 0 && len(h.Extent) == 0:
		return h5err.New(h5err.InvalidSelection,
			"hyperslab offset %s given without extent", Format(h.Offset))
	case len(h.Extent) > 0 && len(h.Offset) == 0:
		return h5err.New(h5err.InvalidSelection,
			"hyperslab extent %s given without offset", Format(h.Extent))
	case len(h.Offset) != len(h.Extent):
		return h5err.New(h5err.InvalidSelection,
			"hyperslab offset %s and extent %s have different ranks", Format(h.Offset), Format(h.Extent))
	case len(h.Offset) == 0 && (len(h.Stride) > 0 || len(h.Block) > 0):
		return h5err.New(h5err.InvalidSelection,
			"hyperslab stride or block given without offset and extent")
	}
	if h.Stride != nil && len(h.Stride) != len(h.Offset) {
		return h5err.New(h5err.InvalidSelection,
			"hyperslab stride %s rank %d does not match offset rank %d", Format(h.Stride), len(h.Stride), len(h.Offset))
	}
	if h.Block != nil && len(h.Block) != len(h.Offset) {
		return h5err.New(h5err.InvalidSelection,
			"hyperslab block %s rank %d does not match offset rank %d", Format(h.Block), len(h.Block), len(h.Offset))
	}
	for i, s := range h.Stride {
		if s == 0 {
			return h5err.WithAxis(h5err.New(h5err.InvalidSelection, "hyperslab stride is zero on axis %d", i), i)
		}
	}
	for i, b := range h.Block {
		if b == 0 {
			return h5err.WithAxis(h5err.New(h5err.InvalidSelection, "hyperslab block is zero on axis %d", i), i)
		}
	}
	for i := range h.Offset {
		if _, ok := h.upper(i); !ok {
			return h5err.WithAxis(h5err.New(h5err.InvalidSelection,
				"hyperslab %s overflows 64-bit coordinates on axis %d", h, i), i)
		}
		if _, ok := h.count(i); !ok {
			return h5err.WithAxis(h5err.New(h5err.InvalidSelection,
				"hyperslab %s selects more than 2^64 elements on axis %d", h, i), i)
		}
	}
	if _, ok := checkedSize(h.Shape()); !ok {
		return h5err.New(h5err.InvalidSelection, "hyperslab %s selects more than 2^64 elements", h)
	}
	return nil
}

// upper returns offset + (extent-1)×stride + block on axis i. ok is false
// when the bound does not fit in 64 bits.
func (h Hyperslab) upper(i int) (uint64, bool) {
	if h.Extent[i] == 0 {
		return h.Offset[i], true
	}
	hi, lo := bits.Mul64(h.Extent[i]-1, h.stride(i))
	if hi != 0 {
		return math.MaxUint64, false
	}
	ub, c1 := bits.Add64(lo, h.block(i), 0)
	ub, c2 := bits.Add64(ub, h.Offset[i], 0)
	if c1|c2 != 0 {
		return math.MaxUint64, false
	}
	return ub, true
}

// count returns extent×block on axis i. ok is false on overflow.
func (h Hyperslab) count(i int) (uint64, bool) {
	hi, lo := bits.Mul64(h.Extent[i], h.block(i))
	if hi != 0 {
		return math.MaxUint64, false
	}
	return lo, true
}

// checkedSize multiplies dims, reporting false on overflow.
func checkedSize(dims []uint64) (uint64, bool) {
	n := uint64(1)
	for _, d := range dims {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return math.MaxUint64, false
		}
		n = lo
	}
	return n, true
}

// normalized returns a deep copy with nil stride and block filled with ones.
func (h Hyperslab) normalized() Hyperslab {
	n := h.Clone()
	if n.Stride == nil {
		n.Stride = ones(len(n.Offset))
	}
	if n.Block == nil {
		n.Block = ones(len(n.Offset))
	}
	return n
}

func ones(n int) []uint64 {
	o := make([]uint64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}

// Clone returns a deep copy.
func (h Hyperslab) Clone() Hyperslab {
	return Hyperslab{
		Offset: Clone(h.Offset),
		Extent: Clone(h.Extent),
		Stride: Clone(h.Stride),
		Block:  Clone(h.Block),
		Op:     h.Op,
	}
}

func (h Hyperslab) stride(i int) uint64 {
	if h.Stride == nil {
		return 1
	}
	return h.Stride[i]
}

func (h Hyperslab) block(i int) uint64 {
	if h.Block == nil {
		return 1
	}
	return h.Block[i]
}

// Shape returns the number of selected elements per axis (extent × block).
// Axes that overflow saturate at math.MaxUint64; Validate rejects them.
func (h Hyperslab) Shape() []uint64 {
	shape := make([]uint64, len(h.Extent))
	for i := range h.Extent {
		shape[i], _ = h.count(i)
	}
	return shape
}

// NumElements returns the number of selected elements, saturating at
// math.MaxUint64.
func (h Hyperslab) NumElements() uint64 {
	if h.IsEmpty() {
		return 0
	}
	n, _ := checkedSize(h.Shape())
	return n
}

// UpperBounds returns, per axis, one past the last selected coordinate:
// offset + (extent-1)×stride + block. A zero extent selects nothing and
// yields the offset. Bounds that overflow saturate at math.MaxUint64.
func (h Hyperslab) UpperBounds() []uint64 {
	ub := make([]uint64, len(h.Offset))
	for i := range h.Offset {
		ub[i], _ = h.upper(i)
	}
	return ub
}

// containedIn returns the first axis on which the hyperslab leaves dims,
// or -1 when it fits.
func (h Hyperslab) containedIn(dims []uint64) int {
	if len(dims) != len(h.Offset) {
		return 0
	}
	for i := range h.Offset {
		ub, ok := h.upper(i)
		if !ok || ub > dims[i] || h.Offset[i] > dims[i] {
			return i
		}
	}
	return -1
}

// selectsNothing reports whether any axis has a zero extent.
func (h Hyperslab) selectsNothing() bool {
	for _, e := range h.Extent {
		if e == 0 {
			return true
		}
	}
	return false
}

// isBox reports whether every axis selects a contiguous run of coordinates.
func (h Hyperslab) isBox() bool {
	for i := range h.Offset {
		if h.Extent[i] > 1 && h.stride(i) != h.block(i) {
			return false
		}
	}
	return true
}

// Equal compares two hyperslabs after defaulting stride and block. The
// combine operator is ignored.
func (h Hyperslab) Equal(o Hyperslab) bool {
	a, b := h.normalized(), o.normalized()
	return Equal(a.Offset, b.Offset) && Equal(a.Extent, b.Extent) &&
		Equal(a.Stride, b.Stride) && Equal(a.Block, b.Block)
}

func (h Hyperslab) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "offset %s extent %s", Format(h.Offset), Format(h.Extent))
	if h.Stride != nil {
		fmt.Fprintf(&b, " stride %s", Format(h.Stride))
	}
	if h.Block != nil {
		fmt.Fprintf(&b, " block %s", Format(h.Block))
	}
	if h.Op != OpSet {
		fmt.Fprintf(&b, " op %s", h.Op)
	}
	return b.String()
}

// box returns [lo, hi) per axis for a box-shaped hyperslab.
func (h Hyperslab) box() (lo, hi []uint64) {
	return Clone(h.Offset), h.UpperBounds()
}

func fromBox(lo, hi []uint64) Hyperslab {
	ext := make([]uint64, len(lo))
	for i := range lo {
		ext[i] = hi[i] - lo[i]
	}
	return Hyperslab{Offset: Clone(lo), Extent: ext, Stride: ones(len(lo)), Block: ones(len(lo))}
}

// union merges two selections into one regular hyperslab, or reports false
// when the union is not rectangular.
func union(a, b Hyperslab) (Hyperslab, bool) {
	if a.Equal(b) {
		return a, true
	}
	if !a.isBox() || !b.isBox() {
		return Hyperslab{}, false
	}
	alo, ahi := a.box()
	blo, bhi := b.box()
	if boxContains(alo, ahi, blo, bhi) {
		return a, true
	}
	if boxContains(blo, bhi, alo, ahi) {
		return b, true
	}
	// Mergeable only when the boxes agree on every axis but one, and touch
	// or overlap along that one.
	diff := -1
	for i := range alo {
		if alo[i] == blo[i] && ahi[i] == bhi[i] {
			continue
		}
		if diff >= 0 {
			return Hyperslab{}, false
		}
		diff = i
	}
	if alo[diff] > bhi[diff] || blo[diff] > ahi[diff] {
		return Hyperslab{}, false
	}
	lo, hi := Clone(alo), Clone(ahi)
	lo[diff] = min(alo[diff], blo[diff])
	hi[diff] = max(ahi[diff], bhi[diff])
	return fromBox(lo, hi), true
}

// intersect returns the overlap of two selections. empty is true when they
// do not overlap; ok is false when the overlap is not rectangular.
func intersect(a, b Hyperslab) (h Hyperslab, empty, ok bool) {
	if a.Equal(b) {
		return a, false, true
	}
	if !a.isBox() || !b.isBox() {
		return Hyperslab{}, false, false
	}
	alo, ahi := a.box()
	blo, bhi := b.box()
	lo := make([]uint64, len(alo))
	hi := make([]uint64, len(alo))
	for i := range alo {
		lo[i] = max(alo[i], blo[i])
		hi[i] = min(ahi[i], bhi[i])
		if lo[i] >= hi[i] {
			return Hyperslab{}, true, true
		}
	}
	return fromBox(lo, hi), false, true
}

func boxContains(olo, ohi, ilo, ihi []uint64) bool {
	for i := range olo {
		if ilo[i] < olo[i] || ihi[i] > ohi[i] {
			return false
		}
	}
	return true
}
