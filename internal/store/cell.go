package store

import (
	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/heap"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// cell is the typed storage behind a dataset or attribute. Variable-length
// string cells store heap refs. Callers hold the store lock.
type cell struct {
	typ *dtype.Datatype
	sp  *space.Space
	st  layout.Storage
}

// check rejects selections made on another extent.
func (c *cell) check(sel *space.Space) error {
	if sel == nil {
		return h5err.New(h5err.InvalidSelection, "no selection given")
	}
	if sel.Kind != c.sp.Kind || !space.Equal(sel.Dims, c.sp.Dims) {
		return h5err.New(h5err.InvalidSelection,
			"selection made on space %s, current space is %s", sel, c.sp)
	}
	if !sel.IsContained() {
		_, err := sel.Selection()
		return err
	}
	return nil
}

func (c *cell) read(sel *space.Space, dst []byte) error {
	if c.typ.IsVarLen() {
		return h5err.New(h5err.Unsupported, "%s data must be read as strings", c.typ)
	}
	if err := c.check(sel); err != nil {
		return err
	}
	if need := sel.NumSelected() * uint64(c.typ.Size); uint64(len(dst)) != need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"read buffer holds %d bytes, the selection needs %d", len(dst), need), uint64(len(dst)), need)
	}
	data, err := c.st.Read(sel)
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (c *cell) readAs(sel *space.Space, mem *dtype.Datatype, dst []byte) error {
	if c.typ.IsVarLen() || mem.IsVarLen() {
		return h5err.New(h5err.Unsupported, "%s data must be read as strings", c.typ)
	}
	if err := c.check(sel); err != nil {
		return err
	}
	n := sel.NumSelected()
	if need := n * uint64(mem.Size); uint64(len(dst)) != need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"read buffer holds %d bytes, the selection needs %d", len(dst), need), uint64(len(dst)), need)
	}
	data, err := c.st.Read(sel)
	if err != nil {
		return err
	}
	out, err := dtype.Convert(mem, c.typ, data, n)
	if err != nil {
		return err
	}
	copy(dst, out)
	return nil
}

func (c *cell) write(sel *space.Space, src []byte) error {
	if c.typ.IsVarLen() {
		return h5err.New(h5err.Unsupported, "%s data must be written as strings", c.typ)
	}
	if err := c.check(sel); err != nil {
		return err
	}
	if need := sel.NumSelected() * uint64(c.typ.Size); uint64(len(src)) != need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"write buffer holds %d bytes, the selection needs %d", len(src), need), uint64(len(src)), need)
	}
	return c.st.Write(sel, src)
}

func (c *cell) refs(sel *space.Space) ([]heap.Ref, error) {
	data, err := c.st.Read(sel)
	if err != nil {
		return nil, err
	}
	return heap.DecodeRefs(data)
}

func (c *cell) readStrings(h *heap.Heap, sel *space.Space) ([]string, error) {
	if !c.typ.IsVarLen() {
		return nil, h5err.New(h5err.Unsupported, "%s data is not variable-length", c.typ)
	}
	if err := c.check(sel); err != nil {
		return nil, err
	}
	refs, err := c.refs(sel)
	if err != nil {
		return nil, err
	}
	return h.Get(refs)
}

// writeStrings stores new heap objects and only then releases the refs they
// replace.
func (c *cell) writeStrings(h *heap.Heap, sel *space.Space, strs []string) error {
	if !c.typ.IsVarLen() {
		return h5err.New(h5err.Unsupported, "%s data is not variable-length", c.typ)
	}
	if err := c.check(sel); err != nil {
		return err
	}
	if n := sel.NumSelected(); uint64(len(strs)) != n {
		return h5err.WithSizes(h5err.New(h5err.SizeMismatch,
			"%d strings given for a selection of %d elements", len(strs), n), uint64(len(strs)), n)
	}
	old, err := c.refs(sel)
	if err != nil {
		return err
	}
	refs, err := h.Put(strs)
	if err != nil {
		return err
	}
	data, err := heap.EncodeRefs(refs)
	if err == nil {
		err = c.st.Write(sel, data)
	}
	if err != nil {
		h.Release(refs)
		return err
	}
	h.Release(old)
	return nil
}

// extend changes the extent. Strings cut off by a shrink are released.
func (c *cell) extend(h *heap.Heap, dims []uint64) error {
	next := c.sp.Clone()
	if err := next.SetExtent(dims); err != nil {
		return err
	}
	var dropped []heap.Ref
	if c.typ.IsVarLen() {
		var err error
		if dropped, err = c.cutRefs(dims); err != nil {
			return err
		}
	}
	if err := c.st.Extend(c.sp.Dims, dims); err != nil {
		return err
	}
	c.sp = next
	c.sp.SelectAll()
	h.Release(dropped)
	return nil
}

// cutRefs returns the refs outside the overlap of the current and new dims.
func (c *cell) cutRefs(dims []uint64) ([]heap.Ref, error) {
	all := c.sp.Clone()
	all.SelectAll()
	refs, err := c.refs(all)
	if err != nil {
		return nil, err
	}
	kept := c.sp.Clone()
	overlap := make([]uint64, len(dims))
	for i := range dims {
		overlap[i] = min(dims[i], c.sp.Dims[i])
	}
	if space.Size(overlap) == 0 {
		return refs, nil
	}
	if err := kept.Select(space.Hyperslab{Offset: make([]uint64, len(dims)), Extent: overlap}); err != nil {
		return nil, err
	}
	keep, err := c.refs(kept)
	if err != nil {
		return nil, err
	}
	live := make(map[heap.Ref]bool, len(keep))
	for _, r := range keep {
		live[r] = true
	}
	var cut []heap.Ref
	for _, r := range refs {
		if !r.IsZero() && !live[r] {
			cut = append(cut, r)
		}
	}
	return cut, nil
}

// release frees storage and every string the cell holds.
func (c *cell) release(h *heap.Heap) {
	if c.typ.IsVarLen() {
		all := c.sp.Clone()
		all.SelectAll()
		if refs, err := c.refs(all); err == nil {
			h.Release(refs)
		}
	}
	c.st.Release()
}
