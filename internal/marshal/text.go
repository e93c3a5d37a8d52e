package marshal

import (
	"bytes"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/introspect"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// encodeFixed lays strings out at width w bytes each. Longer strings are
// truncated; a null-terminated type always keeps its terminator.
func encodeFixed(strs []string, w uint32, pad dtype.StringPadding) []byte {
	out := make([]byte, uint64(len(strs))*uint64(w))
	fill := byte(0)
	if pad == dtype.PadSpacePad {
		fill = ' '
	}
	for i, s := range strs {
		cell := out[uint64(i)*uint64(w) : uint64(i+1)*uint64(w)]
		n := copy(cell, s)
		if pad == dtype.PadNullTerm && len(s) >= len(cell) && len(cell) > 0 {
			n = len(cell) - 1
			cell[n] = 0
		}
		for j := n; j < len(cell); j++ {
			cell[j] = fill
		}
	}
	return out
}

// decodeFixed splits fixed-width cells and drops each cell's terminator and
// padding.
func decodeFixed(buf []byte, w uint32, pad dtype.StringPadding) []string {
	if w == 0 {
		return nil
	}
	out := make([]string, len(buf)/int(w))
	for i := range out {
		cell := buf[i*int(w) : (i+1)*int(w)]
		switch pad {
		case dtype.PadSpacePad:
			cell = bytes.TrimRight(cell, " \x00")
		default:
			if j := bytes.IndexByte(cell, 0); j >= 0 {
				cell = cell[:j]
			}
		}
		out[i] = string(cell)
	}
	return out
}

// gatherStrings picks the strings selected in sel, a space over strs.
func gatherStrings(strs []string, sel *space.Space) ([]string, error) {
	if uint64(len(strs)) < sel.NumElements() {
		return nil, h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"%d strings cannot fill space %s", len(strs), sel), uint64(len(strs)), sel.NumElements())
	}
	out := make([]string, 0, sel.NumSelected())
	strides := space.RowMajorStrides(sel.Dims)
	err := sel.WalkRuns(func(coord []uint64, n uint64) error {
		off := space.Linear(coord, strides)
		out = append(out, strs[off:off+n]...)
		return nil
	})
	return out, err
}

// scatterStrings places packed strings at their selected positions in dst.
func scatterStrings(dst, packed []string, sel *space.Space) error {
	strides := space.RowMajorStrides(sel.Dims)
	var pos uint64
	return sel.WalkRuns(func(coord []uint64, n uint64) error {
		off := space.Linear(coord, strides)
		pos += uint64(copy(dst[off:off+n], packed[pos:pos+n]))
		return nil
	})
}

func (m *Marshaler) prepareText(sel *space.Space, v interface{}, data meta.Data, target meta.Target) (*Pending, error) {
	if !target.Type.IsText() {
		return nil, h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"cannot write text into %s", target.Type), target.Path)
	}
	strs, err := introspect.Strings(reflect.ValueOf(v), data.Info)
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	if data.Slab != nil {
		memSel, err := data.Space()
		if err == nil {
			strs, err = gatherStrings(strs, memSel)
		}
		if err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
	}
	if target.Type.IsVarLen() {
		return &Pending{path: target.Path, sel: sel, strs: strs, varLen: true}, nil
	}
	m.log.Tracef("write %d fixed strings of %d bytes to %s", len(strs), target.Type.Size, target.Path)
	return &Pending{path: target.Path, sel: sel, packed: encodeFixed(strs, target.Type.Size, target.Type.StringPadding)}, nil
}

func (m *Marshaler) readText(t engine.Transfer, sel *space.Space, v reflect.Value, info introspect.Info,
	target meta.Target, h meta.Hints) error {
	if !target.Type.IsText() {
		return h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"cannot read %s into text destination %v", target.Type, info.Type), target.Path)
	}
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"text destination must be a non-nil pointer, got %v", v.Type()), target.Path)
	}

	var strs []string
	if target.Type.IsVarLen() {
		vl, err := t.ReadStrings(sel)
		if err != nil {
			return err
		}
		defer vl.Release()
		strs = vl.Strings()
	} else {
		buf := make([]byte, sel.NumSelected()*uint64(target.Type.Size))
		if err := t.Read(sel, buf); err != nil {
			return err
		}
		strs = decodeFixed(buf, target.Type.Size, target.Type.StringPadding)
	}

	if info.Has(introspect.TextLike) {
		// Many elements into one string: the pruned elements joined.
		return h5err.WithPath(introspect.SetStrings(v, info, []string{strings.Join(strs, "")}), target.Path)
	}
	if h.DataSlab == nil || h.DataSlab.IsEmpty() {
		return h5err.WithPath(introspect.SetStrings(v, info, strs), target.Path)
	}

	current, err := introspect.Strings(v, info)
	if err != nil {
		return h5err.WithPath(err, target.Path)
	}
	dims := h.DataDims
	if dims == nil {
		dims = []uint64{uint64(len(current))}
	}
	memSel, err := space.NewSimple(dims, nil)
	if err == nil {
		err = memSel.Select(*h.DataSlab)
	}
	if err != nil {
		return h5err.WithPath(err, target.Path)
	}
	if n := memSel.NumSelected(); n != uint64(len(strs)) {
		return h5err.WithPath(h5err.WithSizes(h5err.New(h5err.SizeMismatch,
			"reading %d strings into a memory selection of %d", len(strs), n), n, uint64(len(strs))), target.Path)
	}
	if uint64(len(current)) < memSel.NumElements() {
		grown := make([]string, memSel.NumElements())
		copy(grown, current)
		current = grown
	}
	if err := scatterStrings(current, strs, memSel); err != nil {
		return h5err.WithPath(err, target.Path)
	}
	return h5err.WithPath(introspect.SetStrings(v, info, current), target.Path)
}
