// Package marshal moves values between memory and engine objects.
//
// All validation happens before the single engine call of an operation, so
// a failed write leaves the stored data untouched and a failed read leaves
// the destination untouched. Writes that change the object first (a resize
// or a replaced attribute) split into Prepare and Commit, with the change
// made in between.
package marshal

import (
	"reflect"
	"sync"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/introspect"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Marshaler performs transfers. It remembers which packed types it has
// already warned about; otherwise it is stateless.
type Marshaler struct {
	log    *logger.Logger
	mu     sync.Mutex
	warned map[uint64]bool
}

// New returns a Marshaler logging to log.
func New(log *logger.Logger) *Marshaler {
	return &Marshaler{log: log.ForPackage("marshal"), warned: make(map[uint64]bool)}
}

// plan is how elements cross between memory and storage.
type plan uint8

const (
	direct  plan = iota // Same layout, bytes move as they are
	convert             // Same size, converted member by member
)

// elements checks that memory elements of type mem can be stored as file.
// A packed record stored for a padded Go struct passes after a one-time
// warning per stored type.
func (m *Marshaler) elements(path string, mem, file *dtype.Datatype) (plan, error) {
	switch {
	case mem.Equal(file):
		return direct, nil
	case mem.Size == file.Size:
		return convert, nil
	case file.Class == dtype.ClassCompound && file.IsPacked() && file.Native().Size == mem.Size:
		m.warnPacked(path, mem, file)
		return convert, nil
	}
	return 0, h5err.WithPath(h5err.WithSizes(h5err.New(h5err.SizeMismatch,
		"element size mismatch: memory type %s has %d bytes per element, stored type %s has %d",
		mem, mem.Size, file, file.Size), uint64(mem.Size), uint64(file.Size)), path)
}

func (m *Marshaler) warnPacked(path string, mem, file *dtype.Datatype) {
	fp := file.Fingerprint()
	m.mu.Lock()
	seen := m.warned[fp]
	m.warned[fp] = true
	m.mu.Unlock()
	if !seen {
		m.log.WithField("path", path).Warnf(
			"stored type %s is packed (%d bytes) while memory uses the padded layout (%d bytes); converting",
			file, file.Size, mem.Size)
	}
}

// fileSelection returns the engine space with the target slab selected.
func fileSelection(t engine.Transfer, target meta.Target) (*space.Space, error) {
	sel := t.Space()
	if target.Slab != nil {
		if err := sel.Select(*target.Slab); err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
	}
	return sel, nil
}

// targetSelection returns a space of target.Dims with the target slab
// selected. It describes the object as it will be when the write commits.
func targetSelection(target meta.Target) (*space.Space, error) {
	sel, err := space.NewSimple(target.Dims, nil)
	if err == nil && target.Slab != nil {
		err = sel.Select(*target.Slab)
	}
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	return sel, nil
}

// Pending is a write that passed every check. Nothing is stored until
// Commit.
type Pending struct {
	path   string
	sel    *space.Space
	packed []byte   // Fixed-size elements in the stored type
	strs   []string // Variable-length strings
	varLen bool
}

// Commit stores the prepared elements through t. The object must have the
// extent the write was prepared for.
func (p *Pending) Commit(t engine.Transfer) error {
	if p.varLen {
		return h5err.WithPath(t.WriteStrings(p.sel, p.strs), p.path)
	}
	return h5err.WithPath(t.Write(p.sel, p.packed), p.path)
}

// Write stores v, described by data, into the target selection of an
// object whose extent does not change.
func (m *Marshaler) Write(t engine.Transfer, v interface{}, data meta.Data, target meta.Target) error {
	p, err := m.Prepare(v, data, target)
	if err != nil {
		return err
	}
	return p.Commit(t)
}

// Prepare checks a write of v, described by data, into target and builds
// the bytes to store. The selection is made on target.Dims, so a caller
// that resizes or recreates the object does so after Prepare succeeds and
// before Commit.
func (m *Marshaler) Prepare(v interface{}, data meta.Data, target meta.Target) (*Pending, error) {
	sel, err := targetSelection(target)
	if err != nil {
		return nil, err
	}
	count := data.Count()
	if n := sel.NumSelected(); n != count {
		es := uint64(target.Type.Size)
		return nil, h5err.WithPath(h5err.WithSizes(h5err.New(h5err.SizeMismatch,
			"writing %d elements (%d bytes) into a selection of %d elements (%d bytes)", count, count*es, n, n*es),
			count*es, n*es), target.Path)
	}
	if data.IsText() {
		return m.prepareText(sel, v, data, target)
	}
	if data.Info.Has(introspect.VarLen) {
		return nil, h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"records with variable-length members (%v) cannot be written as fixed-size data", data.Info.Type), target.Path)
	}
	if target.Type.IsText() || target.Type.IsVarLen() {
		return nil, h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"cannot write %v into text type %s", data.Info.Type, target.Type), target.Path)
	}
	p, err := m.elements(target.Path, data.Type, target.Type)
	if err != nil {
		return nil, err
	}

	mem, err := introspect.Bytes(reflect.ValueOf(v), data.Info, data.Size)
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	need := data.Size * data.ElemSize
	if uint64(len(mem)) < need {
		return nil, h5err.WithPath(h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"value holds %d bytes, its shape %s needs %d", len(mem), space.Format(data.Dims), need),
			uint64(len(mem)), need), target.Path)
	}
	mem = mem[:need]
	if data.Slab != nil {
		memSel, err := data.Space()
		if err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
		if mem, err = space.Gather(mem, memSel, int(data.ElemSize)); err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
	}
	if p == convert {
		if mem, err = dtype.Convert(target.Type, data.Type, mem, count); err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
	}
	m.log.Tracef("write %d x %s to %s", count, target.Type, target.Path)
	return &Pending{path: target.Path, sel: sel, packed: mem}, nil
}

// Read fills dst, a pointer or raw buffer, from the target selection. The
// hints supply a shape for raw buffers and a memory-side slab. Destinations
// that can be resized are fitted to the selection first.
func (m *Marshaler) Read(t engine.Transfer, dst interface{}, target meta.Target, h meta.Hints) error {
	info, err := introspect.Classify(reflect.TypeOf(dst))
	if err != nil {
		return h5err.WithPath(err, target.Path)
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr && !info.Has(introspect.RawPointer) {
		return h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"read destination must be a pointer or raw buffer, got %v", v.Type()), target.Path)
	}
	sel, err := fileSelection(t, target)
	if err != nil {
		return err
	}
	if info.Has(introspect.TextLike) || info.Has(introspect.TextContainer) {
		return m.readText(t, sel, v, info, target, h)
	}
	if info.Has(introspect.VarLen) {
		return h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"records with variable-length members (%v) cannot be read as fixed-size data", info.Type), target.Path)
	}
	if target.Type.IsText() || target.Type.IsVarLen() {
		return h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"cannot read text type %s into %v", target.Type, info.Type), target.Path)
	}
	p, err := m.elements(target.Path, info.ElemType, target.Type)
	if err != nil {
		return err
	}

	count := sel.NumSelected()
	shape := sel.SelectionShape()
	if h.DataDims != nil {
		shape = h.DataDims
	}
	slab := h.DataSlab
	if slab != nil && slab.IsEmpty() {
		slab = nil
	}
	if slab == nil {
		if err := introspect.Fit(v, info, shape); err != nil {
			return h5err.WithPath(err, target.Path)
		}
	}
	var hint []uint64
	if info.Has(introspect.RawPointer) {
		hint = shape
	}
	res, err := introspect.Resolve(v, info, hint)
	if err != nil {
		return h5err.WithPath(err, target.Path)
	}

	var memSel *space.Space
	if slab != nil {
		dims := res.Dims
		if h.DataDims != nil {
			dims = h.DataDims
		}
		if memSel, err = space.NewSimple(dims, nil); err == nil {
			err = memSel.Select(*slab)
		}
		if err != nil {
			return h5err.WithPath(err, target.Path)
		}
		if n := memSel.NumSelected(); n != count {
			return h5err.WithPath(h5err.WithSizes(h5err.New(h5err.SizeMismatch,
				"reading %d elements into a memory selection of %d elements", count, n), n, count), target.Path)
		}
	} else if res.Size < count {
		return h5err.WithPath(h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"destination %v holds %d elements (%d bytes), the selection has %d (%d bytes)",
			info.Type, res.Size, res.Bytes, count, count*res.ElemSize),
			res.Bytes, count*res.ElemSize), target.Path)
	}

	mem, err := introspect.Bytes(v, info, res.Size)
	if err != nil {
		return h5err.WithPath(err, target.Path)
	}
	es := res.ElemSize
	if p == direct && memSel == nil {
		return t.Read(sel, mem[:count*es])
	}
	buf := make([]byte, count*es)
	if p == convert {
		err = t.ReadAs(sel, info.ElemType, buf)
	} else {
		err = t.Read(sel, buf)
	}
	if err != nil {
		return err
	}
	if memSel != nil {
		return h5err.WithPath(space.Scatter(mem, memSel, int(es), buf), target.Path)
	}
	copy(mem, buf)
	return nil
}
