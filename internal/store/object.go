package store

import (
	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// object is a handle to a group or dataset.
type object struct {
	s      *Store
	n      *node
	closed bool
}

var errClosed = h5err.New(h5err.InvalidConfig, "handle is closed")

func (o *object) Path() string {
	return o.n.path
}

func (o *object) Close() error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.closed {
		return errClosed
	}
	o.closed = true
	o.s.open--
	return nil
}

func (o *object) HasAttribute(name string) bool {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	_, ok := o.n.attrs[name]
	return ok
}

// AttributeNames returns attribute names in creation order.
func (o *object) AttributeNames() []string {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return slices.Clone(o.n.order)
}

// CreateAttribute creates an attribute. Attribute data is always compact.
func (o *object) CreateAttribute(name string, spec engine.AttributeSpec) (engine.Attribute, error) {
	path := JoinAttrPath(o.n.path, name)
	if name == "" {
		return nil, h5err.WithPath(h5err.New(h5err.InvalidConfig, "attribute name cannot be empty"), path)
	}
	if spec.Type == nil {
		return nil, h5err.WithPath(h5err.New(h5err.InvalidConfig, "attribute needs an element type"), path)
	}
	sp, err := space.NewSimple(spec.Dims, nil)
	if err != nil {
		return nil, h5err.WithPath(err, path)
	}
	st, err := layout.New(nil, layout.Params{Class: layout.Compact, Dims: spec.Dims, ElemSize: int(spec.Type.Size)})
	if err != nil {
		return nil, h5err.WithPath(err, path)
	}

	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.closed {
		return nil, errClosed
	}
	if _, ok := o.n.attrs[name]; ok {
		return nil, h5err.WithPath(h5err.New(h5err.AlreadyExists, "attribute %s already exists", path), path)
	}
	c := &cell{typ: spec.Type.Clone(), sp: sp, st: st}
	o.n.attrs[name] = c
	o.n.order = append(o.n.order, name)
	o.s.open++
	return &attribute{s: o.s, name: name, c: c}, nil
}

func (o *object) OpenAttribute(name string) (engine.Attribute, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	c, ok := o.n.attrs[name]
	if !ok {
		path := JoinAttrPath(o.n.path, name)
		return nil, h5err.WithPath(h5err.New(h5err.NotFound, "no attribute %s", path), path)
	}
	o.s.open++
	return &attribute{s: o.s, name: name, c: c}, nil
}

// DeleteAttribute removes an attribute and releases its strings. Handles
// still open on it keep working on the detached data.
func (o *object) DeleteAttribute(name string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	c, ok := o.n.attrs[name]
	if !ok {
		path := JoinAttrPath(o.n.path, name)
		return h5err.WithPath(h5err.New(h5err.NotFound, "no attribute %s", path), path)
	}
	delete(o.n.attrs, name)
	if i := slices.Index(o.n.order, name); i >= 0 {
		o.n.order = slices.Delete(o.n.order, i, i+1)
	}
	c.release(o.s.heap)
	return nil
}

// dataset is a handle to a dataset node.
type dataset struct {
	object
}

var _ engine.Dataset = (*dataset)(nil)

func (d *dataset) Info() engine.DatasetInfo {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	c := d.n.data
	info := engine.DatasetInfo{
		Path:        d.n.path,
		Type:        c.typ.Clone(),
		Dims:        space.Clone(c.sp.Dims),
		MaxDims:     c.sp.MaxShape(),
		Layout:      c.st.Class(),
		Filters:     slices.Clone(d.n.spec.Filters),
		Policy:      d.n.spec.Policy,
		StoredBytes: c.st.StoredBytes(),
	}
	if ch, ok := c.st.(*layout.ChunkedStore); ok {
		info.ChunkDims = ch.ChunkDims()
		info.Filters = ch.Pipeline().Infos()
	}
	return info
}

func (d *dataset) Space() *space.Space {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	sp := d.n.data.sp.Clone()
	sp.SelectAll()
	return sp
}

func (d *dataset) Read(sel *space.Space, dst []byte) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return h5err.WithPath(d.n.data.read(sel, dst), d.n.path)
}

func (d *dataset) ReadAs(sel *space.Space, mem *dtype.Datatype, dst []byte) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return h5err.WithPath(d.n.data.readAs(sel, mem, dst), d.n.path)
}

func (d *dataset) Write(sel *space.Space, src []byte) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return h5err.WithPath(d.n.data.write(sel, src), d.n.path)
}

func (d *dataset) ReadStrings(sel *space.Space) (engine.VarLen, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	strs, err := d.n.data.readStrings(d.s.heap, sel)
	if err != nil {
		return nil, h5err.WithPath(err, d.n.path)
	}
	return d.s.newVarLen(strs), nil
}

func (d *dataset) WriteStrings(sel *space.Space, strs []string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return h5err.WithPath(d.n.data.writeStrings(d.s.heap, sel, strs), d.n.path)
}

// SetExtent updates the extent and the stored bytes in one locked step.
func (d *dataset) SetExtent(dims []uint64) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	old := space.Clone(d.n.data.sp.Dims)
	if err := d.n.data.extend(d.s.heap, dims); err != nil {
		return h5err.WithPath(err, d.n.path)
	}
	d.s.log.WithField("path", d.n.path).Debugf("extent %s -> %s", space.Format(old), space.Format(dims))
	return nil
}

// attribute is a handle to an attribute cell.
type attribute struct {
	s      *Store
	name   string
	c      *cell
	closed bool
}

var _ engine.Attribute = (*attribute)(nil)

func (a *attribute) Info() engine.AttributeInfo {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return engine.AttributeInfo{Name: a.name, Type: a.c.typ.Clone(), Dims: space.Clone(a.c.sp.Dims)}
}

func (a *attribute) Space() *space.Space {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	sp := a.c.sp.Clone()
	sp.SelectAll()
	return sp
}

func (a *attribute) Read(sel *space.Space, dst []byte) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return h5err.WithPath(a.c.read(sel, dst), a.name)
}

func (a *attribute) ReadAs(sel *space.Space, mem *dtype.Datatype, dst []byte) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return h5err.WithPath(a.c.readAs(sel, mem, dst), a.name)
}

func (a *attribute) Write(sel *space.Space, src []byte) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return h5err.WithPath(a.c.write(sel, src), a.name)
}

func (a *attribute) ReadStrings(sel *space.Space) (engine.VarLen, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	strs, err := a.c.readStrings(a.s.heap, sel)
	if err != nil {
		return nil, h5err.WithPath(err, a.name)
	}
	return a.s.newVarLen(strs), nil
}

func (a *attribute) WriteStrings(sel *space.Space, strs []string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return h5err.WithPath(a.c.writeStrings(a.s.heap, sel, strs), a.name)
}

func (a *attribute) Close() error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if a.closed {
		return errClosed
	}
	a.closed = true
	a.s.open--
	return nil
}

// varLen is a string buffer counted as an open handle until released.
type varLen struct {
	s    *Store
	strs []string
	done bool
}

// newVarLen registers a buffer. Callers hold the lock.
func (s *Store) newVarLen(strs []string) *varLen {
	s.open++
	return &varLen{s: s, strs: strs}
}

func (v *varLen) Strings() []string {
	return v.strs
}

func (v *varLen) Release() {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.done {
		v.done = true
		v.s.open--
	}
}

