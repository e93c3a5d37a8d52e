package h5pp

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/marshal"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/store"
)

// File is an in-memory h5pp file. Every call opens the handles it needs and
// closes them before returning.
//
// A File is safe for concurrent use by one writer or many readers. Callers
// that mix them must serialize their own sequences.
type File struct {
	cfg      Config
	log      *logger.Logger
	store    *store.Store
	m        *marshal.Marshaler
	defaults meta.Defaults
	closed   bool
}

// New creates an empty file configured by cfg.
func New(cfg Config) (*File, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger()
	return &File{
		cfg:      cfg,
		log:      log.ForPackage("h5pp"),
		store:    store.New(log),
		m:        marshal.New(log),
		defaults: cfg.defaults(),
	}, nil
}

// Close releases the file. Handles still open at this point are reported.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if n := f.store.OpenHandles(); n > 0 {
		f.log.Warnf("closing with %d open handles", n)
	}
	if err := f.store.Validate(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	return nil
}

// Config returns the configuration the file was created with.
func (f *File) Config() Config {
	return f.cfg
}

// OpenHandles returns the number of engine handles not yet closed.
func (f *File) OpenHandles() int {
	return f.store.OpenHandles()
}

// Exists reports whether an object lives at path.
func (f *File) Exists(path string) bool {
	return !f.closed && f.store.Exists(path)
}

// IsDataset reports whether path names a dataset.
func (f *File) IsDataset(path string) bool {
	return !f.closed && f.store.IsDataset(path)
}

// Walk calls fn for root and every object below it in path order.
func (f *File) Walk(root string, fn func(path string, isDataset bool) error) error {
	if f.closed {
		return ErrClosed
	}
	return f.store.Walk(root, fn)
}

func (f *File) datasetBuilder(path string, data *meta.Data, h meta.Hints) (*meta.DatasetBuilder, error) {
	b := meta.NewDatasetBuilder(store.CleanPath(path), f.defaults, f.log)
	if err := b.FillFromExisting(f.store); err != nil {
		return nil, err
	}
	b.FillFromValue(data, h)
	return b, nil
}

// CreateDataset creates an empty dataset. The type and dims must be given
// with WithType and WithDims.
func (f *File) CreateDataset(path string, opts ...Option) (Descriptor, error) {
	if f.closed {
		return Descriptor{}, ErrClosed
	}
	b, err := f.datasetBuilder(path, nil, f.hints(NewOptions(path, opts...)))
	if err != nil {
		return Descriptor{}, err
	}
	d, err := b.Finish(meta.OpCreate)
	if err != nil {
		return Descriptor{}, err
	}
	ds, err := f.store.CreateDataset(d.Path, d.Spec())
	if err != nil {
		return Descriptor{}, err
	}
	defer ds.Close()
	f.log.WithField("path", d.Path).Debugf("created %s", d)
	d.Exists = true
	return d, nil
}

// WriteDataset writes v to the dataset at path, creating it when missing.
// An existing dataset is resized to the data under the resize policy.
func (f *File) WriteDataset(path string, v interface{}, opts ...Option) error {
	if f.closed {
		return ErrClosed
	}
	d, data, err := f.BuildDescriptor(NewOptions(path, opts...), v)
	if err != nil {
		return err
	}
	return f.MarshalWrite(v, d, data)
}

// ReadDataset reads the dataset at path into dst, which must be a pointer or
// a raw buffer. Slices and resizable containers are reshaped to fit.
func (f *File) ReadDataset(path string, dst interface{}, opts ...Option) error {
	if f.closed {
		return ErrClosed
	}
	o := NewOptions(path, opts...)
	d, err := f.ReadDescriptor(o)
	if err != nil {
		return err
	}
	return f.MarshalRead(dst, d, o)
}

// ResizeDataset changes the extent of the dataset at path to dims under
// policy. ResizeDefault uses the policy stored with the dataset.
func (f *File) ResizeDataset(path string, dims []uint64, policy Policy) (ResizeDecision, error) {
	if f.closed {
		return ResizeDecision{}, ErrClosed
	}
	b, err := f.datasetBuilder(path, nil, meta.Hints{Policy: policy})
	if err != nil {
		return ResizeDecision{}, err
	}
	d, err := b.Finish(meta.OpResize)
	if err != nil {
		return ResizeDecision{}, err
	}
	dec, err := PlanResize(d, dims, policy)
	if err != nil {
		return ResizeDecision{}, err
	}
	if !dec.Resize {
		return dec, nil
	}
	ds, err := f.store.OpenDataset(d.Path)
	if err != nil {
		return ResizeDecision{}, err
	}
	defer ds.Close()
	if err := f.setExtent(ds, d.Path, d.Dims, dec); err != nil {
		return ResizeDecision{}, err
	}
	return dec, nil
}

func (f *File) setExtent(ds engine.Dataset, path string, from []uint64, dec ResizeDecision) error {
	log := f.log.WithField("path", path)
	for _, w := range dec.Warnings {
		log.Warnf("%s", w)
	}
	if !dec.Resize {
		return nil
	}
	if err := ds.SetExtent(dec.NewDims); err != nil {
		return h5err.WithPath(err, path)
	}
	log.Debugf("resized from %v to %v under %s", from, dec.NewDims, dec.Policy)
	return nil
}

// WriteAttribute writes v as attribute name of the object at link. An
// existing attribute of another type or shape is replaced; with
// WithAttrSlab the value is written into the attribute as it is.
func (f *File) WriteAttribute(link, name string, v interface{}, opts ...Option) error {
	if f.closed {
		return ErrClosed
	}
	o := NewOptions(link, opts...)
	o.AttrName = name
	h := f.hints(o)
	data, err := meta.DescribeValue(v, h)
	if err != nil {
		return h5err.WithPath(err, store.JoinAttrPath(link, name))
	}
	b := meta.NewAttributeBuilder(store.CleanPath(link), name, f.log)
	if err := b.FillFromExisting(f.store); err != nil {
		return err
	}
	b.FillFromValue(&data, h)
	op := meta.OpWrite
	if !b.AttrExists.Value() {
		op = meta.OpCreate
	}
	a, err := b.Finish(op)
	if err != nil {
		return err
	}
	p, err := f.m.Prepare(v, data, a.Target())
	if err != nil {
		return err
	}

	obj, err := f.store.OpenObject(a.LinkPath)
	if err != nil {
		return err
	}
	defer obj.Close()
	if a.Replace {
		if err := obj.DeleteAttribute(a.Name); err != nil {
			return err
		}
	}
	var attr engine.Attribute
	if a.Exists {
		attr, err = obj.OpenAttribute(a.Name)
	} else {
		attr, err = obj.CreateAttribute(a.Name, a.Spec())
	}
	if err != nil {
		return err
	}
	defer attr.Close()
	return p.Commit(attr)
}

// ReadAttribute reads attribute name of the object at link into dst.
func (f *File) ReadAttribute(link, name string, dst interface{}, opts ...Option) error {
	if f.closed {
		return ErrClosed
	}
	o := NewOptions(link, opts...)
	o.AttrName = name
	h := f.hints(o)
	b := meta.NewAttributeBuilder(store.CleanPath(link), name, f.log)
	if err := b.FillFromExisting(f.store); err != nil {
		return err
	}
	if !b.LinkExists.Value() {
		return h5err.WithPath(h5err.New(h5err.NotFound, "no object at %s", link), link)
	}
	b.FillFromValue(nil, h)
	a, err := b.Finish(meta.OpRead)
	if err != nil {
		return err
	}

	obj, err := f.store.OpenObject(a.LinkPath)
	if err != nil {
		return err
	}
	defer obj.Close()
	attr, err := obj.OpenAttribute(a.Name)
	if err != nil {
		return err
	}
	defer attr.Close()
	return f.m.Read(attr, dst, a.Target(), h)
}

// AttributeNames lists the attributes of the object at link in creation
// order.
func (f *File) AttributeNames(link string) ([]string, error) {
	if f.closed {
		return nil, ErrClosed
	}
	obj, err := f.store.OpenObject(link)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return obj.AttributeNames(), nil
}

// resizeFor reconciles an existing dataset with the incoming data.
func resizeFor(d Descriptor, data DataDescriptor) (ResizeDecision, error) {
	incoming, err := resize.IncomingDims(data.Dims, data.Slab, d.Slab)
	if err != nil {
		return ResizeDecision{}, h5err.WithPath(err, d.Path)
	}
	return resize.Reconcile(d.ResizeInput(incoming))
}
