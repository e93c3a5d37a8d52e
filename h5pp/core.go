package h5pp

import (
	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// BuildDescriptor resolves the dataset and data descriptors for writing v
// at o.LinkPath. v may be nil to describe a dataset from the options alone;
// the data descriptor is then the zero value.
//
// Nothing is created or written. A descriptor that cannot be completed
// fails with a NotReady error naming every missing fact.
func (f *File) BuildDescriptor(o Options, v interface{}) (Descriptor, DataDescriptor, error) {
	if f.closed {
		return Descriptor{}, DataDescriptor{}, ErrClosed
	}
	if err := o.Validate(); err != nil {
		return Descriptor{}, DataDescriptor{}, err
	}
	h := f.hints(o)
	var data *meta.Data
	if v != nil {
		d, err := meta.DescribeValue(v, h)
		if err != nil {
			return Descriptor{}, DataDescriptor{}, h5err.WithPath(err, o.LinkPath)
		}
		data = &d
	}
	b, err := f.datasetBuilder(o.LinkPath, data, h)
	if err != nil {
		return Descriptor{}, DataDescriptor{}, err
	}
	op := meta.OpWrite
	if !b.Exists.Value() {
		op = meta.OpCreate
	}
	d, err := b.Finish(op)
	if err != nil {
		return Descriptor{}, DataDescriptor{}, err
	}
	if data == nil {
		return d, DataDescriptor{}, nil
	}
	return d, *data, nil
}

// ReadDescriptor resolves the descriptor of the existing dataset at
// o.LinkPath, with o.DatasetSlab applied.
func (f *File) ReadDescriptor(o Options) (Descriptor, error) {
	if f.closed {
		return Descriptor{}, ErrClosed
	}
	if err := o.Validate(); err != nil {
		return Descriptor{}, err
	}
	b, err := f.datasetBuilder(o.LinkPath, nil, f.hints(o))
	if err != nil {
		return Descriptor{}, err
	}
	if !b.Exists.Value() {
		return Descriptor{}, h5err.WithPath(h5err.New(h5err.NotFound, "no dataset at %s", o.LinkPath), o.LinkPath)
	}
	return b.Finish(meta.OpRead)
}

// MarshalWrite writes v as described by d and data, as returned by
// BuildDescriptor. A dataset that does not exist yet is created; an
// existing one is reconciled with the data first. Every check runs before
// the dataset is created or resized, so a failed write changes nothing.
func (f *File) MarshalWrite(v interface{}, d Descriptor, data DataDescriptor) error {
	if f.closed {
		return ErrClosed
	}
	if data.Info.Type == nil {
		return h5err.WithPath(h5err.New(h5err.NotReady, "write of %s has no data descriptor", d.Path), d.Path)
	}
	from := d.Dims
	var dec ResizeDecision
	if d.Exists {
		var err error
		if dec, err = resizeFor(d, data); err != nil {
			return err
		}
		d.Dims = dec.NewDims
	}
	p, err := f.m.Prepare(v, data, d.Target())
	if err != nil {
		return err
	}

	var ds engine.Dataset
	if d.Exists {
		ds, err = f.store.OpenDataset(d.Path)
	} else {
		ds, err = f.store.CreateDataset(d.Path, d.Spec())
	}
	if err != nil {
		return err
	}
	defer ds.Close()
	if d.Exists {
		if err := f.setExtent(ds, d.Path, from, dec); err != nil {
			return err
		}
	}
	return p.Commit(ds)
}

// MarshalRead reads the dataset described by d into dst. o supplies the
// data-side options: WithDims for raw buffers and WithDataSlab.
func (f *File) MarshalRead(dst interface{}, d Descriptor, o Options) error {
	if f.closed {
		return ErrClosed
	}
	ds, err := f.store.OpenDataset(d.Path)
	if err != nil {
		return err
	}
	defer ds.Close()
	return f.m.Read(ds, dst, d.Target(), f.hints(o))
}

// PlanResize decides how the dataset described by d changes for newDims.
// ResizeDefault keeps the policy already in d. Nothing is changed.
func PlanResize(d Descriptor, newDims []uint64, policy Policy) (ResizeDecision, error) {
	if policy != resize.Default {
		d.Policy = policy
	}
	return resize.Reconcile(d.ResizeInput(newDims))
}

// ApplyHyperslab returns d restricted to h. The selection must lie within
// the current dims.
func ApplyHyperslab(d Descriptor, h Hyperslab) (Descriptor, error) {
	sp, err := space.NewSimple(d.Dims, d.MaxDims)
	if err != nil {
		return Descriptor{}, h5err.WithPath(err, d.Path)
	}
	if err := sp.Select(h); err != nil {
		return Descriptor{}, h5err.WithPath(err, d.Path)
	}
	slab := h.Clone()
	d.Slab = &slab
	return d, nil
}
