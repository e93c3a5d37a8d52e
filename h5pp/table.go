package h5pp

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/introspect"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
	"github.com/robert-malhotra/go-h5pp/internal/store"
)

// CreateTable creates an empty table at path whose records have the type of
// record, a struct value. WithChunkDims, WithCompression and WithCodec
// override the defaults.
func (f *File) CreateTable(path, title string, record interface{}, opts ...Option) (TableInfo, error) {
	if f.closed {
		return TableInfo{}, ErrClosed
	}
	typ, err := TypeOf(record)
	if err != nil {
		return TableInfo{}, h5err.WithPath(err, path)
	}
	if typ.Class != dtype.ClassCompound {
		return TableInfo{}, fmt.Errorf("creating table %s: %w", path, ErrNotRecords)
	}
	b := meta.NewTableBuilder(store.CleanPath(path), f.defaults, f.log)
	if err := b.FillFromExisting(f.store); err != nil {
		return TableInfo{}, err
	}
	b.FillFromType(typ, title, f.hints(NewOptions(path, opts...)))
	t, err := b.Finish(meta.OpCreate)
	if err != nil {
		return TableInfo{}, err
	}

	ds, err := f.store.CreateDataset(t.Path, t.Spec())
	if err != nil {
		return TableInfo{}, err
	}
	ds.Close()
	for _, attr := range []struct{ name, value string }{
		{meta.TableClassAttr, meta.TableClass},
		{meta.TableVersionAttr, meta.TableVersion},
		{meta.TableTitleAttr, t.Title},
	} {
		if err := f.WriteAttribute(t.Path, attr.name, attr.value); err != nil {
			return TableInfo{}, fmt.Errorf("creating table %s: %w", t.Path, err)
		}
	}
	f.log.WithField("path", t.Path).Debugf("created table %q of %s, chunk %s",
		t.Title, t.Fields, space.Format(t.ChunkDims))
	t.Exists = true
	return t, nil
}

// DescribeTable returns the description of the table at path.
func (f *File) DescribeTable(path string) (TableInfo, error) {
	if f.closed {
		return TableInfo{}, ErrClosed
	}
	return meta.DescribeTable(f.store, store.CleanPath(path), meta.OpRead, f.log)
}

// AppendTableRecords appends records, a record or slice of records, to the
// table at path and returns the new record count.
func (f *File) AppendTableRecords(path string, records interface{}) (uint64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	t, err := meta.DescribeTable(f.store, store.CleanPath(path), meta.OpWrite, f.log)
	if err != nil {
		return 0, err
	}
	data, err := meta.DescribeValue(records, meta.Hints{})
	if err != nil {
		return 0, h5err.WithPath(err, t.Path)
	}
	if !data.Info.Has(introspect.CompoundRecord) {
		return 0, fmt.Errorf("appending to table %s: %w", t.Path, ErrNotRecords)
	}
	if data.Rank == 0 {
		if data, err = meta.DescribeValue(records, meta.Hints{DataDims: []uint64{1}}); err != nil {
			return 0, h5err.WithPath(err, t.Path)
		}
	}
	n := data.Count()
	if n == 0 {
		return t.NumRecords, nil
	}
	dec, err := resize.Reconcile(resize.Input{
		Path:      t.Path,
		Existing:  []uint64{t.NumRecords},
		MaxDims:   []uint64{space.Unlimited},
		Incoming:  []uint64{t.NumRecords + n},
		Layout:    layout.Chunked,
		Requested: resize.Grow,
	})
	if err != nil {
		return 0, err
	}

	total := dec.NewDims[0]
	p, err := f.m.Prepare(records, data, t.Target(t.NumRecords, n, total))
	if err != nil {
		return 0, err
	}

	ds, err := f.store.OpenDataset(t.Path)
	if err != nil {
		return 0, err
	}
	defer ds.Close()
	if err := f.setExtent(ds, t.Path, []uint64{t.NumRecords}, dec); err != nil {
		return 0, err
	}
	if err := p.Commit(ds); err != nil {
		return 0, err
	}
	return total, nil
}

// ReadTableRecords reads the records picked by sel into dst. count is
// ignored for AllRecords.
func (f *File) ReadTableRecords(path string, dst interface{}, sel TableSelection, count uint64) error {
	if f.closed {
		return ErrClosed
	}
	t, err := meta.DescribeTable(f.store, store.CleanPath(path), meta.OpRead, f.log)
	if err != nil {
		return err
	}
	off, n, err := t.Records(sel, count)
	if err != nil {
		return err
	}
	ds, err := f.store.OpenDataset(t.Path)
	if err != nil {
		return err
	}
	defer ds.Close()
	return f.m.Read(ds, dst, t.Target(off, n, t.NumRecords), meta.Hints{})
}

// ReadTableFields reads the named fields of the records picked by sel. dst
// is either a slice of structs whose h5 tags name the fields, or a byte
// slice receiving the packed subset records. The packed subset type is
// returned.
func (f *File) ReadTableFields(path string, dst interface{}, names []string, sel TableSelection, count uint64) (*Datatype, error) {
	if f.closed {
		return nil, ErrClosed
	}
	t, err := meta.DescribeTable(f.store, store.CleanPath(path), meta.OpRead, f.log)
	if err != nil {
		return nil, err
	}
	off, n, err := t.Records(sel, count)
	if err != nil {
		return nil, err
	}
	ds, err := f.store.OpenDataset(t.Path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return f.m.ReadFields(ds, dst, t.Target(off, n, t.NumRecords), names)
}
