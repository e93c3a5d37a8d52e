package meta

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Attribute names marking a dataset as a table.
const (
	TableClassAttr   = "CLASS"
	TableVersionAttr = "VERSION"
	TableTitleAttr   = "TITLE"

	TableClass   = "TABLE"
	TableVersion = "3.0"
)

// TableSelection picks which records a read covers.
type TableSelection uint8

const (
	AllRecords TableSelection = iota
	FirstRecords
	LastRecords
)

func (s TableSelection) String() string {
	switch s {
	case AllRecords:
		return "all"
	case FirstRecords:
		return "first"
	case LastRecords:
		return "last"
	default:
		return fmt.Sprintf("selection(%d)", uint8(s))
	}
}

// Table is the finished description of a table: a chunked 1-D dataset of
// records that grows on append.
type Table struct {
	Path        string
	Title       string
	Exists      bool
	Type        *dtype.Datatype
	Fields      FieldTable
	RecordBytes uint64
	NumRecords  uint64
	ChunkDims   []uint64
	Compression uint
	Filters     []filter.Info
}

// Spec returns the engine request creating the empty table.
func (t Table) Spec() engine.DatasetSpec {
	return engine.DatasetSpec{
		Type:      t.Type,
		Dims:      []uint64{0},
		MaxDims:   []uint64{space.Unlimited},
		Layout:    layout.Chunked,
		ChunkDims: space.Clone(t.ChunkDims),
		Filters:   t.Filters,
		Policy:    resize.Grow,
	}
}

// Records returns the offset and count of the records a selection covers.
func (t Table) Records(sel TableSelection, count uint64) (offset, n uint64, err error) {
	switch sel {
	case AllRecords:
		return 0, t.NumRecords, nil
	case FirstRecords, LastRecords:
	default:
		return 0, 0, h5err.New(h5err.InvalidSelection, "unknown table selection %v", sel)
	}
	if count > t.NumRecords {
		return 0, 0, h5err.WithPath(h5err.WithSizes(h5err.New(h5err.InvalidSelection,
			"cannot read the %s %d records of a table holding %d", sel, count, t.NumRecords),
			count, t.NumRecords), t.Path)
	}
	if sel == LastRecords {
		return t.NumRecords - count, count, nil
	}
	return 0, count, nil
}

// Target returns the transfer target for n records starting at offset,
// within dims records.
func (t Table) Target(offset, n, dims uint64) Target {
	tg := Target{Path: t.Path, Type: t.Type, Dims: []uint64{dims}}
	if n != dims || offset != 0 {
		tg.Slab = &space.Hyperslab{Offset: []uint64{offset}, Extent: []uint64{n}}
	}
	return tg
}

// TableBuilder collects the facts of a table.
type TableBuilder struct {
	log      *logger.Logger
	defaults Defaults

	Title       Fact[string]
	Path        Fact[string]
	Exists      Fact[bool]
	Type        Fact[*dtype.Datatype]
	Fields      Fact[FieldTable]
	RecordBytes Fact[uint64]
	NumRecords  Fact[uint64]
	ChunkDims   Fact[[]uint64]
	Compression Fact[uint]
	Filters     Fact[[]filter.Info]

	invalid []string
}

// NewTableBuilder starts a table description for path.
func NewTableBuilder(path string, defaults Defaults, log *logger.Logger) *TableBuilder {
	b := &TableBuilder{log: log.ForPackage("meta").WithField("table", path), defaults: defaults}
	if path != "" {
		b.Path.Set(path, FromOptions)
	}
	return b
}

// FillFromExisting pins the facts of the table at the builder's path.
func (b *TableBuilder) FillFromExisting(e engine.Engine) error {
	path, ok := b.Path.Get()
	if !ok {
		return nil
	}
	if !e.Exists(path) {
		b.Exists.Set(false, FromExisting)
		return nil
	}
	ds, err := e.OpenDataset(path)
	if err != nil {
		return err
	}
	defer ds.Close()
	info := ds.Info()
	if len(info.Dims) != 1 || info.Type.Class != dtype.ClassCompound {
		b.Exists.Set(true, FromExisting)
		b.invalid = append(b.invalid, fmt.Sprintf("table (%s %s is not a 1-D record dataset)",
			info.Type, space.Format(info.Dims)))
		return nil
	}
	b.Exists.Set(true, FromExisting)
	b.Type.Set(info.Type, FromExisting)
	b.RecordBytes.Set(uint64(info.Type.Size), FromExisting)
	b.NumRecords.Set(info.Dims[0], FromExisting)
	b.ChunkDims.Set(space.Clone(info.ChunkDims), FromExisting)
	b.Filters.Set(info.Filters, FromExisting)
	if ft, err := FieldsOf(info.Type); err == nil {
		b.Fields.Set(ft, FromExisting)
	}
	if title, ok := readTitle(ds); ok {
		b.Title.Set(title, FromExisting)
	}
	return nil
}

func readTitle(obj engine.Object) (string, bool) {
	if !obj.HasAttribute(TableTitleAttr) {
		return "", false
	}
	attr, err := obj.OpenAttribute(TableTitleAttr)
	if err != nil {
		return "", false
	}
	defer attr.Close()
	info := attr.Info()
	if info.Type.Class != dtype.ClassString || len(info.Dims) != 0 {
		return "", false
	}
	buf := make([]byte, info.Type.Size)
	if err := attr.Read(attr.Space(), buf); err != nil {
		return "", false
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), true
}

// FillFromType fills the facts of a new table from its record type.
func (b *TableBuilder) FillFromType(typ *dtype.Datatype, title string, h Hints) {
	if b.Exists.Value() {
		if typ != nil && !typ.Equal(b.Type.Value()) {
			b.log.Warnf("ignoring record type %s: the existing table has %s", typ, b.Type.Value())
		}
		return
	}
	if title != "" {
		b.Title.Set(title, FromOptions)
	}
	if typ == nil {
		return
	}
	b.Type.Set(typ, FromValue)
	ft, err := FieldsOf(typ)
	if err != nil {
		b.invalid = append(b.invalid, fmt.Sprintf("field table (%v)", err))
		return
	}
	b.Fields.Set(ft, FromValue)
	b.RecordBytes.Set(ft.RecordBytes, FromValue)
	b.NumRecords.Set(0, FromDefaults)

	if h.ChunkDims != nil {
		b.ChunkDims.Set(space.Clone(h.ChunkDims), FromOptions)
	} else {
		chunk, err := b.defaults.Thresholds.ChunkDims(layout.Chunked, ft.RecordBytes,
			[]uint64{1}, []uint64{space.Unlimited})
		if err != nil {
			b.invalid = append(b.invalid, fmt.Sprintf("chunk dims (%v)", err))
		} else {
			b.ChunkDims.Set(chunk, FromDefaults)
		}
	}

	level, codec, src := b.defaults.Compression, b.defaults.Codec, FromDefaults
	if h.Compression != nil {
		level, src = *h.Compression, FromOptions
	}
	if h.Codec != filter.CodecNone {
		codec = h.Codec
	}
	b.Compression.Set(level, src)
	infos, err := filter.Plan(codec, level, h.Shuffle, h.Fletcher32, ft.RecordBytes)
	if err != nil {
		b.invalid = append(b.invalid, fmt.Sprintf("compression (%v)", err))
		return
	}
	b.Filters.Set(infos, src)
}

// Finish gates the facts for op and returns the descriptor.
func (b *TableBuilder) Finish(op Op) (Table, error) {
	g := gate{what: "table", op: op}
	t := Table{
		Path:        b.Path.Value(),
		Title:       b.Title.Value(),
		Exists:      b.Exists.Value(),
		Type:        b.Type.Value(),
		Fields:      b.Fields.Value(),
		RecordBytes: b.RecordBytes.Value(),
		NumRecords:  b.NumRecords.Value(),
		ChunkDims:   space.Clone(b.ChunkDims.Value()),
		Compression: b.Compression.Value(),
		Filters:     b.Filters.Value(),
	}
	switch op {
	case OpCreate:
		g.need("title", b.Title.IsSet())
		g.need("path", b.Path.IsSet())
		g.need("field table", b.Fields.IsSet())
		g.need("record bytes", b.RecordBytes.IsSet())
		g.need("chunk dims", b.ChunkDims.IsSet())
		g.need("compression", b.Compression.IsSet())
		if b.Exists.Value() {
			g.fail("exists", "a table already exists")
		}
	default:
		g.need("exists", b.Exists.IsSet())
		if b.Exists.IsSet() && !t.Exists {
			g.fail("exists", "no table exists")
		}
		g.need("type", b.Type.IsSet())
		g.need("records", b.NumRecords.IsSet())
		g.need("record bytes", b.RecordBytes.IsSet())
		g.need("field table", b.Fields.IsSet())
	}
	g.invalid = append(g.invalid, b.invalid...)
	if b.Fields.IsSet() {
		g.check("field table", t.Fields.Validate())
	}
	if b.Type.IsSet() && t.Type.HasVarLen() {
		g.fail("type", "records with variable-length members are not supported")
	}
	if err := g.err(t.Path); err != nil {
		return Table{}, err
	}
	return t, nil
}

// DescribeTable describes an existing table for reading or appending.
func DescribeTable(e engine.Engine, path string, op Op, log *logger.Logger) (Table, error) {
	b := NewTableBuilder(path, DefaultDefaults(), log)
	if err := b.FillFromExisting(e); err != nil {
		return Table{}, err
	}
	return b.Finish(op)
}
