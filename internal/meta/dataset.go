package meta

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Target is the stored side of a transfer: what the marshaler reads from or
// writes to.
type Target struct {
	Path string
	Type *dtype.Datatype
	Dims []uint64
	Slab *space.Hyperslab
}

// Dataset is the finished description of a dataset.
type Dataset struct {
	Path         string
	Exists       bool
	Type         *dtype.Datatype
	Dims         []uint64
	MaxDims      []uint64 // nil for fixed-size layouts
	ChunkDims    []uint64 // nil unless chunked
	Layout       layout.Class
	Filters      []filter.Info
	Policy       resize.Policy // Requested by the caller
	StoredPolicy resize.Policy // Recorded with the dataset
	Slab         *space.Hyperslab
}

// Size returns the number of elements.
func (d Dataset) Size() uint64 {
	return space.Size(d.Dims)
}

// Bytes returns the size of the data in bytes.
func (d Dataset) Bytes() uint64 {
	return d.Size() * uint64(d.Type.Size)
}

// Rank returns the number of axes.
func (d Dataset) Rank() int {
	return len(d.Dims)
}

// EffectivePolicy returns the resize policy in force.
func (d Dataset) EffectivePolicy() resize.Policy {
	return resize.EffectivePolicy(d.Policy, d.StoredPolicy, d.Slab != nil)
}

// Spec returns the engine request creating the dataset. The requested policy
// is stored with it, else the configured default.
func (d Dataset) Spec() engine.DatasetSpec {
	policy := d.Policy
	if policy == resize.Default {
		policy = d.StoredPolicy
	}
	return engine.DatasetSpec{
		Type:      d.Type,
		Dims:      space.Clone(d.Dims),
		MaxDims:   space.Clone(d.MaxDims),
		Layout:    d.Layout,
		ChunkDims: space.Clone(d.ChunkDims),
		Filters:   slices.Clone(d.Filters),
		Policy:    policy,
	}
}

// Target returns the transfer target of the dataset.
func (d Dataset) Target() Target {
	return Target{Path: d.Path, Type: d.Type, Dims: space.Clone(d.Dims), Slab: d.Slab}
}

// ResizeInput returns the reconcile input for incoming dims.
func (d Dataset) ResizeInput(incoming []uint64) resize.Input {
	return resize.Input{
		Path:      d.Path,
		Existing:  space.Clone(d.Dims),
		MaxDims:   space.Clone(d.MaxDims),
		Incoming:  space.Clone(incoming),
		Layout:    d.Layout,
		Requested: d.Policy,
		Stored:    d.StoredPolicy,
		Selection: d.Slab,
		VarLen:    d.Type != nil && d.Type.IsVarLen(),
	}
}

func (d Dataset) String() string {
	s := fmt.Sprintf("%s %s %s %s", d.Path, d.Type, space.Format(d.Dims), d.Layout)
	if d.ChunkDims != nil {
		s += " chunk " + space.Format(d.ChunkDims)
	}
	if d.Slab != nil {
		s += " slab " + d.Slab.String()
	}
	return s
}

// DatasetBuilder collects the facts of a dataset.
type DatasetBuilder struct {
	log      *logger.Logger
	defaults Defaults

	Path         Fact[string]
	Exists       Fact[bool]
	Type         Fact[*dtype.Datatype]
	Dims         Fact[[]uint64]
	MaxDims      Fact[[]uint64]
	ChunkDims    Fact[[]uint64]
	Layout       Fact[layout.Class]
	Filters      Fact[[]filter.Info]
	Policy       Fact[resize.Policy]
	StoredPolicy Fact[resize.Policy]
	Slab         Fact[*space.Hyperslab]

	invalid []string
}

// NewDatasetBuilder starts a dataset description for path.
func NewDatasetBuilder(path string, defaults Defaults, log *logger.Logger) *DatasetBuilder {
	b := &DatasetBuilder{log: log.ForPackage("meta").WithField("path", path), defaults: defaults}
	if path != "" {
		b.Path.Set(path, FromOptions)
	}
	return b
}

func sameDatatype(a, b *dtype.Datatype) bool { return a.Equal(b) }
func sameClass(a, b layout.Class) bool       { return a == b }

// FillFromExisting pins the facts of the dataset at the builder's path, or
// records that none exists. The engine handle is closed before returning.
func (b *DatasetBuilder) FillFromExisting(e engine.Engine) error {
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
	b.FillFromInfo(ds.Info())
	return nil
}

// FillFromInfo pins the facts of an existing dataset.
func (b *DatasetBuilder) FillFromInfo(info engine.DatasetInfo) {
	b.Exists.Set(true, FromExisting)
	b.Type.Set(info.Type, FromExisting)
	b.Dims.Set(space.Clone(info.Dims), FromExisting)
	b.Layout.Set(info.Layout, FromExisting)
	b.StoredPolicy.Set(info.Policy, FromExisting)
	b.Filters.Set(slices.Clone(info.Filters), FromExisting)
	if info.Layout == layout.Chunked {
		b.MaxDims.Set(space.Clone(info.MaxDims), FromExisting)
		b.ChunkDims.Set(space.Clone(info.ChunkDims), FromExisting)
	} else {
		b.MaxDims.Set(nil, FromExisting)
		b.ChunkDims.Set(nil, FromExisting)
	}
}

// FillFromValue fills the facts still unset from the options and the value.
// data may be nil when only hints describe the dataset.
func (b *DatasetBuilder) FillFromValue(data *Data, h Hints) {
	exists := b.Exists.Value()

	if h.Type != nil {
		offer(b.log, "type", &b.Type, h.Type, FromOptions, sameDatatype)
	}
	if data != nil && !b.Type.IsSet() {
		b.Type.Set(data.Type, FromValue)
	}
	if h.Policy != resize.Default {
		b.Policy.Set(h.Policy, FromOptions)
	}
	if !b.StoredPolicy.IsSet() && b.defaults.Policy != resize.Default {
		b.StoredPolicy.Set(b.defaults.Policy, FromDefaults)
	}
	if h.DatasetSlab != nil && !h.DatasetSlab.IsEmpty() {
		slab := h.DatasetSlab.Clone()
		b.Slab.Set(&slab, FromOptions)
	}
	if h.Layout != nil {
		offer(b.log, "layout", &b.Layout, *h.Layout, FromOptions, sameClass)
	}
	if h.MaxDims != nil {
		offer(b.log, "max dims", &b.MaxDims, space.Clone(h.MaxDims), FromOptions, space.Equal)
	}
	if h.ChunkDims != nil {
		offer(b.log, "chunk dims", &b.ChunkDims, space.Clone(h.ChunkDims), FromOptions, space.Equal)
	}
	if exists {
		if h.Compression != nil || h.Codec != filter.CodecNone || h.Shuffle || h.Fletcher32 {
			b.log.Debugf("ignoring filter options: the existing dataset keeps %v", b.Filters.Value())
		}
		return
	}

	// Everything below infers a new dataset.
	if !b.Dims.IsSet() {
		var base []uint64
		switch {
		case data != nil:
			base = data.Dims
		case h.DataDims != nil:
			base = h.DataDims
		}
		if data != nil || h.DataDims != nil {
			var slab *space.Hyperslab
			if data != nil {
				slab = data.Slab
			}
			dims, err := resize.IncomingDims(base, slab, b.Slab.Value())
			if err != nil {
				b.invalid = append(b.invalid, fmt.Sprintf("dims (%v)", err))
			} else {
				b.Dims.Set(dims, FromValue)
			}
		}
	}
	if (b.ChunkDims.IsSet() || b.MaxDims.IsSet()) && !b.Layout.IsSet() {
		b.Layout.Set(layout.Chunked, FromDefaults)
	}

	typ, typeOK := b.Type.Get()
	dims, dimsOK := b.Dims.Get()
	if !typeOK || !dimsOK {
		return
	}
	elem := uint64(typ.Size)
	if !b.Layout.IsSet() {
		b.Layout.Set(b.defaults.Thresholds.DecideFor(dims, b.MaxDims.Value(), elem), FromDefaults)
	}
	class := b.Layout.Value()
	if !b.MaxDims.IsSet() && class == layout.Chunked {
		unlimited := make([]uint64, len(dims))
		for i := range unlimited {
			unlimited[i] = space.Unlimited
		}
		b.MaxDims.Set(unlimited, FromDefaults)
	}
	if !b.ChunkDims.IsSet() && class == layout.Chunked {
		chunk, err := b.defaults.Thresholds.ChunkDims(class, elem, dims, b.MaxDims.Value())
		if err != nil {
			b.invalid = append(b.invalid, fmt.Sprintf("chunk dims (%v)", err))
		} else {
			b.ChunkDims.Set(chunk, FromDefaults)
		}
	}
	if !b.Filters.IsSet() {
		b.fillFilters(class, elem, h)
	}
}

func (b *DatasetBuilder) fillFilters(class layout.Class, elem uint64, h Hints) {
	level, codec := b.defaults.Compression, b.defaults.Codec
	src := FromDefaults
	if h.Compression != nil {
		level, src = *h.Compression, FromOptions
	}
	if h.Codec != filter.CodecNone {
		codec, src = h.Codec, FromOptions
	}
	if class != layout.Chunked {
		if level > 0 && src == FromOptions {
			b.log.Debugf("compression needs a chunked layout; %s data is stored unfiltered", class)
		}
		b.Filters.Set(nil, FromDefaults)
		return
	}
	infos, err := filter.Plan(codec, level, h.Shuffle, h.Fletcher32, elem)
	if err != nil {
		b.invalid = append(b.invalid, fmt.Sprintf("filters (%v)", err))
		return
	}
	b.Filters.Set(infos, src)
}

// Finish gates the facts for op and returns the descriptor.
func (b *DatasetBuilder) Finish(op Op) (Dataset, error) {
	g := gate{what: "dataset", op: op}
	exists, existsKnown := b.Exists.Get()
	_, typeOK := b.Type.Get()
	_, dimsOK := b.Dims.Get()

	g.need("path", b.Path.IsSet())
	g.need("exists", existsKnown)
	switch op {
	case OpCreate:
		g.need("type", typeOK)
		g.need("dims", dimsOK)
		g.need("layout", b.Layout.IsSet())
	case OpResize:
		g.need("max dims", b.MaxDims.IsSet() || b.Layout.IsSet() && b.Layout.Value() != layout.Chunked)
		g.need("type", typeOK)
		g.need("dims", dimsOK)
		g.need("layout", b.Layout.IsSet())
	case OpWrite, OpRead:
		g.need("type", typeOK)
		g.need("dims", dimsOK)
	}

	d := Dataset{
		Path:         b.Path.Value(),
		Exists:       exists,
		Type:         b.Type.Value(),
		Dims:         space.Clone(b.Dims.Value()),
		MaxDims:      space.Clone(b.MaxDims.Value()),
		ChunkDims:    space.Clone(b.ChunkDims.Value()),
		Layout:       b.Layout.Value(),
		Filters:      slices.Clone(b.Filters.Value()),
		Policy:       b.Policy.Value(),
		StoredPolicy: b.StoredPolicy.Value(),
		Slab:         b.Slab.Value(),
	}

	g.invalid = append(g.invalid, b.invalid...)
	if existsKnown {
		switch {
		case op == OpCreate && exists:
			g.fail("exists", "a dataset already exists")
		case op != OpCreate && !exists:
			g.fail("exists", "no dataset exists")
		}
	}
	if op == OpResize && d.EffectivePolicy() == resize.Off {
		g.fail("policy", "resizing is turned off")
	}
	if op == OpCreate && typeOK && dimsOK && b.Layout.IsSet() {
		g.check("layout", layout.CheckCompatibility(d.Layout, d.Dims, d.ChunkDims, d.MaxDims))
	}
	if d.Slab != nil && dimsOK && op == OpRead {
		sp, err := space.NewSimple(d.Dims, nil)
		if err == nil {
			err = sp.Select(*d.Slab)
		}
		g.check("dataset slab", err)
	}
	if err := g.err(d.Path); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// ReadDataset describes an existing dataset without a value.
func ReadDataset(e engine.Engine, path string, log *logger.Logger) (Dataset, error) {
	b := NewDatasetBuilder(path, DefaultDefaults(), log)
	if err := b.FillFromExisting(e); err != nil {
		return Dataset{}, err
	}
	if !b.Exists.Value() {
		return Dataset{}, h5err.WithPath(h5err.New(h5err.NotFound, "no dataset at %s", path), path)
	}
	return b.Finish(OpRead)
}
