package h5pp

import (
	"reflect"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Options is the sparse set of choices for one operation. Zero and nil
// fields mean "not given"; the descriptor builders fill them from the value,
// the existing object and the File's Config.
type Options struct {
	LinkPath string
	AttrName string

	Type         *Datatype
	DataDims     []uint64 // Shape of the value, or of a dataset created without one
	MaxDims      []uint64
	ChunkDims    []uint64
	Layout       *Layout
	Compression  *uint
	Codec        Codec
	Shuffle      bool
	Fletcher32   bool
	ResizePolicy Policy
	DatasetSlab  *Hyperslab
	DataSlab     *Hyperslab
	AttrSlab     *Hyperslab
}

// Option sets one field of Options.
type Option func(*Options)

// NewOptions returns the options for path with opts applied.
func NewOptions(path string, opts ...Option) Options {
	o := Options{LinkPath: path}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate checks the options on their own: a link path is required, the
// slabs must be well formed and an explicit layout must suit the shapes.
func (o Options) Validate() error {
	if o.LinkPath == "" {
		return h5err.New(h5err.InvalidConfig, "options need a link path")
	}
	for _, slab := range []*Hyperslab{o.DatasetSlab, o.DataSlab, o.AttrSlab} {
		if slab == nil {
			continue
		}
		if err := slab.Validate(); err != nil {
			return h5err.WithPath(err, o.LinkPath)
		}
	}
	if o.Layout != nil && o.DataDims != nil {
		err := layout.CheckCompatibility(*o.Layout, o.DataDims, o.ChunkDims, o.MaxDims)
		if err != nil {
			return h5err.WithPath(err, o.LinkPath)
		}
	}
	return nil
}

func (f *File) hints(o Options) meta.Hints {
	return meta.Hints{
		Type:        o.Type,
		DataDims:    space.Clone(o.DataDims),
		MaxDims:     space.Clone(o.MaxDims),
		ChunkDims:   space.Clone(o.ChunkDims),
		Layout:      o.Layout,
		Compression: o.Compression,
		Codec:       o.Codec,
		Shuffle:     o.Shuffle || f.cfg.Shuffle,
		Fletcher32:  o.Fletcher32 || f.cfg.Fletcher32,
		Policy:      o.ResizePolicy,
		DatasetSlab: o.DatasetSlab,
		DataSlab:    o.DataSlab,
		AttrSlab:    o.AttrSlab,
	}
}

// WithType sets the element type stored in the file. The value is
// converted when it differs from the in-memory type.
func WithType(t *Datatype) Option {
	return func(o *Options) {
		o.Type = t
	}
}

// WithDims reshapes the value, or sets the shape of a dataset created without
// a value. It must hold the same number of elements as the value.
func WithDims(dims ...uint64) Option {
	return func(o *Options) {
		o.DataDims = space.Clone(dims)
		if o.DataDims == nil {
			o.DataDims = []uint64{}
		}
	}
}

// WithMaxDims sets the maximum dimensions of a new dataset. Use Unlimited
// for an axis without bound. Implies a chunked layout.
func WithMaxDims(dims ...uint64) Option {
	return func(o *Options) {
		o.MaxDims = space.Clone(dims)
	}
}

// WithChunkDims sets the chunk shape of a new dataset. Implies a chunked
// layout.
func WithChunkDims(dims ...uint64) Option {
	return func(o *Options) {
		o.ChunkDims = space.Clone(dims)
	}
}

// WithLayout forces the layout of a new dataset.
func WithLayout(l Layout) Option {
	return func(o *Options) {
		o.Layout = &l
	}
}

// WithCompression sets the compression level; 0 turns it off.
func WithCompression(level uint) Option {
	return func(o *Options) {
		o.Compression = &level
	}
}

// WithCodec picks the compression codec. Deflate is used when a level is
// given without one.
func WithCodec(c Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithShuffle enables the byte shuffle ahead of compression.
func WithShuffle(on bool) Option {
	return func(o *Options) {
		o.Shuffle = on
	}
}

// WithFletcher32 appends a checksum to every chunk.
func WithFletcher32(on bool) Option {
	return func(o *Options) {
		o.Fletcher32 = on
	}
}

// WithResizePolicy sets how an existing dataset's extent follows the data.
func WithResizePolicy(p Policy) Option {
	return func(o *Options) {
		o.ResizePolicy = p
	}
}

// WithDatasetSlab restricts the transfer to a region of the dataset.
func WithDatasetSlab(h Hyperslab) Option {
	return func(o *Options) {
		o.DatasetSlab = &h
	}
}

// WithDataSlab restricts the transfer to a region of the in-memory value.
func WithDataSlab(h Hyperslab) Option {
	return func(o *Options) {
		o.DataSlab = &h
	}
}

// WithAttrSlab restricts the transfer to a region of the attribute.
func WithAttrSlab(h Hyperslab) Option {
	return func(o *Options) {
		o.AttrSlab = &h
	}
}

// TypeOf returns the datatype a Go value is stored as. Pointers are looked
// through and slices report their element type.
func TypeOf(v interface{}) (*Datatype, error) {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil {
		return nil, h5err.New(h5err.UnresolvableType, "cannot type a nil value")
	}
	return dtype.FromGoType(t)
}
