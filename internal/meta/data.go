package meta

import (
	"reflect"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/introspect"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Data describes the in-memory side of an operation.
type Data struct {
	Info     introspect.Info
	Type     *dtype.Datatype // Element type; fixed or variable-length string for text
	Dims     []uint64
	Rank     int
	Size     uint64 // Elements
	Bytes    uint64
	ElemSize uint64
	Slab     *space.Hyperslab // Memory-side selection
}

// IsText reports whether the value holds strings.
func (d Data) IsText() bool {
	return d.Info.Has(introspect.TextLike) || d.Info.Has(introspect.TextContainer)
}

// Count returns the number of elements taking part in a transfer.
func (d Data) Count() uint64 {
	if d.Slab != nil {
		return d.Slab.NumElements()
	}
	return d.Size
}

// Space returns the memory space with the data slab selected.
func (d Data) Space() (*space.Space, error) {
	sp, err := space.NewSimple(d.Dims, nil)
	if err != nil {
		return nil, err
	}
	if d.Slab != nil {
		if err := sp.Select(*d.Slab); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

// DataBuilder collects the facts of a value.
type DataBuilder struct {
	Info     Fact[introspect.Info]
	Type     Fact[*dtype.Datatype]
	Dims     Fact[[]uint64]
	Size     Fact[uint64]
	Bytes    Fact[uint64]
	ElemSize Fact[uint64]
	Slab     Fact[*space.Hyperslab]
}

// NewDataBuilder returns an empty builder.
func NewDataBuilder() *DataBuilder {
	return &DataBuilder{}
}

// FillFromValue classifies v and resolves its shape with the data dims hint.
// Classification and resolution errors are returned as is.
func (b *DataBuilder) FillFromValue(v interface{}, h Hints) error {
	info, err := introspect.Classify(reflect.TypeOf(v))
	if err != nil {
		return err
	}
	res, err := introspect.Resolve(reflect.ValueOf(v), info, h.DataDims)
	if err != nil {
		return err
	}
	b.Info.Set(info, FromValue)
	b.Dims.Set(res.Dims, FromValue)
	b.Size.Set(res.Size, FromValue)
	b.Bytes.Set(res.Bytes, FromValue)
	b.ElemSize.Set(res.ElemSize, FromValue)
	switch {
	case info.Has(introspect.TextLike):
		b.Type.Set(dtype.NewFixedString(uint32(res.ElemSize), dtype.PadNullTerm), FromValue)
	case info.Has(introspect.TextContainer):
		b.Type.Set(dtype.NewVarString(), FromValue)
	default:
		b.Type.Set(info.ElemType, FromValue)
	}
	if h.DataSlab != nil && !h.DataSlab.IsEmpty() {
		slab := h.DataSlab.Clone()
		b.Slab.Set(&slab, FromOptions)
	}
	return nil
}

// Finish gates the data facts: size, bytes, dims and rank must be known and
// a data slab must fit the dims.
func (b *DataBuilder) Finish() (Data, error) {
	g := gate{what: "data", op: OpWrite}
	g.need("size", b.Size.IsSet())
	g.need("bytes", b.Bytes.IsSet())
	g.need("dims", b.Dims.IsSet())
	g.need("type", b.Type.IsSet())
	d := Data{
		Info:     b.Info.Value(),
		Type:     b.Type.Value(),
		Dims:     space.Clone(b.Dims.Value()),
		Rank:     len(b.Dims.Value()),
		Size:     b.Size.Value(),
		Bytes:    b.Bytes.Value(),
		ElemSize: b.ElemSize.Value(),
		Slab:     b.Slab.Value(),
	}
	if d.Slab != nil && b.Dims.IsSet() {
		if len(d.Dims) == 0 {
			g.fail("data slab", "a scalar cannot take a selection")
		} else {
			_, err := d.Space()
			g.check("data slab", err)
		}
	}
	name := "value"
	if d.Info.Type != nil {
		name = d.Info.Type.String()
	}
	if err := g.err(name); err != nil {
		return Data{}, err
	}
	return d, nil
}

// DescribeValue builds and gates the data descriptor of v.
func DescribeValue(v interface{}, h Hints) (Data, error) {
	b := NewDataBuilder()
	if err := b.FillFromValue(v, h); err != nil {
		return Data{}, err
	}
	return b.Finish()
}

// IsNotReady reports whether err is a readiness failure.
func IsNotReady(err error) bool {
	return h5err.Is(err, h5err.NotReady)
}
