// Package introspect classifies Go values by their structural capabilities
// and resolves the shape and byte size they imply.
//
// Classification looks only at static types. Built-in kinds are recognized
// directly; other types opt in by implementing [Shaped], [ElementBuffer],
// [Resizable] or [RawBuffer].
package introspect

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
)

// Capability is a set of structural properties of a type.
type Capability uint16

const (
	FixedElementSize Capability = 1 << iota // Elements have a static byte size
	AxisAccessor                            // Reports its own dims at run time
	TextLike                                // A single string
	TextContainer                           // A sequence of strings
	ResizableBuffer                         // Can be resized to a new shape
	CompoundRecord                          // Elements are flat records
	RawPointer                              // Shape must come from a hint
	VarLen                                  // Elements contain variable-length strings
)

var capabilityNames = []string{
	"FixedElementSize", "AxisAccessor", "TextLike", "TextContainer",
	"ResizableBuffer", "CompoundRecord", "RawPointer", "VarLen",
}

func (c Capability) String() string {
	var names []string
	for i, n := range capabilityNames {
		if c&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Shaped is implemented by N-dimensional containers that know their dims.
type Shaped interface {
	Dims() []uint64
}

// ElementBuffer is implemented by containers exposing contiguous element
// memory. ElementType must be callable on the zero value.
type ElementBuffer interface {
	ElementType() reflect.Type
	Bytes() []byte
}

// Resizable is implemented by containers that can be reshaped before a read.
type Resizable interface {
	Resize(dims []uint64) error
}

// RawBuffer is implemented by raw element pointers. The memory extent is
// unknown to the buffer, so every use needs a shape hint. ElementType must be
// callable on the zero value.
type RawBuffer interface {
	ElementType() reflect.Type
	RawBytes(n uint64) []byte
}

var (
	shapedType    = reflect.TypeOf((*Shaped)(nil)).Elem()
	bufferType    = reflect.TypeOf((*ElementBuffer)(nil)).Elem()
	resizableType = reflect.TypeOf((*Resizable)(nil)).Elem()
	rawType       = reflect.TypeOf((*RawBuffer)(nil)).Elem()
)

// Info is the classification of a static type.
type Info struct {
	Type       reflect.Type    // Classified type with one pointer level removed
	Caps       Capability      // Structural capabilities
	Elem       reflect.Type    // Go element type; nil for text
	ElemType   *dtype.Datatype // Element datatype; nil for text
	StaticDims []uint64        // Dims of fixed arrays, nil otherwise
	Rank       int             // Static rank, or -1 when known only at run time
}

// Has reports whether every capability in c is present.
func (i Info) Has(c Capability) bool {
	return i.Caps&c == c
}

// ElemSize returns the byte size of one element, or 0 for text.
func (i Info) ElemSize() uint64 {
	if i.ElemType == nil {
		return 0
	}
	return uint64(i.ElemType.Size)
}

func (i Info) String() string {
	return fmt.Sprintf("%v [%s]", i.Type, i.Caps)
}

// Classify inspects a static type. A single pointer level is looked through,
// so a read destination &x classifies like x.
func Classify(t reflect.Type) (Info, error) {
	if t == nil {
		return Info{}, h5err.New(h5err.UnresolvableType, "cannot classify a nil type")
	}
	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	ptr := reflect.PointerTo(base)

	switch {
	case base.Implements(rawType):
		return classifyRaw(base)
	case base.Implements(bufferType):
		return classifyBuffer(base, ptr)
	}

	switch base.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return element(Info{Type: base, Rank: 0}, base)
	case reflect.String:
		return Info{Type: base, Caps: TextLike, Rank: 0}, nil
	case reflect.Struct:
		return element(Info{Type: base, Rank: 0}, base)
	case reflect.Slice:
		return classifySlice(base)
	case reflect.Array:
		return classifyArray(base)
	default:
		return Info{}, h5err.New(h5err.UnresolvableType,
			"type %v is not a scalar, record, string or container", t)
	}
}

func element(info Info, elem reflect.Type) (Info, error) {
	dt, err := dtype.FromGoType(elem)
	if err != nil {
		return Info{}, fmt.Errorf("classify %v: %w", info.Type, err)
	}
	if dt.IsVarLen() {
		return Info{}, h5err.New(h5err.UnresolvableType, "%v: string elements are text, not fixed-size data", info.Type)
	}
	info.Elem = elem
	info.ElemType = dt
	info.Caps |= FixedElementSize
	if dt.Class == dtype.ClassCompound {
		info.Caps |= CompoundRecord
	}
	if dt.HasVarLen() {
		info.Caps |= VarLen
	}
	return info, nil
}

func classifySlice(t reflect.Type) (Info, error) {
	elem := t.Elem()
	switch elem.Kind() {
	case reflect.String:
		return Info{Type: t, Caps: TextContainer | ResizableBuffer, Rank: 1}, nil
	case reflect.Slice:
		return Info{}, h5err.New(h5err.UnresolvableType,
			"nested slices (%v) have no single contiguous shape; use a fixed array or an N-dimensional container", t)
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Chan, reflect.Func:
		return Info{}, h5err.New(h5err.UnresolvableType, "slice element %v has no fixed byte size", elem)
	}
	return element(Info{Type: t, Caps: ResizableBuffer, Rank: 1}, elem)
}

func classifyArray(t reflect.Type) (Info, error) {
	var dims []uint64
	elem := t
	for elem.Kind() == reflect.Array {
		dims = append(dims, uint64(elem.Len()))
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.String {
		if len(dims) > 1 {
			return Info{}, h5err.New(h5err.UnresolvableType, "multi-dimensional string arrays (%v) are not supported", t)
		}
		return Info{Type: t, Caps: TextContainer, StaticDims: dims, Rank: 1}, nil
	}
	return element(Info{Type: t, StaticDims: dims, Rank: len(dims)}, elem)
}

func elementTypeOf(t reflect.Type) reflect.Type {
	switch v := reflect.Zero(t).Interface().(type) {
	case RawBuffer:
		return v.ElementType()
	case ElementBuffer:
		return v.ElementType()
	}
	return nil
}

func classifyRaw(t reflect.Type) (Info, error) {
	elem := elementTypeOf(t)
	if elem == nil {
		return Info{}, h5err.New(h5err.UnresolvableType, "raw buffer %v reports no element type", t)
	}
	return element(Info{Type: t, Caps: RawPointer, Rank: -1}, elem)
}

func classifyBuffer(t, ptr reflect.Type) (Info, error) {
	if !t.Implements(shapedType) && !ptr.Implements(shapedType) {
		return Info{}, h5err.New(h5err.UnresolvableType,
			"buffer %v exposes memory but no dims accessor", t)
	}
	elem := elementTypeOf(t)
	if elem == nil {
		return Info{}, h5err.New(h5err.UnresolvableType, "buffer %v reports no element type", t)
	}
	info := Info{Type: t, Caps: AxisAccessor, Rank: -1}
	if ptr.Implements(resizableType) {
		info.Caps |= ResizableBuffer
	}
	return element(info, elem)
}
