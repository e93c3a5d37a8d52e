package introspect

import (
	"reflect"
	"unsafe"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// deref removes one pointer level.
func deref(v reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return v, h5err.New(h5err.UnresolvableType, "cannot resolve a nil value")
	}
	if v.Kind() == reflect.Ptr {
		if _, raw := v.Interface().(RawBuffer); raw {
			return v, nil
		}
		if v.IsNil() {
			return v, h5err.New(h5err.UnresolvableType, "cannot resolve a nil %v", v.Type())
		}
		return v.Elem(), nil
	}
	return v, nil
}

// addressable returns v itself when it can be addressed, else a copy that
// can. Writes of values passed by value go through the copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func asShaped(v reflect.Value) Shaped {
	if s, ok := v.Interface().(Shaped); ok {
		return s
	}
	return addressable(v).Addr().Interface().(Shaped)
}

// Bytes returns the memory holding the elements of v. For slices, arrays,
// scalars and records reached through a pointer the returned slice aliases
// the value, so reads land in place. Raw buffers expose n elements.
func Bytes(v reflect.Value, info Info, n uint64) ([]byte, error) {
	if info.ElemType == nil {
		return nil, h5err.New(h5err.UnresolvableType, "%v has no fixed-size byte view", info.Type)
	}
	v, err := deref(v)
	if err != nil {
		return nil, err
	}
	switch {
	case info.Has(RawPointer):
		return v.Interface().(RawBuffer).RawBytes(n), nil
	case info.Has(AxisAccessor):
		if b, ok := v.Interface().(ElementBuffer); ok {
			return b.Bytes(), nil
		}
		return addressable(v).Addr().Interface().(ElementBuffer).Bytes(), nil
	case v.Kind() == reflect.Slice:
		if v.Len() == 0 {
			return []byte{}, nil
		}
		return unsafe.Slice((*byte)(v.UnsafePointer()), uint64(v.Len())*info.ElemSize()), nil
	default:
		a := addressable(v)
		return unsafe.Slice((*byte)(a.Addr().UnsafePointer()), a.Type().Size()), nil
	}
}

// Strings returns the text held by a string or string container.
func Strings(v reflect.Value, info Info) ([]string, error) {
	v, err := deref(v)
	if err != nil {
		return nil, err
	}
	switch {
	case info.Has(TextLike):
		return []string{v.String()}, nil
	case info.Has(TextContainer):
		out := make([]string, v.Len())
		for i := range out {
			out[i] = v.Index(i).String()
		}
		return out, nil
	default:
		return nil, h5err.New(h5err.UnresolvableType, "%v does not hold text", info.Type)
	}
}

// SetStrings stores text into a string or string container reached through
// a pointer. Slices are resized to fit.
func SetStrings(v reflect.Value, info Info, vals []string) error {
	v, err := settable(v)
	if err != nil {
		return err
	}
	switch {
	case info.Has(TextLike):
		if len(vals) != 1 {
			return h5err.WithSizes(h5err.New(h5err.SizeMismatch,
				"a single string cannot hold %d strings", len(vals)), 1, uint64(len(vals)))
		}
		v.SetString(vals[0])
	case info.Has(TextContainer):
		if v.Kind() == reflect.Slice {
			if v.Len() != len(vals) {
				v.Set(reflect.MakeSlice(v.Type(), len(vals), len(vals)))
			}
		} else if v.Len() < len(vals) {
			return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
				"%v holds %d strings, %d were read", v.Type(), v.Len(), len(vals)), uint64(v.Len()), uint64(len(vals)))
		}
		for i, s := range vals {
			v.Index(i).SetString(s)
		}
	default:
		return h5err.New(h5err.UnresolvableType, "%v does not hold text", info.Type)
	}
	return nil
}

func settable(v reflect.Value) (reflect.Value, error) {
	if v.IsValid() && v.Kind() == reflect.Ptr && !v.IsNil() {
		return v.Elem(), nil
	}
	return v, h5err.New(h5err.UnresolvableType, "read destination must be a non-nil pointer, got %v", v.Type())
}

// Fit prepares a read destination to hold dims. Resizable containers and
// slices behind a pointer are reshaped; anything else is left alone and
// checked later against the selection size.
func Fit(v reflect.Value, info Info, dims []uint64) error {
	switch {
	case info.Has(RawPointer):
		return nil
	case info.Has(AxisAccessor):
		if !info.Has(ResizableBuffer) {
			return nil
		}
		if v.Kind() != reflect.Ptr {
			return h5err.New(h5err.UnresolvableType,
				"resizable container %v must be passed by pointer", info.Type)
		}
		if space.Equal(asShaped(v.Elem()).Dims(), dims) {
			return nil
		}
		return v.Interface().(Resizable).Resize(space.Clone(dims))
	case info.Type.Kind() == reflect.Slice:
		e, err := settable(v)
		if err != nil {
			return err
		}
		n := int(space.Size(dims))
		if e.Len() != n {
			e.Set(reflect.MakeSlice(e.Type(), n, n))
		}
	}
	return nil
}
