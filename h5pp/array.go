package h5pp

import (
	"fmt"
	"reflect"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Number is an element type Array and Raw can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Array is a dense row-major N-dimensional array. It reports its own dims,
// so writes need no shape option, and reads reshape it to the stored extent.
type Array[T Number] struct {
	dims []uint64
	data []T
}

// NewArray returns a zeroed array of the given shape.
func NewArray[T Number](dims ...uint64) *Array[T] {
	return &Array[T]{dims: space.Clone(dims), data: make([]T, space.Size(dims))}
}

// ArrayOf wraps data as an array of the given shape.
func ArrayOf[T Number](data []T, dims ...uint64) (*Array[T], error) {
	if n := space.Size(dims); n != uint64(len(data)) {
		return nil, fmt.Errorf("shape %s holds %d elements, got %d", space.Format(dims), n, len(data))
	}
	return &Array[T]{dims: space.Clone(dims), data: data}, nil
}

func (a Array[T]) Dims() []uint64 { return a.dims }
func (a Array[T]) Data() []T      { return a.data }

// ElementType reports the Go element type.
func (Array[T]) ElementType() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

// Bytes returns the element memory.
func (a Array[T]) Bytes() []byte {
	if len(a.data) == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&a.data[0])), len(a.data)*int(unsafe.Sizeof(zero)))
}

// Resize reshapes the array, keeping the backing memory when it is large
// enough. Contents are not preserved.
func (a *Array[T]) Resize(dims []uint64) error {
	n := int(space.Size(dims))
	if cap(a.data) >= n {
		a.data = a.data[:n]
	} else {
		a.data = make([]T, n)
	}
	a.dims = space.Clone(dims)
	return nil
}

// At returns the element at the given index.
func (a Array[T]) At(idx ...uint64) T {
	return a.data[space.Linear(idx, space.RowMajorStrides(a.dims))]
}

// Raw is a bare element pointer. The memory extent is unknown, so every
// transfer through it needs WithDims.
type Raw[T Number] struct {
	Ptr *T
}

// ElementType reports the Go element type.
func (Raw[T]) ElementType() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

// RawBytes exposes n elements starting at Ptr.
func (r Raw[T]) RawBytes(n uint64) []byte {
	if r.Ptr == nil || n == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(r.Ptr)), n*uint64(unsafe.Sizeof(zero)))
}
