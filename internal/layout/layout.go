package layout

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Backend is the byte arena that storage handlers place raw data in.
type Backend interface {
	io.ReaderAt
	io.WriterAt

	// Alloc reserves size bytes and returns their address.
	Alloc(size uint64) (uint64, error)

	// Free returns a block to the arena.
	Free(addr, size uint64)
}

// Storage moves the raw data of one dataset between packed selection
// buffers and the backend.
type Storage interface {
	// Class returns the layout class.
	Class() Class

	// Read returns the selected elements of s, packed in row-major order.
	Read(s *space.Space) ([]byte, error)

	// Write stores packed into the selected elements of s.
	Write(s *space.Space, packed []byte) error

	// Extend changes the stored extent from oldDims to newDims.
	Extend(oldDims, newDims []uint64) error

	// StoredBytes returns the number of bytes held for the data.
	StoredBytes() uint64

	// Release frees everything held in the backend.
	Release()
}

// Params describe the storage of a new dataset.
type Params struct {
	Class     Class
	Dims      []uint64
	ElemSize  int
	ChunkDims []uint64      // Chunked only
	Filters   []filter.Info // Chunked only
}

// New creates the storage handler for a layout class.
func New(b Backend, p Params) (Storage, error) {
	if p.ElemSize <= 0 {
		return nil, h5err.New(h5err.InvalidConfig, "element size must be positive, got %d", p.ElemSize)
	}
	switch p.Class {
	case Compact:
		return NewCompact(p.Dims, p.ElemSize), nil
	case Contiguous:
		return NewContiguous(b, p.Dims, p.ElemSize)
	case Chunked:
		return NewChunked(b, p.Dims, p.ElemSize, p.ChunkDims, p.Filters)
	default:
		return nil, fmt.Errorf("unsupported layout class: %d", p.Class)
	}
}

func checkSpace(s *space.Space, elemSize int, packed []byte) error {
	if packed == nil {
		return nil
	}
	if need := s.NumSelected() * uint64(elemSize); uint64(len(packed)) < need {
		return h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"%d bytes given for a selection of %d bytes", len(packed), need), uint64(len(packed)), need)
	}
	return nil
}

func fixedExtent(class Class, oldDims, newDims []uint64) error {
	if space.Equal(oldDims, newDims) {
		return nil
	}
	return h5err.New(h5err.ResizeNotSupported,
		"cannot change extent %s to %s: layout is %s, only chunked datasets can be resized",
		space.Format(oldDims), space.Format(newDims), class)
}
