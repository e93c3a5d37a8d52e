package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// ContiguousStore holds contiguous storage.
// Data is stored in a single block in the backend.
type ContiguousStore struct {
	b        Backend
	address  uint64
	size     uint64
	elemSize int
}

// NewContiguous allocates a zeroed block for dims.
func NewContiguous(b Backend, dims []uint64, elemSize int) (*ContiguousStore, error) {
	c := &ContiguousStore{b: b, size: space.Size(dims) * uint64(elemSize), elemSize: elemSize}
	if c.size == 0 {
		return c, nil
	}
	addr, err := b.Alloc(c.size)
	if err != nil {
		return nil, fmt.Errorf("allocating contiguous data: %w", err)
	}
	c.address = addr
	if _, err := b.WriteAt(make([]byte, c.size), int64(addr)); err != nil {
		return nil, fmt.Errorf("clearing contiguous data: %w", err)
	}
	return c, nil
}

func (c *ContiguousStore) Class() Class {
	return Contiguous
}

// Read reads the selected runs directly from the backend.
func (c *ContiguousStore) Read(s *space.Space) ([]byte, error) {
	es := uint64(c.elemSize)
	out := make([]byte, s.NumSelected()*es)
	strides := space.RowMajorStrides(s.Dims)
	var pos uint64
	err := s.WalkRuns(func(coord []uint64, n uint64) error {
		off := c.address + space.Linear(coord, strides)*es
		if _, err := c.b.ReadAt(out[pos:pos+n*es], int64(off)); err != nil {
			return fmt.Errorf("reading contiguous data: %w", err)
		}
		pos += n * es
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ContiguousStore) Write(s *space.Space, packed []byte) error {
	if err := checkSpace(s, c.elemSize, packed); err != nil {
		return err
	}
	es := uint64(c.elemSize)
	strides := space.RowMajorStrides(s.Dims)
	var pos uint64
	return s.WalkRuns(func(coord []uint64, n uint64) error {
		off := c.address + space.Linear(coord, strides)*es
		if _, err := c.b.WriteAt(packed[pos:pos+n*es], int64(off)); err != nil {
			return fmt.Errorf("writing contiguous data: %w", err)
		}
		pos += n * es
		return nil
	})
}

func (c *ContiguousStore) Extend(oldDims, newDims []uint64) error {
	return fixedExtent(Contiguous, oldDims, newDims)
}

// Address returns the data address.
func (c *ContiguousStore) Address() uint64 {
	return c.address
}

// StoredBytes returns the data size in bytes.
func (c *ContiguousStore) StoredBytes() uint64 {
	return c.size
}

func (c *ContiguousStore) Release() {
	if c.size > 0 {
		c.b.Free(c.address, c.size)
	}
	c.size = 0
}
