package layout

import (
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// CompactStore holds compact storage.
// Data is kept with the object itself, outside the backend.
type CompactStore struct {
	data     []byte
	elemSize int
}

// NewCompact creates a new compact layout handler for dims.
func NewCompact(dims []uint64, elemSize int) *CompactStore {
	return &CompactStore{
		data:     make([]byte, space.Size(dims)*uint64(elemSize)),
		elemSize: elemSize,
	}
}

func (c *CompactStore) Class() Class {
	return Compact
}

// Read returns a copy of the selected elements.
func (c *CompactStore) Read(s *space.Space) ([]byte, error) {
	return space.Gather(c.data, s, c.elemSize)
}

func (c *CompactStore) Write(s *space.Space, packed []byte) error {
	if err := checkSpace(s, c.elemSize, packed); err != nil {
		return err
	}
	return space.Scatter(c.data, s, c.elemSize, packed)
}

func (c *CompactStore) Extend(oldDims, newDims []uint64) error {
	return fixedExtent(Compact, oldDims, newDims)
}

// StoredBytes returns the size of the compact data.
func (c *CompactStore) StoredBytes() uint64 {
	return uint64(len(c.data))
}

func (c *CompactStore) Release() {
	c.data = nil
}
