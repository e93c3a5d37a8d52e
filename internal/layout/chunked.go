package layout

import (
	"fmt"

	"github.com/google/btree"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// chunkEntry locates one stored chunk. Entries are ordered by the
// lexicographic order of their chunk origin.
type chunkEntry struct {
	origin []uint64 // Coordinate of the chunk's first element
	addr   uint64
	size   uint64 // Encoded size in bytes
	mask   uint32 // Filters skipped when the chunk was encoded
}

func (e *chunkEntry) Less(than btree.Item) bool {
	o := than.(*chunkEntry).origin
	for i := range e.origin {
		if e.origin[i] != o[i] {
			return e.origin[i] < o[i]
		}
	}
	return false
}

// ChunkedStore holds chunked storage. Chunks always hold the full
// chunk extent, including the parts of edge chunks outside the dataset,
// and chunks that were never written read as zeros.
type ChunkedStore struct {
	b          Backend
	chunkDims  []uint64
	elemSize   int
	chunkBytes uint64
	strides    []uint64
	pipeline   *filter.Pipeline
	index      *btree.BTree
	stored     uint64
}

// NewChunked creates a new chunked layout handler.
func NewChunked(b Backend, dims []uint64, elemSize int, chunkDims []uint64, filters []filter.Info) (*ChunkedStore, error) {
	if len(dims) == 0 {
		return nil, h5err.New(h5err.InvalidConfig, "scalar datasets cannot be chunked")
	}
	if err := CheckCompatibility(Chunked, dims, chunkDims, nil); err != nil {
		return nil, err
	}
	pipeline, err := filter.NewPipeline(filters)
	if err != nil {
		return nil, fmt.Errorf("creating filter pipeline: %w", err)
	}
	return &ChunkedStore{
		b:          b,
		chunkDims:  space.Clone(chunkDims),
		elemSize:   elemSize,
		chunkBytes: space.Size(chunkDims) * uint64(elemSize),
		strides:    space.RowMajorStrides(chunkDims),
		pipeline:   pipeline,
		index:      btree.New(8),
	}, nil
}

func (c *ChunkedStore) Class() Class {
	return Chunked
}

// ChunkDims returns the chunk extent.
func (c *ChunkedStore) ChunkDims() []uint64 {
	return space.Clone(c.chunkDims)
}

// Pipeline returns the filter pipeline applied to every chunk.
func (c *ChunkedStore) Pipeline() *filter.Pipeline {
	return c.pipeline
}

// NumChunks returns the number of stored chunks.
func (c *ChunkedStore) NumChunks() int {
	return c.index.Len()
}

// StoredBytes returns the encoded size of all stored chunks.
func (c *ChunkedStore) StoredBytes() uint64 {
	return c.stored
}

// chunkSet holds the decoded chunks touched by one operation.
type chunkSet struct {
	c      *ChunkedStore
	chunks map[string]*chunkBuf
	order  []*chunkBuf
}

type chunkBuf struct {
	origin []uint64
	data   []byte
	dirty  bool
}

func (c *ChunkedStore) newSet() *chunkSet {
	return &chunkSet{c: c, chunks: make(map[string]*chunkBuf)}
}

// get returns the decoded chunk with the given origin, loading it on first
// use.
func (cs *chunkSet) get(origin []uint64) (*chunkBuf, error) {
	key := space.Format(origin)
	if cb, ok := cs.chunks[key]; ok {
		return cb, nil
	}
	data, err := cs.c.load(origin)
	if err != nil {
		return nil, err
	}
	cb := &chunkBuf{origin: space.Clone(origin), data: data}
	cs.chunks[key] = cb
	cs.order = append(cs.order, cb)
	return cb, nil
}

func (c *ChunkedStore) load(origin []uint64) ([]byte, error) {
	item := c.index.Get(&chunkEntry{origin: origin})
	if item == nil {
		return make([]byte, c.chunkBytes), nil
	}
	entry := item.(*chunkEntry)
	raw := make([]byte, entry.size)
	if _, err := c.b.ReadAt(raw, int64(entry.addr)); err != nil {
		return nil, fmt.Errorf("reading chunk at offset %s: %w", space.Format(origin), err)
	}
	data, err := c.pipeline.Decode(raw, entry.mask)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk at offset %s: %w", space.Format(origin), err)
	}
	if uint64(len(data)) != c.chunkBytes {
		return nil, fmt.Errorf("chunk at offset %s decoded to %d bytes, expected %d",
			space.Format(origin), len(data), c.chunkBytes)
	}
	return data, nil
}

func (c *ChunkedStore) store(cb *chunkBuf) error {
	encoded, mask, err := c.pipeline.Encode(cb.data)
	if err != nil {
		return fmt.Errorf("encoding chunk at offset %s: %w", space.Format(cb.origin), err)
	}
	addr, err := c.b.Alloc(uint64(len(encoded)))
	if err != nil {
		return fmt.Errorf("allocating chunk at offset %s: %w", space.Format(cb.origin), err)
	}
	if _, err := c.b.WriteAt(encoded, int64(addr)); err != nil {
		return fmt.Errorf("writing chunk at offset %s: %w", space.Format(cb.origin), err)
	}
	entry := &chunkEntry{origin: cb.origin, addr: addr, size: uint64(len(encoded)), mask: mask}
	if old := c.index.ReplaceOrInsert(entry); old != nil {
		c.drop(old.(*chunkEntry))
	}
	c.stored += entry.size
	return nil
}

func (c *ChunkedStore) drop(e *chunkEntry) {
	c.b.Free(e.addr, e.size)
	c.stored -= e.size
}

// walk splits every selected run at chunk boundaries along the last axis
// and calls fn with the chunk, the byte offset inside it and the run length
// in elements.
func (c *ChunkedStore) walk(s *space.Space, cs *chunkSet, fn func(cb *chunkBuf, off, n uint64) error) error {
	last := s.Rank() - 1
	origin := make([]uint64, s.Rank())
	local := make([]uint64, s.Rank())
	es := uint64(c.elemSize)
	return s.WalkRuns(func(coord []uint64, n uint64) error {
		at := coord[last]
		for n > 0 {
			for i, x := range coord {
				if i == last {
					x = at
				}
				origin[i] = x / c.chunkDims[i] * c.chunkDims[i]
				local[i] = x - origin[i]
			}
			seg := min(n, c.chunkDims[last]-local[last])
			cb, err := cs.get(origin)
			if err != nil {
				return err
			}
			if err := fn(cb, space.Linear(local, c.strides)*es, seg); err != nil {
				return err
			}
			at += seg
			n -= seg
		}
		return nil
	})
}

// Read decodes the chunks overlapping the selection, each once.
func (c *ChunkedStore) Read(s *space.Space) ([]byte, error) {
	es := uint64(c.elemSize)
	out := make([]byte, s.NumSelected()*es)
	var pos uint64
	err := c.walk(s, c.newSet(), func(cb *chunkBuf, off, n uint64) error {
		pos += uint64(copy(out[pos:pos+n*es], cb.data[off:off+n*es]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write updates the chunks overlapping the selection and stores each
// touched chunk once.
func (c *ChunkedStore) Write(s *space.Space, packed []byte) error {
	if err := checkSpace(s, c.elemSize, packed); err != nil {
		return err
	}
	es := uint64(c.elemSize)
	cs := c.newSet()
	var pos uint64
	err := c.walk(s, cs, func(cb *chunkBuf, off, n uint64) error {
		pos += uint64(copy(cb.data[off:off+n*es], packed[pos:pos+n*es]))
		cb.dirty = true
		return nil
	})
	if err != nil {
		return err
	}
	for _, cb := range cs.order {
		if !cb.dirty {
			continue
		}
		if err := c.store(cb); err != nil {
			return err
		}
	}
	return nil
}

// Extend drops the chunks that lie wholly outside newDims. Chunks cut by a
// shrinking axis have their outside part cleared, so growing back later
// reads zeros there.
func (c *ChunkedStore) Extend(oldDims, newDims []uint64) error {
	if len(newDims) != len(c.chunkDims) {
		return h5err.New(h5err.RankMismatch,
			"new dimensions %s do not match chunk rank %d", space.Format(newDims), len(c.chunkDims))
	}
	var outside, cut []*chunkEntry
	c.index.Ascend(func(i btree.Item) bool {
		e := i.(*chunkEntry)
		for d, o := range e.origin {
			if o >= newDims[d] {
				outside = append(outside, e)
				return true
			}
		}
		for d, o := range e.origin {
			if o+c.chunkDims[d] > newDims[d] && d < len(oldDims) && newDims[d] < oldDims[d] {
				cut = append(cut, e)
				break
			}
		}
		return true
	})

	for _, e := range outside {
		c.index.Delete(e)
		c.drop(e)
	}
	for _, e := range cut {
		if err := c.clearOutside(e, newDims); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChunkedStore) clearOutside(e *chunkEntry, newDims []uint64) error {
	old, err := c.load(e.origin)
	if err != nil {
		return err
	}
	keep := make([]uint64, len(c.chunkDims))
	for d := range keep {
		keep[d] = min(c.chunkDims[d], newDims[d]-e.origin[d])
	}
	inner, err := space.NewSimple(c.chunkDims, nil)
	if err != nil {
		return err
	}
	if err := inner.Select(space.Hyperslab{Offset: make([]uint64, len(keep)), Extent: keep}); err != nil {
		return err
	}
	packed, err := space.Gather(old, inner, c.elemSize)
	if err != nil {
		return err
	}
	cb := &chunkBuf{origin: e.origin, data: make([]byte, c.chunkBytes)}
	if err := space.Scatter(cb.data, inner, c.elemSize, packed); err != nil {
		return err
	}
	return c.store(cb)
}

// Release frees every stored chunk.
func (c *ChunkedStore) Release() {
	c.index.Ascend(func(i btree.Item) bool {
		e := i.(*chunkEntry)
		c.b.Free(e.addr, e.size)
		return true
	})
	c.index = btree.New(8)
	c.stored = 0
}
