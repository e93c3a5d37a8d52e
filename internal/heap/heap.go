package heap

import (
	"fmt"
	"io"
	"math"

	"github.com/NVIDIA/cstruct"
)

// Backend is the arena collections are allocated in.
type Backend interface {
	io.ReaderAt
	io.WriterAt
	Alloc(size uint64) (uint64, error)
	Free(addr, size uint64)
}

// Ref is the stored form of one variable-length string: its byte length and
// the heap object holding it.
type Ref struct {
	Length     uint32
	Collection uint64
	Index      uint32
}

// IsZero reports whether r refers to no object.
func (r Ref) IsZero() bool {
	return r.Collection == 0
}

// RefSize is the packed size of a Ref.
const RefSize = 16

// EncodeRefs packs refs back to back.
func EncodeRefs(refs []Ref) ([]byte, error) {
	out := make([]byte, 0, len(refs)*RefSize)
	for _, r := range refs {
		b, err := cstruct.Pack(r, cstruct.LittleEndian)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// DecodeRefs unpacks refs written by EncodeRefs.
func DecodeRefs(data []byte) ([]Ref, error) {
	if len(data)%RefSize != 0 {
		return nil, fmt.Errorf("variable-length data of %d bytes is not a multiple of %d", len(data), RefSize)
	}
	refs := make([]Ref, len(data)/RefSize)
	for i := range refs {
		if _, err := cstruct.Unpack(data[i*RefSize:(i+1)*RefSize], &refs[i], cstruct.LittleEndian); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

type collection struct {
	size uint64
	live int
}

// Heap tracks the collections written to a backend. A collection is freed
// once every ref into it has been released.
//
// Heap is not safe for concurrent use; the owner serializes access.
type Heap struct {
	b           Backend
	collections map[uint64]*collection
}

// New returns an empty heap over b.
func New(b Backend) *Heap {
	return &Heap{b: b, collections: make(map[uint64]*collection)}
}

// Put writes strs and returns one ref per string. Empty strings get the
// zero ref. Strings are grouped into as few collections as object indices
// allow.
func (h *Heap) Put(strs []string) ([]Ref, error) {
	refs := make([]Ref, len(strs))
	var objects [][]byte
	var owners []int
	flush := func() error {
		if len(objects) == 0 {
			return nil
		}
		addr, err := h.write(objects)
		if err != nil {
			return err
		}
		for i, owner := range owners {
			refs[owner] = Ref{Length: uint32(len(objects[i])), Collection: addr, Index: uint32(i + 1)}
		}
		objects, owners = objects[:0], owners[:0]
		return nil
	}

	for i, s := range strs {
		if s == "" {
			continue
		}
		if uint64(len(s)) > math.MaxUint32 {
			return nil, fmt.Errorf("string %d is too long for a heap object (%d bytes)", i, len(s))
		}
		objects = append(objects, []byte(s))
		owners = append(owners, i)
		if len(objects) == math.MaxUint16 {
			if err := flush(); err != nil {
				h.Release(refs)
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		h.Release(refs)
		return nil, err
	}
	return refs, nil
}

func (h *Heap) write(objects [][]byte) (uint64, error) {
	buf, err := encodeCollection(objects)
	if err != nil {
		return 0, err
	}
	addr, err := h.b.Alloc(uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	if _, err := h.b.WriteAt(buf, int64(addr)); err != nil {
		h.b.Free(addr, uint64(len(buf)))
		return 0, fmt.Errorf("writing global heap: %w", err)
	}
	h.collections[addr] = &collection{size: uint64(len(buf)), live: len(objects)}
	return addr, nil
}

// Get resolves refs to strings. Each collection is read once per call.
func (h *Heap) Get(refs []Ref) ([]string, error) {
	out := make([]string, len(refs))
	cache := make(map[uint64]map[uint32][]byte)
	for i, r := range refs {
		if r.IsZero() {
			continue
		}
		objects, ok := cache[r.Collection]
		if !ok {
			var err error
			objects, _, err = readCollection(h.b, r.Collection)
			if err != nil {
				return nil, err
			}
			cache[r.Collection] = objects
		}
		data, ok := objects[r.Index]
		if !ok {
			return nil, fmt.Errorf("object index %d not found in global heap at %d", r.Index, r.Collection)
		}
		if uint64(r.Length) > uint64(len(data)) {
			return nil, fmt.Errorf("heap object %d holds %d bytes, ref expects %d", r.Index, len(data), r.Length)
		}
		out[i] = string(data[:r.Length])
	}
	return out, nil
}

// Release drops refs. Collections left without live refs are freed.
func (h *Heap) Release(refs []Ref) {
	for _, r := range refs {
		if r.IsZero() {
			continue
		}
		c, ok := h.collections[r.Collection]
		if !ok {
			continue
		}
		c.live--
		if c.live <= 0 {
			h.b.Free(r.Collection, c.size)
			delete(h.collections, r.Collection)
		}
	}
}

// Collections returns the number of collections still allocated.
func (h *Heap) Collections() int {
	return len(h.collections)
}

// LiveRefs returns the number of unreleased refs across all collections.
func (h *Heap) LiveRefs() int {
	n := 0
	for _, c := range h.collections {
		n += c.live
	}
	return n
}
