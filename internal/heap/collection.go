package heap

import (
	"fmt"
	"io"

	"github.com/NVIDIA/cstruct"
)

var signature = [4]byte{'G', 'C', 'O', 'L'}

const version = 1

type collectionHeader struct {
	Signature [4]byte
	Version   uint8
	Reserved  [3]uint8
	Size      uint64
}

type objectHeader struct {
	Index    uint16
	RefCount uint16
	Reserved uint32
	Size     uint64
}

var (
	collectionHeaderSize uint64
	objectHeaderSize     uint64
)

func init() {
	var err error
	if collectionHeaderSize, _, err = cstruct.Examine(collectionHeader{}); err != nil {
		panic(err)
	}
	if objectHeaderSize, _, err = cstruct.Examine(objectHeader{}); err != nil {
		panic(err)
	}
}

func pad8(n uint64) uint64 {
	return (8 - n%8) % 8
}

// encodeCollection lays out objects as one collection. Object i gets index
// i+1.
func encodeCollection(objects [][]byte) ([]byte, error) {
	size := collectionHeaderSize
	for _, obj := range objects {
		n := uint64(len(obj))
		size += objectHeaderSize + n + pad8(n)
	}
	size += 2
	size += pad8(size)

	head, err := cstruct.Pack(collectionHeader{Signature: signature, Version: version, Size: size}, cstruct.LittleEndian)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, size)
	buf = append(buf, head...)
	for i, obj := range objects {
		oh, err := cstruct.Pack(objectHeader{
			Index:    uint16(i + 1),
			RefCount: 1,
			Size:     uint64(len(obj)),
		}, cstruct.LittleEndian)
		if err != nil {
			return nil, err
		}
		buf = append(buf, oh...)
		buf = append(buf, obj...)
		buf = append(buf, make([]byte, pad8(uint64(len(obj))))...)
	}
	// End marker and padding are zero.
	return buf[:size], nil
}

// readCollection reads the collection at addr and returns its objects by
// index.
func readCollection(r io.ReaderAt, addr uint64) (map[uint32][]byte, uint64, error) {
	head := make([]byte, collectionHeaderSize)
	if _, err := r.ReadAt(head, int64(addr)); err != nil {
		return nil, 0, fmt.Errorf("reading global heap at %d: %w", addr, err)
	}
	var h collectionHeader
	if _, err := cstruct.Unpack(head, &h, cstruct.LittleEndian); err != nil {
		return nil, 0, fmt.Errorf("parsing global heap at %d: %w", addr, err)
	}
	if h.Signature != signature {
		return nil, 0, fmt.Errorf("invalid global heap signature at %d: %q", addr, string(h.Signature[:]))
	}
	if h.Version != version {
		return nil, 0, fmt.Errorf("unsupported global heap version: %d", h.Version)
	}
	if h.Size < collectionHeaderSize+2 {
		return nil, 0, fmt.Errorf("global heap at %d has impossible size %d", addr, h.Size)
	}

	body := make([]byte, h.Size-collectionHeaderSize)
	if _, err := r.ReadAt(body, int64(addr+collectionHeaderSize)); err != nil {
		return nil, 0, fmt.Errorf("reading global heap at %d: %w", addr, err)
	}

	objects := make(map[uint32][]byte)
	for pos := uint64(0); pos+objectHeaderSize <= uint64(len(body)); {
		var oh objectHeader
		if _, err := cstruct.Unpack(body[pos:pos+objectHeaderSize], &oh, cstruct.LittleEndian); err != nil {
			return nil, 0, err
		}
		if oh.Index == 0 {
			break
		}
		pos += objectHeaderSize
		if pos+oh.Size > uint64(len(body)) {
			return nil, 0, fmt.Errorf("global heap object %d overruns its collection", oh.Index)
		}
		objects[uint32(oh.Index)] = body[pos : pos+oh.Size]
		pos += oh.Size + pad8(oh.Size)
	}
	return objects, h.Size, nil
}
