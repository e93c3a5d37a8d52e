// Package filter implements the chunk filter pipeline.
//
// Filters are applied to chunk data in order when writing and in reverse
// order when reading. Each filter transforms data between its decoded and
// encoded forms.
package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Filter identifiers. The first three are the HDF5 standard filters; zstd and
// lz4 use their registered third-party IDs and s2 uses an ID from the range
// HDF5 leaves for private use.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterS2         uint16 = 257
	FilterLZ4        uint16 = 32004
	FilterZstd       uint16 = 32015
)

// Filter is the interface implemented by all filters.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// Encode transforms decoded data to encoded form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms encoded data to decoded form.
	Decode(input []byte) ([]byte, error)
}

// Info describes one stage of a pipeline.
type Info struct {
	ID         uint16
	Optional   bool // A failing optional filter is skipped and flagged in the chunk mask
	ClientData []uint32
}

// Registry maps filter IDs to filter constructors.
var Registry = map[uint16]func([]uint32) Filter{
	FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
	FilterZstd:       func(cd []uint32) Filter { return NewZstd(cd) },
	FilterLZ4:        func(cd []uint32) Filter { return NewLZ4(cd) },
	FilterS2:         func(cd []uint32) Filter { return NewS2(cd) },
}

var filterNames = map[uint16]string{
	FilterDeflate:    "deflate",
	FilterShuffle:    "shuffle",
	FilterFletcher32: "fletcher32",
	FilterZstd:       "zstd",
	FilterLZ4:        "lz4",
	FilterS2:         "s2",
}

// Name returns a readable filter name.
func Name(id uint16) string {
	if name, ok := filterNames[id]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", id)
}

// New creates a filter from an Info.
func New(info Info) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		return nil, h5err.New(h5err.Unsupported, "unsupported filter ID: %d", info.ID)
	}
	return constructor(info.ClientData), nil
}
