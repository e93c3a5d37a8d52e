package filter

import (
	"github.com/robert-malhotra/go-h5pp/internal/binary"
)

// Fletcher32Filter appends a Fletcher-32 checksum on encode and verifies it
// on decode.
type Fletcher32Filter struct{}

// NewFletcher32 creates a new Fletcher-32 filter.
func NewFletcher32(clientData []uint32) *Fletcher32Filter {
	return &Fletcher32Filter{}
}

func (f *Fletcher32Filter) ID() uint16 {
	return FilterFletcher32
}

func (f *Fletcher32Filter) Encode(input []byte) ([]byte, error) {
	return binary.AppendFletcher32(input), nil
}

func (f *Fletcher32Filter) Decode(input []byte) ([]byte, error) {
	return binary.StripFletcher32(input)
}
