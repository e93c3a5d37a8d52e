package filter

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Pipeline is an ordered list of filters applied to chunk data.
type Pipeline struct {
	infos   []Info
	filters []Filter
}

// NewPipeline creates a filter pipeline from its stage descriptions.
func NewPipeline(infos []Info) (*Pipeline, error) {
	if len(infos) > 32 {
		return nil, h5err.New(h5err.InvalidConfig, "a pipeline holds at most 32 filters, got %d", len(infos))
	}
	p := &Pipeline{
		infos:   append([]Info(nil), infos...),
		filters: make([]Filter, 0, len(infos)),
	}
	for _, info := range infos {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Encode applies the filters in order. An optional filter that fails is
// skipped and its bit is set in the returned mask (bit i = filter i skipped).
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32
	for i, f := range p.filters {
		out, err := f.Encode(data)
		if err != nil {
			if p.infos[i].Optional {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("filter %s encode: %w", Name(f.ID()), err)
		}
		data = out
	}
	return data, mask, nil
}

// Decode applies the filter pipeline to encoded data.
// The filterMask specifies which filters to skip (bit i = skip filter i).
// Filters are applied in reverse order (last filter first).
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s decode: %w", Name(p.filters[i].ID()), err)
		}
	}
	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}

// Infos returns a copy of the stage descriptions.
func (p *Pipeline) Infos() []Info {
	return append([]Info(nil), p.infos...)
}

func (p *Pipeline) String() string {
	if p.Empty() {
		return "none"
	}
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = Name(f.ID())
	}
	return strings.Join(names, " > ")
}

// Codec names a compression filter.
type Codec string

const (
	CodecNone    Codec = ""
	CodecDeflate Codec = "deflate"
	CodecZstd    Codec = "zstd"
	CodecLZ4     Codec = "lz4"
	CodecS2      Codec = "s2"
)

var codecIDs = map[Codec]uint16{
	CodecDeflate: FilterDeflate,
	CodecZstd:    FilterZstd,
	CodecLZ4:     FilterLZ4,
	CodecS2:      FilterS2,
}

// ParseCodec parses a codec name. "none" and "" both mean no compression.
func ParseCodec(name string) (Codec, error) {
	c := Codec(strings.ToLower(strings.TrimSpace(name)))
	if c == "none" || c == CodecNone {
		return CodecNone, nil
	}
	if _, ok := codecIDs[c]; !ok {
		return CodecNone, h5err.New(h5err.InvalidConfig, "unknown compression codec %q", name)
	}
	return c, nil
}

// Plan builds the stage list for chunked data: shuffle, then compression,
// then the checksum. Compression is only added for a level above zero;
// shuffle is only added when something compresses after it.
func Plan(codec Codec, level uint, shuffle, fletcher32 bool, elemSize uint64) ([]Info, error) {
	var infos []Info
	if level > 0 {
		if codec == CodecNone {
			codec = CodecDeflate
		}
		id, ok := codecIDs[codec]
		if !ok {
			return nil, h5err.New(h5err.InvalidConfig, "unknown compression codec %q", string(codec))
		}
		if codec == CodecDeflate && level > 9 {
			return nil, h5err.New(h5err.InvalidConfig, "deflate level %d is out of range 0-9", level)
		}
		if shuffle && elemSize > 1 {
			infos = append(infos, Info{ID: FilterShuffle, ClientData: []uint32{uint32(elemSize)}})
		}
		infos = append(infos, Info{ID: id, Optional: true, ClientData: []uint32{uint32(level)}})
	}
	if fletcher32 {
		infos = append(infos, Info{ID: FilterFletcher32})
	}
	return infos, nil
}
