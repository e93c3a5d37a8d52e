package meta

import (
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Hints are the caller's options for one operation. Nil and zero values
// mean "not given".
type Hints struct {
	Type        *dtype.Datatype
	DataDims    []uint64 // Shape of the value, or of a new dataset when no value is given
	MaxDims     []uint64
	ChunkDims   []uint64
	Layout      *layout.Class
	Compression *uint // Level; 0 disables compression
	Codec       filter.Codec
	Shuffle     bool
	Fletcher32  bool
	Policy      resize.Policy
	DatasetSlab *space.Hyperslab
	DataSlab    *space.Hyperslab
	AttrSlab    *space.Hyperslab
}

// Defaults are the configuration values builders fall back on.
type Defaults struct {
	Thresholds  layout.Thresholds
	Compression uint
	Codec       filter.Codec
	Policy      resize.Policy
}

// DefaultDefaults returns the stock thresholds with compression and resize
// policy left unset.
func DefaultDefaults() Defaults {
	return Defaults{Thresholds: layout.DefaultThresholds()}
}
