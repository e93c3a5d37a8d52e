package h5pp

import (
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Datatype is an element type. Use ParseType or TypeOf to build one.
type Datatype = dtype.Datatype

// ParseType parses a type name such as "int32", "float64be" or "string[16]".
var ParseType = dtype.Parse

// Hyperslab selects a strided block region of a dataspace.
type Hyperslab = space.Hyperslab

// Unlimited marks an axis that can grow without bound.
const Unlimited = space.Unlimited

// Layout is a storage layout class.
type Layout = layout.Class

const (
	Compact    = layout.Compact
	Contiguous = layout.Contiguous
	Chunked    = layout.Chunked
)

// Thresholds drive layout and chunk-size decisions.
type Thresholds = layout.Thresholds

// Policy controls how an existing extent follows incoming data.
type Policy = resize.Policy

const (
	ResizeDefault = resize.Default
	ResizeFit     = resize.Fit
	ResizeGrow    = resize.Grow
	ResizeOff     = resize.Off
)

// ResizeDecision is the outcome of a resize plan.
type ResizeDecision = resize.Decision

// Codec is a chunk compression codec.
type Codec = filter.Codec

const (
	CodecNone    = filter.CodecNone
	CodecDeflate = filter.CodecDeflate
	CodecZstd    = filter.CodecZstd
	CodecLZ4     = filter.CodecLZ4
	CodecS2      = filter.CodecS2
)

// Descriptor is the resolved description of a dataset.
type Descriptor = meta.Dataset

// DataDescriptor is the resolved description of an in-memory value.
type DataDescriptor = meta.Data

// AttributeDescriptor is the resolved description of an attribute.
type AttributeDescriptor = meta.Attribute

// TableInfo is the resolved description of a table.
type TableInfo = meta.Table

// FieldTable lists the members of a record type.
type FieldTable = meta.FieldTable

// TableSelection picks which records a table read covers.
type TableSelection = meta.TableSelection

const (
	AllRecords   = meta.AllRecords
	FirstRecords = meta.FirstRecords
	LastRecords  = meta.LastRecords
)
