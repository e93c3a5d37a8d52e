// Package engine defines the storage operations the marshaling core relies
// on. Implementations own the bytes; the core only describes what to move.
//
// Every Object, Dataset and Attribute is a scoped handle: the caller that
// opens one closes it, normally with defer at the operation boundary.
package engine

import (
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// DatasetSpec describes a dataset to create.
type DatasetSpec struct {
	Type      *dtype.Datatype
	Dims      []uint64
	MaxDims   []uint64 // nil means fixed at Dims
	Layout    layout.Class
	ChunkDims []uint64      // Chunked only
	Filters   []filter.Info // Chunked only
	Policy    resize.Policy // Stored resize policy
}

// DatasetInfo is the current state of a dataset.
type DatasetInfo struct {
	Path        string
	Type        *dtype.Datatype
	Dims        []uint64
	MaxDims     []uint64
	Layout      layout.Class
	ChunkDims   []uint64
	Filters     []filter.Info
	Policy      resize.Policy
	StoredBytes uint64
}

// AttributeSpec describes an attribute to create.
type AttributeSpec struct {
	Type *dtype.Datatype
	Dims []uint64
}

// AttributeInfo is the current state of an attribute.
type AttributeInfo struct {
	Name string
	Type *dtype.Datatype
	Dims []uint64
}

// VarLen holds variable-length strings read by the engine. The strings
// stay valid after Release; the engine-side buffer does not.
type VarLen interface {
	Strings() []string
	Release()
}

// Engine creates and opens objects by path. Paths are absolute and use "/"
// separators.
type Engine interface {
	// Exists reports whether an object lives at path.
	Exists(path string) bool

	// IsDataset reports whether the object at path is a dataset.
	IsDataset(path string) bool

	// CreateDataset creates a dataset, adding missing intermediate groups.
	CreateDataset(path string, spec DatasetSpec) (Dataset, error)

	// OpenDataset opens an existing dataset.
	OpenDataset(path string) (Dataset, error)

	// OpenObject opens any existing object, group or dataset.
	OpenObject(path string) (Object, error)

	// Walk visits the objects under root in path order.
	Walk(root string, fn WalkFunc) error
}

// WalkFunc is called for each object found by Walk. Returning an error stops
// the walk.
type WalkFunc func(path string, isDataset bool) error

// Object is a handle to a group or dataset carrying attributes.
type Object interface {
	Path() string

	HasAttribute(name string) bool
	AttributeNames() []string
	CreateAttribute(name string, spec AttributeSpec) (Attribute, error)
	OpenAttribute(name string) (Attribute, error)
	DeleteAttribute(name string) error

	Close() error
}

// Transfer moves bytes between a selection and memory.
type Transfer interface {
	// Space returns the current dataspace with everything selected.
	Space() *space.Space

	// Read fills dst with the elements selected in sel, packed in row-major
	// order. dst must hold exactly the selected bytes.
	Read(sel *space.Space, dst []byte) error

	// ReadAs is Read with the elements converted to mem on the way out.
	// Compound members are matched by name, so a subset type projects the
	// stored records. dst must hold exactly the selected elements of mem.
	ReadAs(sel *space.Space, mem *dtype.Datatype, dst []byte) error

	// Write stores the packed elements of src into the selection.
	Write(sel *space.Space, src []byte) error

	// ReadStrings reads variable-length strings. The result must be
	// released.
	ReadStrings(sel *space.Space) (VarLen, error)

	// WriteStrings stores variable-length strings into the selection.
	WriteStrings(sel *space.Space, strs []string) error
}

// Dataset is a handle to an N-dimensional typed array.
type Dataset interface {
	Object
	Transfer

	Info() DatasetInfo

	// SetExtent changes the current dims within the max dims.
	SetExtent(dims []uint64) error
}

// Attribute is a handle to a small typed array attached to an object.
type Attribute interface {
	Transfer

	Info() AttributeInfo
	Close() error
}
