// Package h5err defines the error kinds reported by go-h5pp.
//
// Errors are built on the ansel1/merry package so that every failure carries
// a stack trace captured at the point of detection together with diagnostic
// values (the object path, the given and required byte counts, the offending
// axis). The kind of an error is stored as a merry value and survives
// ordinary fmt.Errorf("...: %w") wrapping.
//
//	err := h5err.New(h5err.BufferTooSmall, "buffer holds %d bytes, selection needs %d", 8, 16)
//	err = h5err.WithPath(err, "/data")
//	if h5err.Is(err, h5err.BufferTooSmall) { ... }
package h5err

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ansel1/merry"
)

// Kind classifies an error.
type Kind int

const (
	// Unknown is reported for errors that carry no kind.
	Unknown Kind = iota
	// UnresolvableType: a value's shape or element type could not be classified.
	UnresolvableType
	// MissingDimensions: a raw buffer was given without a shape hint.
	MissingDimensions
	// RankMismatch: two sources disagree on the number of axes.
	RankMismatch
	// DimensionMismatch: two sources disagree on an axis extent.
	DimensionMismatch
	// SizeMismatch: element counts or element byte sizes disagree.
	SizeMismatch
	// InvalidSelection: a hyperslab is inconsistent, out of bounds or irregular.
	InvalidSelection
	// ResizeNotSupported: a resize was attempted on a non-chunked layout.
	ResizeNotSupported
	// BoundsExceeded: a shape or chunk shape exceeds a bounded max-shape axis.
	BoundsExceeded
	// BufferTooSmall: a caller buffer is smaller than the selected region.
	BufferTooSmall
	// UnknownField: a compound field name is not part of the record type.
	UnknownField
	// NotReady: a descriptor lacks the facts needed by an operation.
	NotReady
	// InvalidConfig: options or configuration values contradict each other.
	InvalidConfig
	// NotFound: no object exists at a path.
	NotFound
	// AlreadyExists: an object already exists at a path.
	AlreadyExists
	// Unsupported: the engine cannot perform the requested conversion or filter.
	Unsupported
)

var kindNames = map[Kind]string{
	Unknown:            "Unknown",
	UnresolvableType:   "UnresolvableType",
	MissingDimensions:  "MissingDimensions",
	RankMismatch:       "RankMismatch",
	DimensionMismatch:  "DimensionMismatch",
	SizeMismatch:       "SizeMismatch",
	InvalidSelection:   "InvalidSelection",
	ResizeNotSupported: "ResizeNotSupported",
	BoundsExceeded:     "BoundsExceeded",
	BufferTooSmall:     "BufferTooSmall",
	UnknownField:       "UnknownField",
	NotReady:           "NotReady",
	InvalidConfig:      "InvalidConfig",
	NotFound:           "NotFound",
	AlreadyExists:      "AlreadyExists",
	Unsupported:        "Unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keys of the diagnostic values attached to errors.
const (
	KeyKind     = "kind"
	KeyPath     = "path"
	KeyGiven    = "given"
	KeyRequired = "required"
	KeyAxis     = "axis"
)

// New creates an error of the given kind using the format string and arguments.
func New(kind Kind, format string, a ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, a...), 1).WithValue(KeyKind, kind)
}

// Wrap attaches a kind to an existing error. A nil error stays nil.
func Wrap(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return merry.WrapSkipping(err, 1).WithValue(KeyKind, kind)
}

// WithPath records the object path or name the error refers to, and
// prefixes the message with it unless the message already names it.
// The first path recorded wins, so inner layers keep the most specific one.
func WithPath(err error, path string) error {
	if err == nil || path == "" {
		return err
	}
	if _, ok := value(err, KeyPath).(string); ok {
		return err
	}
	err = merry.WithValue(err, KeyPath, path)
	if !strings.Contains(err.Error(), path) {
		err = merry.Prepend(err, path)
	}
	return err
}

// WithSizes records a given-versus-required comparison (usually bytes).
func WithSizes(err error, given, required uint64) error {
	if err == nil {
		return nil
	}
	return merry.WithValue(merry.WithValue(err, KeyGiven, given), KeyRequired, required)
}

// WithAxis records the offending axis.
func WithAxis(err error, axis int) error {
	if err == nil {
		return nil
	}
	return merry.WithValue(err, KeyAxis, axis)
}

// value looks a key up on err and every error it wraps.
func value(err error, key string) interface{} {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if v := merry.Value(e, key); v != nil {
			return v
		}
	}
	return nil
}

// KindOf extracts the kind of err, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	if k, ok := value(err, KeyKind).(Kind); ok {
		return k
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Path returns the path recorded on err, if any.
func Path(err error) string {
	p, _ := value(err, KeyPath).(string)
	return p
}

// Sizes returns the given/required comparison recorded on err.
func Sizes(err error) (given, required uint64, ok bool) {
	given, ok1 := value(err, KeyGiven).(uint64)
	required, ok2 := value(err, KeyRequired).(uint64)
	return given, required, ok1 && ok2
}

// Axis returns the axis recorded on err, or -1.
func Axis(err error) int {
	if a, ok := value(err, KeyAxis).(int); ok {
		return a
	}
	return -1
}

// Details formats the error with its diagnostic values appended.
func Details(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if k := KindOf(err); k != Unknown {
		s = fmt.Sprintf("%s [%s]", s, k)
	}
	if p := Path(err); p != "" {
		s = fmt.Sprintf("%s path=%s", s, p)
	}
	if given, required, ok := Sizes(err); ok {
		s = fmt.Sprintf("%s given=%d required=%d", s, given, required)
	}
	if a := Axis(err); a >= 0 {
		s = fmt.Sprintf("%s axis=%d", s, a)
	}
	return s
}
