// Package h5pp writes and reads Go values as datasets, attributes and tables
// without the caller spelling out types, shapes, layouts or chunking.
//
// Every operation resolves a descriptor first: what the value implies, what
// already exists at the path and what the options ask for. A descriptor that
// cannot be completed fails with a single NotReady error listing every
// missing and invalid fact; nothing is touched in that case.
package h5pp

import "errors"

// Common errors
var (
	ErrClosed     = errors.New("file is closed")
	ErrNotRecords = errors.New("value is not a record or record container")
)
