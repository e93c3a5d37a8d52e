// Package meta builds the descriptors that drive an operation.
//
// A builder collects facts from up to three sources: the existing object,
// the value being written and the caller's options. Facts read from an
// existing object are pinned; an option that contradicts one is ignored
// and logged. Finish runs the readiness gate for one operation and returns
// an immutable descriptor or a single NotReady error listing every missing
// and every invalid fact.
package meta

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
)

// Source records where a fact came from.
type Source uint8

const (
	Unset        Source = iota
	FromExisting        // Read back from the engine
	FromValue           // Derived from the value
	FromOptions         // Given by the caller
	FromDefaults        // Decided by configuration or inference
)

var sourceNames = [...]string{"unset", "existing", "value", "options", "defaults"}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// Fact is an optional value with its source.
type Fact[T any] struct {
	val T
	src Source
}

// Get returns the value and whether it is set.
func (f Fact[T]) Get() (T, bool) {
	return f.val, f.src != Unset
}

// Value returns the value, or the zero value when unset.
func (f Fact[T]) Value() T {
	return f.val
}

// Source returns where the value came from.
func (f Fact[T]) Source() Source {
	return f.src
}

// IsSet reports whether a value is present.
func (f Fact[T]) IsSet() bool {
	return f.src != Unset
}

// Set stores v unconditionally.
func (f *Fact[T]) Set(v T, src Source) {
	f.val, f.src = v, src
}

// offer fills an unset fact. An option contradicting a pinned existing
// value is logged at warn level and dropped.
func offer[T any](log *logger.Logger, name string, f *Fact[T], v T, src Source, same func(a, b T) bool) {
	if f.src == Unset {
		f.Set(v, src)
		return
	}
	if f.src == FromExisting && src == FromOptions && !same(f.val, v) {
		log.WithField("fact", name).Warnf("ignoring %s %v from options: the existing object has %v", name, v, f.val)
	}
}

// gate collects the readiness failures of one Finish call.
type gate struct {
	what    string
	op      Op
	missing []string
	invalid []string
}

func (g *gate) need(name string, ok bool) {
	if !ok {
		g.missing = append(g.missing, name)
	}
}

func (g *gate) check(name string, err error) {
	if err != nil {
		g.invalid = append(g.invalid, fmt.Sprintf("%s (%v)", name, err))
	}
}

func (g *gate) fail(name, format string, a ...interface{}) {
	g.invalid = append(g.invalid, fmt.Sprintf("%s (%s)", name, fmt.Sprintf(format, a...)))
}

func (g *gate) err(path string) error {
	if len(g.missing) == 0 && len(g.invalid) == 0 {
		return nil
	}
	var parts []string
	if len(g.missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(g.missing, ", "))
	}
	if len(g.invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(g.invalid, "; "))
	}
	return h5err.WithPath(h5err.New(h5err.NotReady,
		"%s %s is not ready for %s | %s", g.what, path, g.op, strings.Join(parts, " | ")), path)
}

// Op is the operation a descriptor is finished for.
type Op uint8

const (
	OpCreate Op = iota
	OpResize
	OpWrite
	OpRead
)

var opNames = [...]string{"create", "resize", "write", "read"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}
