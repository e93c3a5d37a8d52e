package layout

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Class is a storage layout class. The values match HDF5's layout classes.
type Class uint8

const (
	Compact    Class = 0 // Raw data stored with the object header
	Contiguous Class = 1 // Raw data stored in one block
	Chunked    Class = 2 // Raw data split into indexed, filtered chunks
)

func (c Class) String() string {
	switch c {
	case Compact:
		return "compact"
	case Contiguous:
		return "contiguous"
	case Chunked:
		return "chunked"
	default:
		return fmt.Sprintf("layout(%d)", uint8(c))
	}
}

// ParseClass parses a layout class name.
func ParseClass(name string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "compact":
		return Compact, nil
	case "contiguous":
		return Contiguous, nil
	case "chunked":
		return Chunked, nil
	}
	return 0, h5err.New(h5err.InvalidConfig, "unknown layout %q", name)
}

// Thresholds drive the layout and chunk-size decisions. All values are
// bytes.
type Thresholds struct {
	MaxCompactBytes    uint64 `json:"maxCompactBytes"`
	MaxContiguousBytes uint64 `json:"maxContiguousBytes"`
	MinChunkBytes      uint64 `json:"minChunkBytes"`
	MaxChunkBytes      uint64 `json:"maxChunkBytes"`
}

// DefaultThresholds returns the h5pp defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxCompactBytes:    32 * 1024,
		MaxContiguousBytes: 512 * 1024,
		MinChunkBytes:      10 * 1024,
		MaxChunkBytes:      500 * 1024,
	}
}

// Validate checks that the thresholds are ordered.
func (t Thresholds) Validate() error {
	var problems []string
	if t.MaxCompactBytes > t.MaxContiguousBytes {
		problems = append(problems, fmt.Sprintf("max compact bytes %d exceed max contiguous bytes %d",
			t.MaxCompactBytes, t.MaxContiguousBytes))
	}
	if t.MinChunkBytes == 0 {
		problems = append(problems, "min chunk bytes must be positive")
	}
	if t.MinChunkBytes > t.MaxChunkBytes {
		problems = append(problems, fmt.Sprintf("min chunk bytes %d exceed max chunk bytes %d",
			t.MinChunkBytes, t.MaxChunkBytes))
	}
	if len(problems) > 0 {
		return h5err.New(h5err.InvalidConfig, "invalid layout thresholds: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Decide picks a layout from a total byte count. Larger volumes never get a
// smaller layout class.
func (t Thresholds) Decide(bytes uint64) Class {
	switch {
	case bytes < t.MaxCompactBytes:
		return Compact
	case bytes < t.MaxContiguousBytes:
		return Contiguous
	default:
		return Chunked
	}
}

// DecideFor picks a layout for a dataset shape. A dataset that may change
// shape is always chunked; otherwise the decision uses the byte volume of
// the max shape when given, else of the shape.
func (t Thresholds) DecideFor(dims, maxDims []uint64, elemBytes uint64) Class {
	if maxDims != nil {
		if !space.Equal(dims, maxDims) || space.HasUnlimited(maxDims) {
			return Chunked
		}
		return t.Decide(saturatingVolume(maxDims, elemBytes))
	}
	return t.Decide(saturatingVolume(dims, elemBytes))
}

func saturatingVolume(dims []uint64, elemBytes uint64) uint64 {
	v := elemBytes
	for _, d := range dims {
		if d != 0 && v > ^uint64(0)/d {
			return ^uint64(0)
		}
		v *= d
	}
	return v
}

// CheckCompatibility reports every conflict between a layout, a shape, chunk
// dims and a max shape in a single InvalidConfig error. nil slices are
// treated as unspecified.
func CheckCompatibility(class Class, dims, chunkDims, maxDims []uint64) error {
	var problems []string
	add := func(format string, a ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	switch class {
	case Compact, Contiguous:
		if chunkDims != nil {
			add("chunk dims %s are only meant for chunked layouts, layout is %s", space.Format(chunkDims), class)
		}
		if maxDims != nil && dims != nil && !space.Equal(dims, maxDims) {
			add("dims %s and max dims %s must be equal unless the layout is chunked, layout is %s",
				space.Format(dims), space.Format(maxDims), class)
		}
	}

	if dims != nil && maxDims != nil {
		if msg := compareShapes(dims, maxDims, true); msg != "" {
			add("%s: dims %s, max dims %s", msg, space.Format(dims), space.Format(maxDims))
		}
	}
	if dims != nil && chunkDims != nil {
		if msg := compareShapes(dims, chunkDims, false); msg != "" {
			add("%s: dims %s, chunk dims %s", msg, space.Format(dims), space.Format(chunkDims))
		}
	}
	if chunkDims != nil && maxDims != nil {
		if msg := compareShapes(chunkDims, maxDims, true); msg != "" {
			add("%s: chunk dims %s, max dims %s", msg, space.Format(chunkDims), space.Format(maxDims))
		}
	}
	for i, c := range chunkDims {
		if c == 0 {
			add("chunk dims %s have a zero extent on axis %d", space.Format(chunkDims), i)
			break
		}
	}

	if len(problems) > 0 {
		return h5err.New(h5err.InvalidConfig, "incompatible layout settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// compareShapes reports a rank mismatch and, when enforced, an axis of small
// larger than the matching axis of large.
func compareShapes(small, large []uint64, enforce bool) string {
	if len(small) != len(large) {
		return "rank mismatch"
	}
	if !enforce {
		return ""
	}
	for i := range small {
		if small[i] > large[i] {
			return "dimensions incompatible"
		}
	}
	return ""
}
