// Package heap stores variable-length strings in global heap collections.
//
// A collection (signature "GCOL") is a block of the arena holding a header
// followed by numbered objects, each padded to eight bytes and ended by an
// object with index 0:
//
//	"GCOL" | version | reserved | collection size
//	index | ref count | reserved | object size | data | padding
//	...
//	0
//
// Headers are packed little-endian. Datasets with variable-length string
// elements store a [Ref] per element; the string itself lives in a
// collection. A zero Ref is the empty string and owns no heap space.
//
// Usage:
//
//	h := heap.New(backend)
//	refs, err := h.Put([]string{"alpha", "beta"})
//	strs, err := h.Get(refs)
//	h.Release(refs)
package heap
