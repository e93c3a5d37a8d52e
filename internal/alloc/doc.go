// Package alloc manages addresses inside a byte arena.
//
// Raw data, chunks and heap collections are placed at arena offsets. This
// package hands out those offsets so that blocks never overlap, and takes
// them back when a dataset shrinks or is removed.
//
// # Allocator
//
// The [Allocator] type provides thread-safe space management:
//
//   - First-fit reuse: a request is served from the first freed block that
//     can hold it; the arena only grows when none can.
//   - Coalescing: neighbouring free blocks merge, and a free block that ends
//     at the end of the arena shrinks the arena instead.
//   - Aligned allocation: the padding skipped to reach an aligned address
//     becomes a free block.
//   - Allocation tracking: live allocations are recorded with an optional
//     tag, and [Allocator.Validate] checks that nothing overlaps.
//
// # Usage
//
//	a := alloc.New(0)
//	addr := a.AllocTagged(1024, "chunk")
//	err := a.Free(addr, 1024)
package alloc
