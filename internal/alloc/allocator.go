// Package alloc manages addresses inside a byte arena.
package alloc

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// Allocator manages space allocation within an arena. Freed blocks are
// coalesced and reused first-fit before the arena grows.
type Allocator struct {
	mu sync.Mutex

	// eofAddr is the current end of the arena (next append point)
	eofAddr uint64

	// baseAddr is the minimum address that can be allocated
	baseAddr uint64

	// live tracks the allocations not yet freed, by address
	live map[uint64]Allocation

	// freeBlocks holds freed space, sorted by address and coalesced
	freeBlocks []FreeBlock

	stats Stats
}

// Allocation represents a single allocation made.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string // Optional tag for debugging
}

// FreeBlock represents a freed block of space.
type FreeBlock struct {
	Addr uint64
	Size uint64
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64 // Number of allocations made
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes freed
	TotalBytesReused uint64 // Bytes served from freed blocks
	LargestAlloc     uint64 // Largest single allocation
	LiveBytes        uint64 // Bytes currently allocated
}

// New creates a new Allocator starting at the given base address.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
		live:     make(map[uint64]Allocation),
	}
}

// Alloc allocates a block of the given size and returns its address.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, 1, "")
}

// AllocTagged allocates a block with an optional tag for debugging.
func (a *Allocator) AllocTagged(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, 1, tag)
}

// AllocAligned allocates a block whose address is a multiple of alignment.
func (a *Allocator) AllocAligned(size, alignment uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, max(1, alignment), "")
}

func alignUp(addr, alignment uint64) uint64 {
	if r := addr % alignment; r != 0 {
		return addr + alignment - r
	}
	return addr
}

// allocLocked performs allocation while holding the lock.
func (a *Allocator) allocLocked(size, alignment uint64, tag string) uint64 {
	if size == 0 {
		return alignUp(a.eofAddr, alignment)
	}

	addr, ok := a.reuseLocked(size, alignment)
	if ok {
		a.stats.TotalBytesReused += size
	} else {
		addr = alignUp(a.eofAddr, alignment)
		if addr > a.eofAddr {
			// Alignment padding is free space for later requests.
			a.releaseLocked(a.eofAddr, addr-a.eofAddr)
		}
		a.eofAddr = addr + size
	}

	a.live[addr] = Allocation{Addr: addr, Size: size, Tag: tag}
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	a.stats.LiveBytes += size
	a.stats.LargestAlloc = max(a.stats.LargestAlloc, size)
	return addr
}

// reuseLocked carves size bytes out of the first free block that can hold
// them at the requested alignment.
func (a *Allocator) reuseLocked(size, alignment uint64) (uint64, bool) {
	for i, fb := range a.freeBlocks {
		addr := alignUp(fb.Addr, alignment)
		if addr+size > fb.Addr+fb.Size {
			continue
		}
		head := FreeBlock{Addr: fb.Addr, Size: addr - fb.Addr}
		tail := FreeBlock{Addr: addr + size, Size: fb.Addr + fb.Size - addr - size}

		rest := make([]FreeBlock, 0, 2)
		if head.Size > 0 {
			rest = append(rest, head)
		}
		if tail.Size > 0 {
			rest = append(rest, tail)
		}
		a.freeBlocks = slices.Insert(slices.Delete(a.freeBlocks, i, i+1), i, rest...)
		return addr, true
	}
	return 0, false
}

// Free returns an allocated block for reuse. Freeing an address that is
// not allocated, or with the wrong size, is an error.
func (a *Allocator) Free(addr, size uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		return nil
	}
	alloc, ok := a.live[addr]
	if !ok {
		return fmt.Errorf("free of unallocated block at 0x%x", addr)
	}
	if alloc.Size != size {
		return fmt.Errorf("free of block at 0x%x with size %d, allocated with size %d", addr, size, alloc.Size)
	}
	delete(a.live, addr)
	a.stats.TotalBytesFree += size
	a.stats.LiveBytes -= size
	a.releaseLocked(addr, size)
	return nil
}

// releaseLocked inserts a block into the free list, merging neighbours and
// giving a block that ends at EOF back to the arena.
func (a *Allocator) releaseLocked(addr, size uint64) {
	i := 0
	for i < len(a.freeBlocks) && a.freeBlocks[i].Addr < addr {
		i++
	}
	block := FreeBlock{Addr: addr, Size: size}
	lo, hi := i, i
	if i > 0 && a.freeBlocks[i-1].Addr+a.freeBlocks[i-1].Size == addr {
		lo = i - 1
		block.Addr = a.freeBlocks[lo].Addr
		block.Size += a.freeBlocks[lo].Size
	}
	if i < len(a.freeBlocks) && addr+size == a.freeBlocks[i].Addr {
		block.Size += a.freeBlocks[i].Size
		hi = i + 1
	}
	if block.Addr+block.Size == a.eofAddr {
		a.eofAddr = block.Addr
		a.freeBlocks = slices.Delete(a.freeBlocks, lo, hi)
		return
	}
	a.freeBlocks = slices.Insert(slices.Delete(a.freeBlocks, lo, hi), lo, block)
}

// EOFAddr returns the current end of the arena.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// BaseAddr returns the base address (start of allocatable space).
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Allocations returns the live allocations ordered by address.
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]Allocation, 0, len(a.live))
	for _, alloc := range a.live {
		result = append(result, alloc)
	}
	slices.SortFunc(result, func(x, y Allocation) bool { return x.Addr < y.Addr })
	return result
}

// FreeBlocks returns a copy of all free blocks.
func (a *Allocator) FreeBlocks() []FreeBlock {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.freeBlocks)
}

// Validate checks that live and free blocks don't overlap and are within
// bounds.
func (a *Allocator) Validate() error {
	type span struct {
		addr, size uint64
		what       string
	}
	var spans []span
	for _, alloc := range a.Allocations() {
		spans = append(spans, span{alloc.Addr, alloc.Size, "allocation"})
	}
	for _, fb := range a.FreeBlocks() {
		spans = append(spans, span{fb.Addr, fb.Size, "free block"})
	}
	slices.SortFunc(spans, func(x, y span) bool { return x.addr < y.addr })

	eof := a.EOFAddr()
	for i, s := range spans {
		if s.addr < a.baseAddr {
			return fmt.Errorf("%s at 0x%x is before base address 0x%x", s.what, s.addr, a.baseAddr)
		}
		if s.addr+s.size > eof {
			return fmt.Errorf("%s at 0x%x size %d extends past EOF 0x%x", s.what, s.addr, s.size, eof)
		}
		if i > 0 {
			prev := spans[i-1]
			if prev.addr+prev.size > s.addr {
				return fmt.Errorf("overlapping blocks: %s [0x%x, size %d] and %s [0x%x, size %d]",
					prev.what, prev.addr, prev.size, s.what, s.addr, s.size)
			}
		}
	}
	return nil
}

// Reset resets the allocator to its initial state.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eofAddr = a.baseAddr
	a.live = make(map[uint64]Allocation)
	a.freeBlocks = nil
	a.stats = Stats{}
}
