package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorBasic(t *testing.T) {
	a := New(1024)

	assert.Equal(t, uint64(1024), a.Alloc(100))
	assert.Equal(t, uint64(1124), a.Alloc(200))
	assert.Equal(t, uint64(1324), a.EOFAddr())
	assert.Equal(t, uint64(1024), a.BaseAddr())
}

func TestAllocatorZeroSize(t *testing.T) {
	a := New(100)
	assert.Equal(t, uint64(100), a.Alloc(0))
	assert.Equal(t, uint64(100), a.EOFAddr())
	assert.Empty(t, a.Allocations())
}

func TestAllocatorAligned(t *testing.T) {
	a := New(100)
	a.Alloc(13)

	addr := a.AllocAligned(50, 8)
	assert.Equal(t, uint64(120), addr)

	// The padding is reusable.
	assert.Equal(t, []FreeBlock{{Addr: 113, Size: 7}}, a.FreeBlocks())
	assert.Equal(t, uint64(113), a.Alloc(4))
	require.NoError(t, a.Validate())
}

func TestAllocatorStats(t *testing.T) {
	a := New(0)
	a.Alloc(100)
	b := a.Alloc(200)
	a.Alloc(50)
	require.NoError(t, a.Free(b, 200))
	a.Alloc(150)

	stats := a.Stats()
	assert.Equal(t, uint64(4), stats.TotalAllocations)
	assert.Equal(t, uint64(500), stats.TotalBytesAlloc)
	assert.Equal(t, uint64(200), stats.TotalBytesFree)
	assert.Equal(t, uint64(150), stats.TotalBytesReused)
	assert.Equal(t, uint64(200), stats.LargestAlloc)
	assert.Equal(t, uint64(300), stats.LiveBytes)
}

func TestAllocatorReusesFreedBlocks(t *testing.T) {
	a := New(0)
	first := a.Alloc(100)
	second := a.Alloc(100)
	a.Alloc(100)

	require.NoError(t, a.Free(first, 100))
	require.NoError(t, a.Free(second, 100))
	// Neighbouring frees coalesce.
	assert.Equal(t, []FreeBlock{{Addr: 0, Size: 200}}, a.FreeBlocks())

	assert.Equal(t, uint64(0), a.Alloc(150))
	assert.Equal(t, []FreeBlock{{Addr: 150, Size: 50}}, a.FreeBlocks())
	assert.Equal(t, uint64(300), a.Alloc(60), "too large for the hole, appended")
	assert.Equal(t, uint64(150), a.Alloc(50))
	assert.Empty(t, a.FreeBlocks())
	require.NoError(t, a.Validate())
}

func TestAllocatorFreeAtEOFShrinks(t *testing.T) {
	a := New(0)
	a.Alloc(100)
	mid := a.Alloc(50)
	last := a.Alloc(50)

	require.NoError(t, a.Free(mid, 50))
	require.NoError(t, a.Free(last, 50))
	assert.Equal(t, uint64(100), a.EOFAddr())
	assert.Empty(t, a.FreeBlocks())
}

func TestAllocatorFreeErrors(t *testing.T) {
	a := New(0)
	addr := a.Alloc(100)
	assert.Error(t, a.Free(addr+1, 100))
	assert.Error(t, a.Free(addr, 99))
	require.NoError(t, a.Free(addr, 100))
	assert.Error(t, a.Free(addr, 100), "double free")
}

func TestAllocatorValidate(t *testing.T) {
	a := New(100)
	a.Alloc(50)
	b := a.Alloc(100)
	a.Alloc(75)
	require.NoError(t, a.Free(b, 100))
	assert.NoError(t, a.Validate())
}

func TestAllocatorReset(t *testing.T) {
	a := New(1000)
	a.Alloc(100)
	a.Alloc(200)

	a.Reset()
	assert.Equal(t, uint64(1000), a.EOFAddr())
	assert.Empty(t, a.Allocations())
	assert.Equal(t, Stats{}, a.Stats())
}

func TestAllocatorTagged(t *testing.T) {
	a := New(0)
	a.AllocTagged(200, "dataset")
	a.AllocTagged(100, "heap")

	allocs := a.Allocations()
	require.Len(t, allocs, 2)
	assert.Equal(t, "dataset", allocs[0].Tag)
	assert.Equal(t, "heap", allocs[1].Tag)
	assert.Equal(t, uint64(200), allocs[1].Addr)
}
