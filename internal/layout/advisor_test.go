package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

func TestDecide(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		bytes uint64
		want  Class
	}{
		{0, Compact},
		{32*1024 - 1, Compact},
		{32 * 1024, Contiguous},
		{512*1024 - 1, Contiguous},
		{512 * 1024, Chunked},
		{1 << 40, Chunked},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Decide(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestDecideMonotonic(t *testing.T) {
	th := DefaultThresholds()
	prev := Compact
	for b := uint64(0); b < 2<<20; b += 1021 {
		c := th.Decide(b)
		require.GreaterOrEqual(t, c, prev, "bytes=%d", b)
		prev = c
	}
}

func TestDecideFor(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name    string
		dims    []uint64
		maxDims []uint64
		want    Class
	}{
		{"small fixed", []uint64{10}, nil, Compact},
		{"max equals dims", []uint64{10}, []uint64{10}, Compact},
		{"extendable", []uint64{10}, []uint64{20}, Chunked},
		{"unlimited", []uint64{10}, []uint64{space.Unlimited}, Chunked},
		{"medium", []uint64{100, 100}, nil, Contiguous},
		{"large", []uint64{1000, 1000}, nil, Chunked},
		{"scalar", nil, nil, Compact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.DecideFor(tt.dims, tt.maxDims, 8))
		})
	}
}

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name    string
		class   Class
		dims    []uint64
		chunk   []uint64
		maxDims []uint64
		ok      bool
	}{
		{"chunked plain", Chunked, []uint64{10}, []uint64{4}, []uint64{space.Unlimited}, true},
		{"chunk larger than dims", Chunked, []uint64{2}, []uint64{4}, nil, true},
		{"compact with chunks", Compact, []uint64{10}, []uint64{4}, nil, false},
		{"compact extendable", Compact, []uint64{10}, nil, []uint64{20}, false},
		{"contiguous with chunks", Contiguous, []uint64{10}, []uint64{4}, nil, false},
		{"contiguous fixed", Contiguous, []uint64{10}, nil, []uint64{10}, true},
		{"dims above max", Chunked, []uint64{10}, nil, []uint64{5}, false},
		{"chunk above max", Chunked, []uint64{4}, []uint64{8}, []uint64{5}, false},
		{"chunk rank", Chunked, []uint64{4, 4}, []uint64{2}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatibility(tt.class, tt.dims, tt.chunk, tt.maxDims)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, h5err.Is(err, h5err.InvalidConfig), "got %v", err)
		})
	}
}

func TestCheckCompatibilityListsEveryProblem(t *testing.T) {
	err := CheckCompatibility(Compact, []uint64{10}, []uint64{20}, []uint64{5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only meant for chunked layouts")
	assert.Contains(t, err.Error(), "must be equal unless the layout is chunked")
	assert.Contains(t, err.Error(), "dims {10}, max dims {5}")
	assert.Contains(t, err.Error(), "chunk dims {20}, max dims {5}")
}

func TestChunkDims(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name     string
		elem     uint64
		dims     []uint64
		maxDims  []uint64
		expected []uint64
	}{
		// 1000 doubles = 8000 bytes, raised to 10 KiB, rounded to 16 KiB.
		{"small 1-D", 8, []uint64{1000}, nil, []uint64{2048}},
		// 100x100 doubles = 80000 bytes, rounded to 128 KiB = 16384 doubles.
		{"square 2-D", 8, []uint64{100, 100}, nil, []uint64{128, 128}},
		// Capped at 500 KiB, rounded to 512 KiB = 131072 floats.
		{"large 2-D", 4, []uint64{5000, 5000}, nil, []uint64{363, 363}},
		{"bounded axis", 8, []uint64{3, 1000}, []uint64{3, space.Unlimited}, []uint64{3, 256}},
		{"zero extent", 8, []uint64{0}, []uint64{space.Unlimited}, []uint64{2048}},
		{"huge element", 1 << 20, []uint64{4}, nil, []uint64{1}},
		{"scalar", 8, []uint64{}, nil, []uint64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := th.ChunkDims(Chunked, tt.elem, tt.dims, tt.maxDims)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestChunkDimsBounded(t *testing.T) {
	th := DefaultThresholds()
	for rank := 1; rank <= 4; rank++ {
		for _, extent := range []uint64{1, 7, 100, 10000} {
			for _, elem := range []uint64{1, 4, 8, 24} {
				dims := make([]uint64, rank)
				for i := range dims {
					dims[i] = extent
				}
				chunk, err := th.ChunkDims(Chunked, elem, dims, nil)
				require.NoError(t, err)
				require.Len(t, chunk, rank)
				for _, c := range chunk {
					require.Equal(t, chunk[0], c)
				}
				bytes := space.Size(chunk) * elem
				assert.GreaterOrEqual(t, bytes, th.MinChunkBytes, "dims=%v elem=%d", dims, elem)
				assert.LessOrEqual(t, bytes, 2*nextPowerOfTwo(th.MaxChunkBytes), "dims=%v elem=%d", dims, elem)
			}
		}
	}
}

func TestChunkDimsNonChunked(t *testing.T) {
	th := DefaultThresholds()
	got, err := th.ChunkDims(Contiguous, 8, []uint64{10}, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = th.ChunkDims(Chunked, 8, []uint64{10}, []uint64{10, 10})
	assert.True(t, h5err.Is(err, h5err.RankMismatch))

	_, err = th.ChunkDims(Chunked, 8, []uint64{10}, []uint64{5})
	assert.True(t, h5err.Is(err, h5err.BoundsExceeded))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.MinChunkBytes = th.MaxChunkBytes + 1
	assert.True(t, h5err.Is(th.Validate(), h5err.InvalidConfig))
}

func TestParseClass(t *testing.T) {
	c, err := ParseClass("Chunked")
	require.NoError(t, err)
	assert.Equal(t, Chunked, c)
	assert.Equal(t, "contiguous", Contiguous.String())

	_, err = ParseClass("virtual")
	assert.True(t, h5err.Is(err, h5err.InvalidConfig))
}
