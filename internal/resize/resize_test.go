package resize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

func TestEffectivePolicy(t *testing.T) {
	tests := []struct {
		name      string
		requested Policy
		stored    Policy
		selection bool
		want      Policy
	}{
		{"nothing set", Default, Default, false, Fit},
		{"selection active", Default, Default, true, Grow},
		{"stored wins over selection", Default, Fit, true, Fit},
		{"requested wins", Off, Grow, true, Off},
		{"requested fit with selection", Fit, Default, true, Fit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectivePolicy(tt.requested, tt.stored, tt.selection))
		})
	}
}

func TestReconcile(t *testing.T) {
	unlimited := []uint64{space.Unlimited, space.Unlimited}
	tests := []struct {
		name    string
		in      Input
		resize  bool
		newDims []uint64
		policy  Policy
	}{
		{
			name:    "equal shapes",
			in:      Input{Existing: []uint64{4, 4}, Incoming: []uint64{4, 4}, Layout: layout.Chunked, MaxDims: unlimited},
			newDims: []uint64{4, 4},
			policy:  Fit,
		},
		{
			name:    "fit shrinks",
			in:      Input{Existing: []uint64{4, 4}, Incoming: []uint64{2, 6}, Layout: layout.Chunked, MaxDims: unlimited},
			resize:  true,
			newDims: []uint64{2, 6},
			policy:  Fit,
		},
		{
			name:    "grow takes the max",
			in:      Input{Existing: []uint64{4, 4}, Incoming: []uint64{2, 6}, Layout: layout.Chunked, MaxDims: unlimited, Requested: Grow},
			resize:  true,
			newDims: []uint64{4, 6},
			policy:  Grow,
		},
		{
			name:    "grow with nothing to grow",
			in:      Input{Existing: []uint64{4, 4}, Incoming: []uint64{2, 3}, Layout: layout.Contiguous, Requested: Grow},
			newDims: []uint64{4, 4},
			policy:  Grow,
		},
		{
			name:    "off and fitting",
			in:      Input{Existing: []uint64{4, 4}, Incoming: []uint64{2, 3}, Layout: layout.Chunked, Requested: Off},
			newDims: []uint64{4, 4},
			policy:  Off,
		},
		{
			name:    "stored off",
			in:      Input{Existing: []uint64{4}, Incoming: []uint64{4}, Layout: layout.Compact, Stored: Off},
			newDims: []uint64{4},
			policy:  Off,
		},
		{
			name:    "scalar target",
			in:      Input{Existing: nil, Incoming: []uint64{3}, Layout: layout.Compact},
			newDims: nil,
			policy:  Fit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Reconcile(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.resize, d.Resize)
			assert.Equal(t, tt.newDims, d.NewDims)
			assert.Equal(t, tt.policy, d.Policy)
		})
	}
}

func TestReconcileErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		kind h5err.Kind
		axis int
	}{
		{"off and too large", Input{Existing: []uint64{4}, Incoming: []uint64{5}, Layout: layout.Chunked, Requested: Off}, h5err.DimensionMismatch, -1},
		{"rank", Input{Existing: []uint64{4}, Incoming: []uint64{4, 1}, Layout: layout.Chunked}, h5err.RankMismatch, -1},
		{"compact", Input{Existing: []uint64{4}, Incoming: []uint64{5}, Layout: layout.Compact}, h5err.ResizeNotSupported, -1},
		{"contiguous", Input{Existing: []uint64{4}, Incoming: []uint64{3}, Layout: layout.Contiguous}, h5err.ResizeNotSupported, -1},
		{"bounded", Input{Existing: []uint64{3, 10}, MaxDims: []uint64{space.Unlimited, 10}, Incoming: []uint64{3, 11}, Layout: layout.Chunked}, h5err.BoundsExceeded, 1},
		{"implicit bound", Input{Existing: []uint64{3}, Incoming: []uint64{4}, Layout: layout.Chunked}, h5err.BoundsExceeded, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Path = "/data"
			_, err := Reconcile(tt.in)
			require.True(t, h5err.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, "/data", h5err.Path(err))
			assert.Equal(t, tt.axis, h5err.Axis(err))
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	in := Input{
		Existing:  []uint64{6, 6},
		MaxDims:   []uint64{space.Unlimited, space.Unlimited},
		Incoming:  []uint64{3, 9},
		Layout:    layout.Chunked,
		Selection: &space.Hyperslab{Offset: []uint64{0, 6}, Extent: []uint64{3, 3}},
	}
	first, err := Reconcile(in)
	require.NoError(t, err)
	second, err := Reconcile(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []uint64{6, 6}, in.Existing)
}

// A selection on the dataset turns the default into Grow, so writing a
// smaller block into a larger dataset keeps the other regions.
func TestSelectionMakesDefaultGrow(t *testing.T) {
	slab := &space.Hyperslab{Offset: []uint64{3, 3}, Extent: []uint64{3, 3}}
	incoming, err := IncomingDims([]uint64{3, 3}, nil, slab)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6, 6}, incoming)

	in := Input{
		Existing:  []uint64{6, 6},
		MaxDims:   []uint64{space.Unlimited, space.Unlimited},
		Incoming:  []uint64{3, 3},
		Layout:    layout.Chunked,
		Selection: &space.Hyperslab{Offset: []uint64{0, 0}, Extent: []uint64{3, 3}},
	}
	d, err := Reconcile(in)
	require.NoError(t, err)
	assert.Equal(t, Grow, d.Policy)
	assert.False(t, d.Resize)
	assert.Equal(t, []uint64{6, 6}, d.NewDims)

	// Without the selection the same write shrinks the dataset.
	in.Selection = nil
	d, err = Reconcile(in)
	require.NoError(t, err)
	assert.Equal(t, Fit, d.Policy)
	assert.Equal(t, []uint64{3, 3}, d.NewDims)
}

func TestFitWarnsWhenCuttingSelection(t *testing.T) {
	d, err := Reconcile(Input{
		Existing:  []uint64{6},
		MaxDims:   []uint64{space.Unlimited},
		Incoming:  []uint64{2},
		Layout:    layout.Chunked,
		Requested: Fit,
		Selection: &space.Hyperslab{Offset: []uint64{2}, Extent: []uint64{2}},
	})
	require.NoError(t, err)
	assert.True(t, d.Resize)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "likely an error")
}

func TestIncomingDims(t *testing.T) {
	tests := []struct {
		name     string
		data     []uint64
		dataSlab *space.Hyperslab
		dsetSlab *space.Hyperslab
		want     []uint64
	}{
		{"data dims", []uint64{4, 5}, nil, nil, []uint64{4, 5}},
		{"data slab", []uint64{4, 5}, &space.Hyperslab{Offset: []uint64{1, 1}, Extent: []uint64{2, 3}}, nil, []uint64{2, 3}},
		{"dataset slab beyond", []uint64{2, 2}, nil, &space.Hyperslab{Offset: []uint64{5, 0}, Extent: []uint64{2, 2}}, []uint64{7, 2}},
		{
			"strided dataset slab", []uint64{2, 2}, nil,
			&space.Hyperslab{Offset: []uint64{0, 1}, Extent: []uint64{2, 2}, Stride: []uint64{3, 3}, Block: []uint64{1, 1}},
			[]uint64{4, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IncomingDims(tt.data, tt.dataSlab, tt.dsetSlab)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := IncomingDims([]uint64{2}, nil, &space.Hyperslab{Offset: []uint64{0, 0}, Extent: []uint64{1, 1}})
	assert.True(t, h5err.Is(err, h5err.RankMismatch))
}

func TestParsePolicy(t *testing.T) {
	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("GROW")))
	assert.Equal(t, Grow, p)
	text, err := Off.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "off", string(text))

	_, err = ParsePolicy("shrink")
	assert.True(t, h5err.Is(err, h5err.InvalidConfig))
}
