package store

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

func int32s(vals ...int32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func chunkedSpec(dims, maxDims, chunk []uint64) engine.DatasetSpec {
	return engine.DatasetSpec{
		Type:      dtype.NewInt(4, true),
		Dims:      dims,
		MaxDims:   maxDims,
		Layout:    layout.Chunked,
		ChunkDims: chunk,
		Filters:   []filter.Info{{ID: filter.FilterDeflate, ClientData: []uint32{6}}},
	}
}

func TestCreateAndRoundTrip(t *testing.T) {
	for _, class := range []layout.Class{layout.Compact, layout.Contiguous, layout.Chunked} {
		t.Run(class.String(), func(t *testing.T) {
			s := New(logger.Discard())
			spec := engine.DatasetSpec{Type: dtype.NewInt(4, true), Dims: []uint64{2, 3}, Layout: class}
			if class == layout.Chunked {
				spec.ChunkDims = []uint64{1, 2}
			}
			ds, err := s.CreateDataset("/g/h/data", spec)
			require.NoError(t, err)
			defer ds.Close()

			sel := ds.Space()
			require.NoError(t, ds.Write(sel, int32s(1, 2, 3, 4, 5, 6)))

			require.NoError(t, sel.Select(space.Hyperslab{Offset: []uint64{0, 1}, Extent: []uint64{2, 2}}))
			got := make([]byte, 16)
			require.NoError(t, ds.Read(sel, got))
			assert.Equal(t, int32s(2, 3, 5, 6), got)

			info := ds.Info()
			assert.Equal(t, "/g/h/data", info.Path)
			assert.Equal(t, class, info.Layout)
			assert.Equal(t, []uint64{2, 3}, info.Dims)
			assert.True(t, s.Exists("/g/h"))
			assert.False(t, s.IsDataset("/g"))
			assert.True(t, s.IsDataset("g/h/data/"))
		})
	}
}

func TestCreateErrors(t *testing.T) {
	s := New(logger.Discard())
	ds, err := s.CreateDataset("/a", engine.DatasetSpec{Type: dtype.NewFloat(8), Dims: []uint64{4}})
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	tests := []struct {
		name string
		path string
		spec engine.DatasetSpec
		kind h5err.Kind
	}{
		{"exists", "/a", engine.DatasetSpec{Type: dtype.NewFloat(8)}, h5err.AlreadyExists},
		{"root", "/", engine.DatasetSpec{Type: dtype.NewFloat(8)}, h5err.AlreadyExists},
		{"below dataset", "/a/b", engine.DatasetSpec{Type: dtype.NewFloat(8)}, h5err.InvalidConfig},
		{"no type", "/c", engine.DatasetSpec{}, h5err.InvalidConfig},
		{"bad max dims", "/c", engine.DatasetSpec{Type: dtype.NewFloat(8), Dims: []uint64{4}, MaxDims: []uint64{3}}, h5err.BoundsExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateDataset(tt.path, tt.spec)
			assert.True(t, h5err.Is(err, tt.kind), "got %v", err)
		})
	}
	assert.False(t, s.Exists("/c"))
	assert.Equal(t, 0, s.OpenHandles())

	_, err = s.OpenDataset("/missing")
	assert.True(t, h5err.Is(err, h5err.NotFound))
	assert.Equal(t, "/missing", h5err.Path(err))
}

func TestStaleSelection(t *testing.T) {
	s := New(logger.Discard())
	ds, err := s.CreateDataset("/d", chunkedSpec([]uint64{4}, []uint64{space.Unlimited}, []uint64{2}))
	require.NoError(t, err)
	defer ds.Close()

	sel := ds.Space()
	require.NoError(t, ds.SetExtent([]uint64{6}))
	err = ds.Write(sel, int32s(1, 2, 3, 4))
	assert.True(t, h5err.Is(err, h5err.InvalidSelection), "got %v", err)

	err = ds.Write(ds.Space(), int32s(1, 2))
	assert.True(t, h5err.Is(err, h5err.BufferTooSmall), "got %v", err)
}

func TestReadAsProjectsMembers(t *testing.T) {
	s := New(logger.Discard())
	rec := dtype.NewCompound(12,
		dtype.Member{Name: "id", ByteOffset: 0, Type: dtype.NewInt(4, true)},
		dtype.Member{Name: "val", ByteOffset: 4, Type: dtype.NewFloat(8)},
	)
	ds, err := s.CreateDataset("/recs", engine.DatasetSpec{Type: rec, Dims: []uint64{2}, Layout: layout.Contiguous})
	require.NoError(t, err)
	defer ds.Close()

	src := make([]byte, 24)
	binary.LittleEndian.PutUint32(src[0:], 7)
	binary.LittleEndian.PutUint32(src[12:], 9)
	require.NoError(t, ds.Write(ds.Space(), src))

	ids := dtype.NewCompound(4, dtype.Member{Name: "id", ByteOffset: 0, Type: dtype.NewInt(4, true)})
	got := make([]byte, 8)
	require.NoError(t, ds.ReadAs(ds.Space(), ids, got))
	assert.Equal(t, int32s(7, 9), got)

	err = ds.ReadAs(ds.Space(), ids, make([]byte, 4))
	assert.True(t, h5err.Is(err, h5err.BufferTooSmall), "got %v", err)
	assert.Contains(t, err.Error(), "/recs")
}

func TestSetExtent(t *testing.T) {
	s := New(logger.Discard())
	ds, err := s.CreateDataset("/d", chunkedSpec([]uint64{3, 10}, []uint64{space.Unlimited, 10}, []uint64{2, 5}))
	require.NoError(t, err)
	defer ds.Close()

	err = ds.SetExtent([]uint64{3, 11})
	require.True(t, h5err.Is(err, h5err.BoundsExceeded), "got %v", err)
	assert.Equal(t, 1, h5err.Axis(err))
	assert.Equal(t, []uint64{3, 10}, ds.Info().Dims)

	require.NoError(t, ds.SetExtent([]uint64{7, 10}))
	assert.Equal(t, []uint64{7, 10}, ds.Info().Dims)
	assert.Equal(t, []uint64{space.Unlimited, 10}, ds.Info().MaxDims)

	contiguous, err := s.CreateDataset("/c", engine.DatasetSpec{Type: dtype.NewInt(4, true), Dims: []uint64{2}, MaxDims: []uint64{4}, Layout: layout.Contiguous})
	require.NoError(t, err)
	defer contiguous.Close()
	err = contiguous.SetExtent([]uint64{3})
	assert.True(t, h5err.Is(err, h5err.ResizeNotSupported), "got %v", err)
}

func TestStrings(t *testing.T) {
	s := New(logger.Discard())
	ds, err := s.CreateDataset("/text", engine.DatasetSpec{
		Type:      dtype.NewVarString(),
		Dims:      []uint64{3},
		MaxDims:   []uint64{space.Unlimited},
		Layout:    layout.Chunked,
		ChunkDims: []uint64{2},
	})
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.WriteStrings(ds.Space(), []string{"one", "", "three"}))
	assert.Equal(t, 1, s.HeapCollections())

	vl, err := ds.ReadStrings(ds.Space())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "", "three"}, vl.Strings())
	assert.Equal(t, 2, s.OpenHandles())
	vl.Release()
	vl.Release()
	assert.Equal(t, 1, s.OpenHandles())

	// Overwriting every string frees the old collection.
	require.NoError(t, ds.WriteStrings(ds.Space(), []string{"a", "b", "c"}))
	assert.Equal(t, 1, s.HeapCollections())

	// Shrinking releases strings that fall outside.
	sel := ds.Space()
	require.NoError(t, sel.Select(space.Hyperslab{Offset: []uint64{2}, Extent: []uint64{1}}))
	require.NoError(t, ds.WriteStrings(sel, []string{"tail"}))
	assert.Equal(t, 2, s.HeapCollections())
	require.NoError(t, ds.SetExtent([]uint64{2}))
	assert.Equal(t, 1, s.HeapCollections())

	vl, err = ds.ReadStrings(ds.Space())
	require.NoError(t, err)
	defer vl.Release()
	assert.Equal(t, []string{"a", "b"}, vl.Strings())

	err = ds.WriteStrings(ds.Space(), []string{"x"})
	assert.True(t, h5err.Is(err, h5err.SizeMismatch))
	err = ds.Read(ds.Space(), make([]byte, 32))
	assert.True(t, h5err.Is(err, h5err.Unsupported))
	require.NoError(t, s.Validate())
}

func TestAttributes(t *testing.T) {
	s := New(logger.Discard())
	obj, err := s.OpenObject("/")
	require.NoError(t, err)
	defer obj.Close()

	a, err := obj.CreateAttribute("units", engine.AttributeSpec{Type: dtype.NewFixedString(4, dtype.PadNullTerm)})
	require.NoError(t, err)
	require.NoError(t, a.Write(a.Space(), []byte("m/s\x00")))
	require.NoError(t, a.Close())

	v, err := obj.CreateAttribute("tags", engine.AttributeSpec{Type: dtype.NewVarString(), Dims: []uint64{2}})
	require.NoError(t, err)
	require.NoError(t, v.WriteStrings(v.Space(), []string{"x", "y"}))
	require.NoError(t, v.Close())

	_, err = obj.CreateAttribute("units", engine.AttributeSpec{Type: dtype.NewInt(1, false)})
	assert.True(t, h5err.Is(err, h5err.AlreadyExists))
	assert.Equal(t, "/@units", h5err.Path(err))
	assert.Equal(t, []string{"units", "tags"}, obj.AttributeNames())

	a, err = obj.OpenAttribute("units")
	require.NoError(t, err)
	got := make([]byte, 4)
	require.NoError(t, a.Read(a.Space(), got))
	assert.Equal(t, "m/s\x00", string(got))
	require.NoError(t, a.Close())
	assert.Error(t, a.Close())

	require.NoError(t, obj.DeleteAttribute("tags"))
	assert.Equal(t, 0, s.HeapCollections())
	assert.False(t, obj.HasAttribute("tags"))
	assert.True(t, h5err.Is(obj.DeleteAttribute("tags"), h5err.NotFound))
	assert.Equal(t, 1, s.OpenHandles())
}

func TestWalk(t *testing.T) {
	s := New(logger.Discard())
	for _, p := range []string{"/b/x", "/a/y", "/a/z/w", "/a-c"} {
		ds, err := s.CreateDataset(p, engine.DatasetSpec{Type: dtype.NewInt(1, false), Dims: []uint64{1}})
		require.NoError(t, err)
		require.NoError(t, ds.Close())
	}

	var seen []string
	require.NoError(t, s.Walk("/a", func(path string, isDataset bool) error {
		seen = append(seen, path)
		return nil
	}))
	assert.Equal(t, []string{"/a", "/a/y", "/a/z", "/a/z/w"}, seen)

	seen = nil
	require.NoError(t, s.Walk("/", func(path string, isDataset bool) error {
		if isDataset {
			seen = append(seen, path)
		}
		return nil
	}))
	assert.Equal(t, []string{"/a-c", "/a/y", "/a/z/w", "/b/x"}, seen)

	assert.True(t, h5err.Is(s.Walk("/nope", nil), h5err.NotFound))
}

func TestArenaReuse(t *testing.T) {
	s := New(logger.Discard())
	ds, err := s.CreateDataset("/d", chunkedSpec([]uint64{8}, []uint64{space.Unlimited}, []uint64{4}))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Write(ds.Space(), int32s(1, 2, 3, 4, 5, 6, 7, 8)))
	require.NoError(t, ds.Write(ds.Space(), int32s(8, 7, 6, 5, 4, 3, 2, 1)))
	stats := s.ArenaStats()
	assert.NotZero(t, stats.TotalBytesFree)
	require.NoError(t, s.Validate())

	require.NoError(t, ds.SetExtent([]uint64{0}))
	assert.Zero(t, s.ArenaStats().LiveBytes)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/a/b", CleanPath("a//b/"))
	assert.Equal(t, []string{"/a", "/a/b"}, parents("/a/b/c"))
	assert.Empty(t, parents("/a"))

	obj, name, err := ParseAttrPath("/sensors/temp@calibration")
	require.NoError(t, err)
	assert.Equal(t, "/sensors/temp", obj)
	assert.Equal(t, "calibration", name)
	assert.Equal(t, "/sensors/temp@calibration", JoinAttrPath(obj, name))

	obj, _, err = ParseAttrPath("@root")
	require.NoError(t, err)
	assert.Equal(t, "/", obj)

	_, _, err = ParseAttrPath("/x")
	assert.Error(t, err)
	_, _, err = ParseAttrPath("/x@")
	assert.Error(t, err)
}
