package h5pp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

func newFile(t *testing.T) *File {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LogLevel = "off"
	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.Equal(t, 0, f.OpenHandles(), "handles leaked")
		require.NoError(t, f.Close())
	})
	return f
}

func newHookedFile(t *testing.T) (*File, *test.Hook) {
	t.Helper()
	base, hook := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.Logger = base
	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, hook
}

func TestScalarText(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.WriteDataset("/a", "A"))

	var got string
	require.NoError(t, f.ReadDataset("/a", &got))
	assert.Equal(t, "A", got)

	d, err := f.ReadDescriptor(NewOptions("/a"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Rank())
	assert.Equal(t, Compact, d.Layout)
}

func TestNumericRoundTrips(t *testing.T) {
	f := newFile(t)

	require.NoError(t, f.WriteDataset("/scalar", 3.25))
	var x float64
	require.NoError(t, f.ReadDataset("/scalar", &x))
	assert.Equal(t, 3.25, x)

	require.NoError(t, f.WriteDataset("/grp/vec", []int16{1, -2, 3}))
	var vec []int16
	require.NoError(t, f.ReadDataset("/grp/vec", &vec))
	assert.Equal(t, []int16{1, -2, 3}, vec)
	assert.True(t, f.Exists("/grp"))
	assert.False(t, f.IsDataset("/grp"))

	m := [2][3]uint8{{1, 2, 3}, {4, 5, 6}}
	require.NoError(t, f.WriteDataset("/matrix", m))
	d, err := f.ReadDescriptor(NewOptions("/matrix"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, d.Dims)
	var back [2][3]uint8
	require.NoError(t, f.ReadDataset("/matrix", &back))
	assert.Equal(t, m, back)
}

func TestArrayAndRaw(t *testing.T) {
	f := newFile(t)
	a := NewArray[float32](2, 3)
	for i := range a.Data() {
		a.Data()[i] = float32(i)
	}
	require.NoError(t, f.WriteDataset("/array", a))

	var b Array[float32]
	require.NoError(t, f.ReadDataset("/array", &b))
	assert.Equal(t, []uint64{2, 3}, b.Dims())
	assert.Equal(t, float32(5), b.At(1, 2))

	vals := [4]int64{}
	raw := Raw[int64]{Ptr: &vals[0]}
	require.NoError(t, f.WriteDataset("/raw", []int64{7, 8, 9, 10}))
	require.NoError(t, f.ReadDataset("/raw", raw, WithDims(4)))
	assert.Equal(t, [4]int64{7, 8, 9, 10}, vals)

	vals = [4]int64{}
	require.NoError(t, f.ReadDataset("/raw", raw))
	assert.Equal(t, int64(10), vals[3])

	err := f.WriteDataset("/raw2", raw)
	assert.True(t, h5err.Is(err, h5err.MissingDimensions), "got %v", err)

	_, err = ArrayOf([]int32{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestTextContainers(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.WriteDataset("/names", []string{"alpha", "", "gamma"}))
	var names []string
	require.NoError(t, f.ReadDataset("/names", &names))
	assert.Equal(t, []string{"alpha", "", "gamma"}, names)

	require.NoError(t, f.WriteDataset("/fixed", []string{"ab", "cdef"}, WithType(mustParse(t, "string[3]"))))
	require.NoError(t, f.ReadDataset("/fixed", &names))
	assert.Equal(t, []string{"ab", "cd"}, names)
}

func mustParse(t *testing.T, name string) *Datatype {
	t.Helper()
	dt, err := ParseType(name)
	require.NoError(t, err)
	return dt
}

func TestGrowWithSelectionKeepsExtent(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"explicit grow", []Option{WithResizePolicy(ResizeGrow)}},
		{"default under a selection", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFile(t)
			seq := make([]float64, 36)
			for i := range seq {
				seq[i] = float64(i)
			}
			require.NoError(t, f.WriteDataset("/b", seq, WithDims(6, 6)))

			patch := []float64{-1, -2, -3, -4, -5, -6, -7, -8, -9}
			opts := append([]Option{
				WithDims(3, 3),
				WithDatasetSlab(Hyperslab{Offset: []uint64{1, 2}, Extent: []uint64{3, 3}}),
			}, tt.opts...)
			require.NoError(t, f.WriteDataset("/b", patch, opts...))

			d, err := f.ReadDescriptor(NewOptions("/b"))
			require.NoError(t, err)
			assert.Equal(t, []uint64{6, 6}, d.Dims)

			var out []float64
			require.NoError(t, f.ReadDataset("/b", &out))
			require.Len(t, out, 36)
			assert.Equal(t, 0.0, out[0])
			assert.Equal(t, -1.0, out[1*6+2])
			assert.Equal(t, -9.0, out[3*6+4])
			assert.Equal(t, 35.0, out[35])
		})
	}
}

func TestFitResizesChunkedData(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.WriteDataset("/fit", []int32{1, 2, 3, 4}, WithMaxDims(Unlimited)))
	require.NoError(t, f.WriteDataset("/fit", []int32{5, 6}))
	var out []int32
	require.NoError(t, f.ReadDataset("/fit", &out))
	assert.Equal(t, []int32{5, 6}, out)

	require.NoError(t, f.WriteDataset("/fit", []int32{7, 8, 9}, WithResizePolicy(ResizeGrow)))
	require.NoError(t, f.ReadDataset("/fit", &out))
	assert.Equal(t, []int32{7, 8, 9}, out)

	require.NoError(t, f.WriteDataset("/fixed", []int32{1, 2, 3, 4}))
	err := f.WriteDataset("/fixed", []int32{1, 2})
	assert.True(t, h5err.Is(err, h5err.ResizeNotSupported), "got %v", err)
	assert.Equal(t, "/fixed", h5err.Path(err))
}

func TestResizeBounds(t *testing.T) {
	f := newFile(t)
	d, err := f.CreateDataset("/c",
		WithType(mustParse(t, "float64")), WithDims(3, 10), WithMaxDims(Unlimited, 10))
	require.NoError(t, err)
	assert.Equal(t, Chunked, d.Layout)

	_, err = f.ResizeDataset("/c", []uint64{3, 11}, ResizeFit)
	require.True(t, h5err.Is(err, h5err.BoundsExceeded), "got %v", err)
	assert.Equal(t, 1, h5err.Axis(err))

	dec, err := f.ResizeDataset("/c", []uint64{100, 10}, ResizeFit)
	require.NoError(t, err)
	assert.True(t, dec.Resize)
	d, err = f.ReadDescriptor(NewOptions("/c"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 10}, d.Dims)

	dec, err = f.ResizeDataset("/c", []uint64{100, 10}, ResizeFit)
	require.NoError(t, err)
	assert.False(t, dec.Resize)

	_, err = f.ResizeDataset("/c", []uint64{1, 1}, ResizeOff)
	assert.True(t, h5err.Is(err, h5err.NotReady), "got %v", err)
}

func TestDescriptorOperations(t *testing.T) {
	f := newFile(t)
	vals := make([]uint16, 100)
	d, data, err := f.BuildDescriptor(NewOptions("/d", WithChunkDims(10), WithCompression(4), WithShuffle(true)), vals)
	require.NoError(t, err)
	assert.False(t, d.Exists)
	assert.Equal(t, Chunked, d.Layout)
	assert.Equal(t, []uint64{Unlimited}, d.MaxDims)
	assert.Len(t, d.Filters, 2)
	assert.Equal(t, uint64(100), data.Size)
	assert.False(t, f.Exists("/d"))

	require.NoError(t, f.MarshalWrite(vals, d, data))
	assert.True(t, f.IsDataset("/d"))

	dec, err := PlanResize(d, []uint64{40}, ResizeGrow)
	require.NoError(t, err)
	assert.False(t, dec.Resize)
	dec, err = PlanResize(d, []uint64{40}, ResizeFit)
	require.NoError(t, err)
	assert.Equal(t, []uint64{40}, dec.NewDims)

	rd, err := f.ReadDescriptor(NewOptions("/d"))
	require.NoError(t, err)
	sub, err := ApplyHyperslab(rd, Hyperslab{Offset: []uint64{90}, Extent: []uint64{10}})
	require.NoError(t, err)
	vals[95] = 42
	require.NoError(t, f.WriteDataset("/d", vals))
	var tail []uint16
	require.NoError(t, f.MarshalRead(&tail, sub, Options{}))
	require.Len(t, tail, 10)
	assert.Equal(t, uint16(42), tail[5])

	_, err = ApplyHyperslab(rd, Hyperslab{Offset: []uint64{95}, Extent: []uint64{10}})
	assert.True(t, h5err.Is(err, h5err.InvalidSelection), "got %v", err)
	assert.Equal(t, "/d", h5err.Path(err))

	_, _, err = f.BuildDescriptor(Options{}, vals)
	assert.True(t, h5err.Is(err, h5err.InvalidConfig), "got %v", err)

	_, _, err = f.BuildDescriptor(NewOptions("/empty"), nil)
	require.True(t, h5err.Is(err, h5err.NotReady), "got %v", err)
	assert.Contains(t, err.Error(), "type")

	_, err = f.ReadDescriptor(NewOptions("/missing"))
	assert.True(t, h5err.Is(err, h5err.NotFound), "got %v", err)
}

func TestWriteRejectsMismatchBeforeCreating(t *testing.T) {
	f := newFile(t)
	err := f.WriteDataset("/bad", []int32{1, 2, 3}, WithDims(2, 2))
	assert.True(t, h5err.Is(err, h5err.SizeMismatch), "got %v", err)
	assert.False(t, f.Exists("/bad"))

	err = f.WriteDataset("/bad", map[string]int{})
	assert.True(t, h5err.Is(err, h5err.UnresolvableType), "got %v", err)
}

func TestFailedWriteKeepsStoredData(t *testing.T) {
	f := newFile(t)
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	require.NoError(t, f.WriteDataset("/d", vals, WithLayout(Chunked)))

	err := f.WriteDataset("/d", make([]float32, 40), WithResizePolicy(ResizeFit))
	require.True(t, h5err.Is(err, h5err.SizeMismatch), "got %v", err)
	assert.Contains(t, err.Error(), "/d")
	d, err := f.ReadDescriptor(NewOptions("/d"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{100}, d.Dims)
	var out []float64
	require.NoError(t, f.ReadDataset("/d", &out))
	assert.Equal(t, vals, out)

	type narrow struct {
		X int32 `h5:"x"`
	}
	_, err = f.CreateTable("/t", "t", sample{})
	require.NoError(t, err)
	n, err := f.AppendTableRecords("/t", []sample{{A: 1}, {A: 2}})
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	_, err = f.AppendTableRecords("/t", []narrow{{1}, {2}, {3}})
	require.Error(t, err)
	info, err := f.DescribeTable("/t")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.NumRecords)

	type note struct {
		ID   int32  `h5:"id"`
		Text string `h5:"text,vlen"`
	}
	require.NoError(t, f.WriteAttribute("/d", "range", []float64{0, 10}))
	err = f.WriteAttribute("/d", "range", []note{{1, "a"}})
	require.Error(t, err)
	var rng []float64
	require.NoError(t, f.ReadAttribute("/d", "range", &rng))
	assert.Equal(t, []float64{0, 10}, rng)
}

func TestAttributes(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.WriteDataset("/data", []float64{1, 2}))

	require.NoError(t, f.WriteAttribute("/data", "units", "m/s"))
	require.NoError(t, f.WriteAttribute("/data", "range", []float64{0, 10}))
	require.NoError(t, f.WriteAttribute("/", "version", int32(3)))

	var units string
	require.NoError(t, f.ReadAttribute("/data", "units", &units))
	assert.Equal(t, "m/s", units)

	// Another shape replaces the attribute.
	require.NoError(t, f.WriteAttribute("/data", "range", []float64{-1, 0, 1}))
	var rng []float64
	require.NoError(t, f.ReadAttribute("/data", "range", &rng))
	assert.Equal(t, []float64{-1, 0, 1}, rng)

	// A slab writes in place.
	require.NoError(t, f.WriteAttribute("/data", "range", []float64{5},
		WithAttrSlab(Hyperslab{Offset: []uint64{2}, Extent: []uint64{1}})))
	require.NoError(t, f.ReadAttribute("/data", "range", &rng))
	assert.Equal(t, []float64{-1, 0, 5}, rng)

	names, err := f.AttributeNames("/data")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"units", "range"}, names)

	var v int32
	require.NoError(t, f.ReadAttribute("/", "version", &v))
	assert.Equal(t, int32(3), v)

	err = f.ReadAttribute("/data", "missing", &v)
	assert.True(t, h5err.Is(err, h5err.NotReady), "got %v", err)
	err = f.ReadAttribute("/nowhere", "x", &v)
	assert.True(t, h5err.Is(err, h5err.NotFound), "got %v", err)
	err = f.WriteAttribute("/nowhere", "x", v)
	assert.True(t, h5err.Is(err, h5err.NotReady), "got %v", err)
}

type sample struct {
	A int32      `h5:"a"`
	B float64    `h5:"b"`
	C uint16     `h5:"c"`
	D [3]float32 `h5:"d"`
	E int64      `h5:"e"`
}

func TestTables(t *testing.T) {
	f := newFile(t)
	info, err := f.CreateTable("/tables/samples", "samples", sample{}, WithCompression(6))
	require.NoError(t, err)
	assert.Equal(t, 5, info.Fields.Len())
	assert.Equal(t, uint64(0), info.NumRecords)

	var class string
	require.NoError(t, f.ReadAttribute("/tables/samples", "CLASS", &class))
	assert.Equal(t, "TABLE", class)

	const n = 1000
	recs := make([]sample, n)
	for i := range recs {
		recs[i] = sample{A: int32(i), B: float64(i) / 4, C: uint16(i), D: [3]float32{1, 2, 3}, E: -int64(i)}
	}
	total, err := f.AppendTableRecords("/tables/samples", recs[:600])
	require.NoError(t, err)
	assert.Equal(t, uint64(600), total)
	total, err = f.AppendTableRecords("/tables/samples", recs[600:])
	require.NoError(t, err)
	assert.Equal(t, uint64(n), total)

	info, err = f.DescribeTable("/tables/samples")
	require.NoError(t, err)
	assert.Equal(t, "samples", info.Title)
	assert.Equal(t, uint64(n), info.NumRecords)

	var last []sample
	require.NoError(t, f.ReadTableRecords("/tables/samples", &last, LastRecords, 3))
	assert.Equal(t, recs[997:], last)

	var raw []byte
	sub, err := f.ReadTableFields("/tables/samples", &raw, []string{"e", "a"}, AllRecords, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), sub.Size)
	require.Len(t, raw, n*(8+4))
	for _, i := range []int{0, 3, 999} {
		rec := raw[i*12 : (i+1)*12]
		assert.Equal(t, -int64(i), int64(binary.LittleEndian.Uint64(rec)))
		assert.Equal(t, int32(i), int32(binary.LittleEndian.Uint32(rec[8:])))
	}

	type ab struct {
		B float64 `h5:"b"`
		A int32   `h5:"a"`
	}
	var first []ab
	_, err = f.ReadTableFields("/tables/samples", &first, []string{"a", "b"}, FirstRecords, 2)
	require.NoError(t, err)
	assert.Equal(t, []ab{{0, 0}, {0.25, 1}}, first)

	err = f.ReadTableRecords("/tables/samples", &last, FirstRecords, n+1)
	assert.True(t, h5err.Is(err, h5err.InvalidSelection), "got %v", err)

	_, err = f.CreateTable("/tables/bad", "bad", 1.5)
	assert.ErrorIs(t, err, ErrNotRecords)
	_, err = f.CreateTable("/tables/samples", "again", sample{})
	assert.True(t, h5err.Is(err, h5err.NotReady), "got %v", err)
}

type pair struct {
	A int32   `h5:"a"`
	B float64 `h5:"b"`
}

func TestPackedTypeWarnsOnce(t *testing.T) {
	f, hook := newHookedFile(t)
	native, err := TypeOf(pair{})
	require.NoError(t, err)

	in := []pair{{1, 0.5}, {2, 1.5}}
	for i := 0; i < 3; i++ {
		require.NoError(t, f.WriteDataset("/packed", in, WithType(native.Pack())))
	}
	var out []pair
	require.NoError(t, f.ReadDataset("/packed", &out))
	assert.Equal(t, in, out)

	var warnings []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings = append(warnings, e)
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "packed")
}

func TestWalkAndClose(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.WriteDataset("/g/x", int8(1)))
	require.NoError(t, f.WriteDataset("/g/h/y", int8(2)))

	var seen []string
	require.NoError(t, f.Walk("/g", func(path string, isDataset bool) error {
		if isDataset {
			seen = append(seen, path)
		}
		return nil
	}))
	assert.Equal(t, []string{"/g/h/y", "/g/x"}, seen)

	g, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.ErrorIs(t, g.WriteDataset("/x", 1), ErrClosed)
	assert.ErrorIs(t, g.ReadDataset("/x", new(int)), ErrClosed)
}

func TestTypeOf(t *testing.T) {
	dt, err := TypeOf([]float32{})
	require.NoError(t, err)
	assert.Equal(t, "float32", dt.String())

	dt, err = TypeOf(&pair{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dt.MemberNames())

	_, err = TypeOf(nil)
	assert.True(t, h5err.Is(err, h5err.UnresolvableType))
}

func TestCompressedRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecDeflate, CodecZstd, CodecLZ4, CodecS2} {
		t.Run(string(codec), func(t *testing.T) {
			f := newFile(t)
			in := make([]float64, 5000)
			for i := range in {
				in[i] = math.Sin(float64(i) / 100)
			}
			require.NoError(t, f.WriteDataset("/z", in,
				WithChunkDims(512), WithCompression(3), WithCodec(codec), WithShuffle(true), WithFletcher32(true)))
			var out []float64
			require.NoError(t, f.ReadDataset("/z", &out))
			assert.Equal(t, in, out)
		})
	}
}
