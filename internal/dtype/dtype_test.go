package dtype

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

type particle struct {
	ID    int64      `h5:"id"`
	Pos   [3]float64 `h5:"pos"`
	Flag  uint8      `h5:"flag"`
	Label [5]byte    `h5:"label,string"`
	Mass  float32    `h5:"mass"`
}

func TestFromGoTypeScalars(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"int8", int8(0), "int8"},
		{"int", int(0), "int64"},
		{"uint16", uint16(0), "uint16"},
		{"bool", false, "uint8"},
		{"float32", float32(0), "float32"},
		{"float64", float64(0), "float64"},
		{"string", "", "vlen-string"},
		{"matrix", [2][3]int32{}, "array{2, 3}int32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := FromGoType(reflect.TypeOf(tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dt.String())
			assert.Equal(t, uint32(reflect.TypeOf(tt.value).Size()), dt.Size)
		})
	}
}

func TestFromGoTypeStruct(t *testing.T) {
	dt, err := FromGoType(reflect.TypeOf(particle{}))
	require.NoError(t, err)

	assert.Equal(t, ClassCompound, dt.Class)
	assert.Equal(t, uint32(unsafe.Sizeof(particle{})), dt.Size)
	assert.Equal(t, []string{"id", "pos", "flag", "label", "mass"}, dt.MemberNames())

	label, ok := dt.Member("label")
	require.True(t, ok)
	assert.Equal(t, ClassString, label.Type.Class)
	assert.Equal(t, uint32(5), label.Type.Size)
	assert.Equal(t, uint32(unsafe.Offsetof(particle{}.Label)), label.ByteOffset)

	// The Go layout is the natural one.
	assert.True(t, dt.Equal(dt.Native()))
	assert.False(t, dt.IsPacked())
	assert.False(t, dt.HasVarLen())
}

func TestFromGoTypeRejects(t *testing.T) {
	type plainString struct {
		Name string
	}
	type badTag struct {
		Name int32 `h5:"name,string"`
	}
	type withMap struct {
		M map[string]int
	}
	type dup struct {
		A int32 `h5:"x"`
		B int32 `h5:"x"`
	}
	tests := []struct {
		name  string
		value interface{}
	}{
		{"plain string field", plainString{}},
		{"string option on int", badTag{}},
		{"map field", withMap{}},
		{"duplicate names", dup{}},
		{"slice", []int32{}},
		{"pointer", new(int32)},
		{"complex", complex64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGoType(reflect.TypeOf(tt.value))
			assert.True(t, h5err.Is(err, h5err.UnresolvableType), "got %v", err)
		})
	}
}

func TestVarLenMember(t *testing.T) {
	type tagged struct {
		ID   int32  `h5:"id"`
		Note string `h5:"note,vlen"`
	}
	dt, err := FromGoType(reflect.TypeOf(tagged{}))
	require.NoError(t, err)
	assert.True(t, dt.HasVarLen())
}

func TestPackAndSubset(t *testing.T) {
	dt, err := FromGoType(reflect.TypeOf(particle{}))
	require.NoError(t, err)

	packed := dt.Pack()
	assert.True(t, packed.IsPacked())
	assert.Equal(t, uint32(8+24+1+5+4), packed.Size)
	mass, _ := packed.Member("mass")
	assert.Equal(t, uint32(38), mass.ByteOffset)

	// Native undoes Pack.
	assert.True(t, dt.Equal(packed.Native()))

	sub, err := dt.Subset("mass", "id")
	require.NoError(t, err)
	assert.Equal(t, uint32(12), sub.Size)
	assert.Equal(t, []string{"mass", "id"}, sub.MemberNames())
	id, _ := sub.Member("id")
	assert.Equal(t, uint32(4), id.ByteOffset)

	_, err = dt.Subset("ID")
	require.True(t, h5err.Is(err, h5err.UnknownField))
	assert.Contains(t, err.Error(), "available fields: [id, pos, flag, label, mass]")

	_, err = dt.Subset("id", "id")
	assert.True(t, h5err.Is(err, h5err.InvalidConfig))

	_, err = NewInt(4, true).Subset("x")
	assert.True(t, h5err.Is(err, h5err.UnknownField))
}

func TestFingerprint(t *testing.T) {
	dt, err := FromGoType(reflect.TypeOf(particle{}))
	require.NoError(t, err)
	assert.Equal(t, dt.Fingerprint(), dt.Clone().Fingerprint())
	assert.NotEqual(t, dt.Fingerprint(), dt.Pack().Fingerprint())
}

func TestConvertRecordRoundTrip(t *testing.T) {
	in := []particle{
		{ID: 1, Pos: [3]float64{1, 2, 3}, Flag: 7, Label: [5]byte{'a', 'b'}, Mass: 1.5},
		{ID: -2, Pos: [3]float64{-1, 0, 1}, Flag: 0, Label: [5]byte{'h', 'e', 'l', 'l', 'o'}, Mass: 2.5},
	}
	native, err := FromGoType(reflect.TypeOf(particle{}))
	require.NoError(t, err)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&in[0])), len(in)*int(native.Size))

	packed, err := Convert(native.Pack(), native, raw, 2)
	require.NoError(t, err)
	require.Len(t, packed, 2*42)
	assert.Equal(t, int64(-2), int64(binary.LittleEndian.Uint64(packed[42:])))

	back, err := Convert(native, native.Pack(), packed, 2)
	require.NoError(t, err)
	out := make([]particle, 2)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(back)), back)
	assert.Equal(t, in, out)
}

func TestConvertNumbers(t *testing.T) {
	be16 := NewInt(2, true)
	be16.ByteOrder = OrderBE

	tests := []struct {
		name string
		dst  *Datatype
		src  *Datatype
		in   []byte
		want []byte
	}{
		{"int16be to int32", NewInt(4, true), be16, []byte{0xff, 0xfe}, []byte{0xfe, 0xff, 0xff, 0xff}},
		{"uint8 to float32", NewFloat(4), NewInt(1, false), []byte{200}, f32(200)},
		{"float64 truncates to int32", NewInt(4, true), NewFloat(8), f64(3.7), []byte{3, 0, 0, 0}},
		{"int64 narrows to uint8", NewInt(1, false), NewInt(8, true), []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0}, []byte{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.dst, tt.src, tt.in, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func f32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func f64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func TestConvertStrings(t *testing.T) {
	src := NewFixedString(5, PadNullPad)

	got, err := Convert(NewFixedString(3, PadNullTerm), src, []byte("hello"), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("he\x00"), got)

	got, err = Convert(NewFixedString(8, PadSpacePad), src, []byte("hello"), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello   "), got)
}

func TestConvertErrors(t *testing.T) {
	_, err := Convert(NewInt(4, true), NewInt(4, true), []byte{1, 2}, 1)
	assert.True(t, h5err.Is(err, h5err.BufferTooSmall))

	_, err = Convert(NewVarString(), NewInt(4, true), make([]byte, 4), 1)
	assert.True(t, h5err.Is(err, h5err.Unsupported))

	a := NewCompound(4, Member{Name: "a", Type: NewInt(4, true)})
	b := NewCompound(4, Member{Name: "b", Type: NewInt(4, true)})
	_, err = Convert(a, b, make([]byte, 4), 1)
	assert.True(t, h5err.Is(err, h5err.UnknownField))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"int32", "int32", true},
		{"UINT8", "uint8", true},
		{"float64be", "float64be", true},
		{"string[16]", "string[16]", true},
		{"string", "vlen-string", true},
		{"vlen-string", "vlen-string", true},
		{"string[0]", "", false},
		{"stringbe", "", false},
		{"int128", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dt, err := Parse(tt.in)
			if !tt.ok {
				assert.True(t, h5err.Is(err, h5err.UnresolvableType), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dt.String())
		})
	}
}
