package dtype

import (
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// TagName is the struct tag key read by FromGoType.
//
//	type Particle struct {
//		ID    int64      `h5:"id"`
//		Pos   [3]float64 `h5:"pos"`
//		Label [8]byte    `h5:"label,string"`
//		Note  string     `h5:"note,vlen"`
//		Cache int        `h5:"-"`
//	}
const TagName = "h5"

// FromGoType creates the datatype matching the memory layout of a Go type.
// Slices and pointers are not element types and are rejected; callers strip
// container layers first.
func FromGoType(t reflect.Type) (*Datatype, error) {
	switch t.Kind() {
	case reflect.Bool, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return NewInt(uint32(t.Size()), false), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return NewInt(uint32(t.Size()), true), nil
	case reflect.Float32, reflect.Float64:
		return NewFloat(uint32(t.Size())), nil
	case reflect.String:
		return NewVarString(), nil
	case reflect.Array:
		base, dims := t, []uint32{}
		for base.Kind() == reflect.Array {
			dims = append(dims, uint32(base.Len()))
			base = base.Elem()
		}
		bt, err := FromGoType(base)
		if err != nil {
			return nil, err
		}
		if bt.IsVarLen() {
			return nil, h5err.New(h5err.UnresolvableType, "arrays of strings are not an element type: %v", t)
		}
		return NewArray(bt, dims...), nil
	case reflect.Struct:
		return fromStruct(t)
	default:
		return nil, h5err.New(h5err.UnresolvableType, "unsupported Go type: %v", t)
	}
}

type fieldTag struct {
	name string
	skip bool
	str  bool
	vlen bool
}

func parseTag(f reflect.StructField) fieldTag {
	tag, ok := f.Tag.Lookup(TagName)
	if !ok {
		return fieldTag{name: f.Name}
	}
	if tag == "-" {
		return fieldTag{skip: true}
	}
	parts := strings.Split(tag, ",")
	ft := fieldTag{name: parts[0]}
	if ft.name == "" {
		ft.name = f.Name
	}
	for _, opt := range parts[1:] {
		switch opt {
		case "string":
			ft.str = true
		case "vlen":
			ft.vlen = true
		}
	}
	return ft
}

func fromStruct(t reflect.Type) (*Datatype, error) {
	dt := NewCompound(uint32(t.Size()))
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := parseTag(f)
		if tag.skip {
			continue
		}
		mt, err := memberType(f, tag)
		if err != nil {
			return nil, err
		}
		if _, dup := dt.Member(tag.name); dup {
			return nil, h5err.New(h5err.UnresolvableType,
				"%v: field name %q is used twice", t, tag.name)
		}
		dt.Members = append(dt.Members, Member{Name: tag.name, ByteOffset: uint32(f.Offset), Type: mt})
	}
	if len(dt.Members) == 0 {
		return nil, h5err.New(h5err.UnresolvableType, "%v has no exported fields", t)
	}
	return dt, nil
}

func memberType(f reflect.StructField, tag fieldTag) (*Datatype, error) {
	switch {
	case tag.str:
		if f.Type.Kind() != reflect.Array || f.Type.Elem().Kind() != reflect.Uint8 {
			return nil, h5err.New(h5err.UnresolvableType,
				"field %s: the string option needs a [N]byte field, got %v", f.Name, f.Type)
		}
		return NewFixedString(uint32(f.Type.Len()), PadNullPad), nil
	case tag.vlen:
		if f.Type.Kind() != reflect.String {
			return nil, h5err.New(h5err.UnresolvableType,
				"field %s: the vlen option needs a string field, got %v", f.Name, f.Type)
		}
		return NewVarString(), nil
	case f.Type.Kind() == reflect.String:
		return nil, h5err.New(h5err.UnresolvableType,
			"field %s: string fields need a vlen tag or a fixed-width [N]byte with the string option", f.Name)
	}
	mt, err := FromGoType(f.Type)
	if err != nil {
		return nil, h5err.New(h5err.UnresolvableType, "field %s: %v", f.Name, err)
	}
	return mt, nil
}
