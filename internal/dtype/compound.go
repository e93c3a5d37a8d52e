package dtype

import (
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Alignment returns the natural alignment of the type in memory.
func (dt *Datatype) Alignment() uint32 {
	switch dt.Class {
	case ClassFixedPoint, ClassFloatPoint:
		return max(dt.Size, 1)
	case ClassVarLen:
		return 8
	case ClassArray:
		return dt.BaseType.Alignment()
	case ClassCompound:
		a := uint32(1)
		for _, m := range dt.Members {
			a = max(a, m.Type.Alignment())
		}
		return a
	default:
		return 1
	}
}

func alignUp(off, align uint32) uint32 {
	if align <= 1 {
		return off
	}
	return (off + align - 1) / align * align
}

// IsPacked reports whether a compound's members follow each other with no
// padding, in declaration order, and fill the whole record.
func (dt *Datatype) IsPacked() bool {
	if dt.Class != ClassCompound {
		return true
	}
	var off uint32
	for _, m := range dt.Members {
		if m.ByteOffset != off || !m.Type.IsPacked() {
			return false
		}
		off += m.Type.Size
	}
	return off == dt.Size
}

// Pack returns the type with every compound laid out without gaps.
func (dt *Datatype) Pack() *Datatype {
	switch dt.Class {
	case ClassCompound:
		out := &Datatype{Class: ClassCompound, Members: make([]Member, len(dt.Members))}
		var off uint32
		for i, m := range dt.Members {
			mt := m.Type.Pack()
			out.Members[i] = Member{Name: m.Name, ByteOffset: off, Type: mt}
			off += mt.Size
		}
		out.Size = off
		return out
	case ClassArray:
		return NewArray(dt.BaseType.Pack(), dt.ArrayDims...)
	default:
		return dt.Clone()
	}
}

// Native returns the type laid out the way the Go compiler lays out the
// matching struct: members in declaration order at their natural alignment,
// numerics little-endian.
func (dt *Datatype) Native() *Datatype {
	switch dt.Class {
	case ClassCompound:
		out := &Datatype{Class: ClassCompound, Members: make([]Member, len(dt.Members))}
		var off uint32
		align := uint32(1)
		for i, m := range dt.Members {
			mt := m.Type.Native()
			a := mt.Alignment()
			off = alignUp(off, a)
			out.Members[i] = Member{Name: m.Name, ByteOffset: off, Type: mt}
			off += mt.Size
			align = max(align, a)
		}
		out.Size = alignUp(off, align)
		return out
	case ClassArray:
		return NewArray(dt.BaseType.Native(), dt.ArrayDims...)
	case ClassFixedPoint, ClassFloatPoint:
		c := dt.Clone()
		c.ByteOrder = OrderLE
		return c
	default:
		return dt.Clone()
	}
}

// Subset builds the packed compound type holding only the named members, in
// the order given. Names match exactly; an unknown name is an UnknownField
// error listing the available members.
func (dt *Datatype) Subset(names ...string) (*Datatype, error) {
	if dt.Class != ClassCompound {
		return nil, h5err.New(h5err.UnknownField,
			"cannot select fields %q from non-compound type %s", names, dt)
	}
	if len(names) == 0 {
		return nil, h5err.New(h5err.UnknownField, "no fields selected from %s", dt)
	}
	out := &Datatype{Class: ClassCompound, Members: make([]Member, 0, len(names))}
	seen := make(map[string]bool, len(names))
	var off uint32
	for _, name := range names {
		m, ok := dt.Member(name)
		if !ok {
			return nil, h5err.New(h5err.UnknownField,
				"field %q does not exist; available fields: [%s]", name, strings.Join(dt.MemberNames(), ", "))
		}
		if seen[name] {
			return nil, h5err.New(h5err.InvalidConfig, "field %q selected more than once", name)
		}
		seen[name] = true
		out.Members = append(out.Members, Member{Name: name, ByteOffset: off, Type: m.Type.Clone()})
		off += m.Type.Size
	}
	out.Size = off
	return out, nil
}
