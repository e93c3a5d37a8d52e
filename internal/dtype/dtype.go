package dtype

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Class is the datatype class. Values match the HDF5 class codes.
type Class uint8

const (
	ClassFixedPoint Class = 0  // Integers
	ClassFloatPoint Class = 1  // Floating-point
	ClassString     Class = 3  // Fixed-width strings
	ClassCompound   Class = 6  // Records
	ClassVarLen     Class = 9  // Variable-length strings
	ClassArray      Class = 10 // Fixed-size arrays
)

func (c Class) String() string {
	switch c {
	case ClassFixedPoint:
		return "fixed-point"
	case ClassFloatPoint:
		return "floating-point"
	case ClassString:
		return "string"
	case ClassCompound:
		return "compound"
	case ClassVarLen:
		return "variable-length"
	case ClassArray:
		return "array"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// ByteOrder represents the byte order of numeric data.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0 // Little-endian
	OrderBE ByteOrder = 1 // Big-endian
)

// StringPadding represents how fixed-width strings are padded.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0 // Null-terminated
	PadNullPad  StringPadding = 1 // Null-padded
	PadSpacePad StringPadding = 2 // Space-padded
)

// CharacterSet represents the character encoding of strings.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// VarLenRefSize is the stored size of one variable-length string reference:
// a 4-byte length, an 8-byte heap collection address and a 4-byte index.
const VarLenRefSize = 16

// Datatype describes the element type of a dataset, attribute or table.
type Datatype struct {
	Class     Class
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point
	Signed bool

	// Strings
	StringPadding StringPadding
	CharSet       CharacterSet

	// Compound
	Members []Member

	// Array
	ArrayDims []uint32
	BaseType  *Datatype
}

// Member is one named field of a compound datatype.
type Member struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

// NewInt creates a little-endian integer type of size bytes.
func NewInt(size uint32, signed bool) *Datatype {
	return &Datatype{Class: ClassFixedPoint, Size: size, Signed: signed}
}

// NewFloat creates a little-endian IEEE float type of size bytes.
func NewFloat(size uint32) *Datatype {
	return &Datatype{Class: ClassFloatPoint, Size: size}
}

// NewFixedString creates a fixed-width string type.
func NewFixedString(width uint32, pad StringPadding) *Datatype {
	return &Datatype{Class: ClassString, Size: width, StringPadding: pad, CharSet: CharsetUTF8}
}

// NewVarString creates a variable-length UTF-8 string type.
func NewVarString() *Datatype {
	return &Datatype{Class: ClassVarLen, Size: VarLenRefSize, CharSet: CharsetUTF8}
}

// NewCompound creates a record type of size bytes.
func NewCompound(size uint32, members ...Member) *Datatype {
	return &Datatype{Class: ClassCompound, Size: size, Members: members}
}

// NewArray creates a fixed-size array type over base.
func NewArray(base *Datatype, dims ...uint32) *Datatype {
	n := uint32(1)
	for _, d := range dims {
		n *= d
	}
	return &Datatype{Class: ClassArray, Size: base.Size * n, ArrayDims: dims, BaseType: base}
}

// IsNumeric reports whether the type is an integer or float.
func (dt *Datatype) IsNumeric() bool {
	return dt.Class == ClassFixedPoint || dt.Class == ClassFloatPoint
}

// IsText reports whether the type is a fixed-width or variable-length string.
func (dt *Datatype) IsText() bool {
	return dt.Class == ClassString || dt.Class == ClassVarLen
}

// IsVarLen reports whether the type is a variable-length string.
func (dt *Datatype) IsVarLen() bool {
	return dt.Class == ClassVarLen
}

// HasVarLen reports whether the type contains a variable-length string at
// any depth. Such types cannot be copied byte for byte.
func (dt *Datatype) HasVarLen() bool {
	switch dt.Class {
	case ClassVarLen:
		return true
	case ClassCompound:
		for _, m := range dt.Members {
			if m.Type.HasVarLen() {
				return true
			}
		}
	case ClassArray:
		return dt.BaseType.HasVarLen()
	}
	return false
}

// NumElements returns the number of base elements of an array type, or 1.
func (dt *Datatype) NumElements() uint32 {
	if dt.Class != ClassArray {
		return 1
	}
	n := uint32(1)
	for _, d := range dt.ArrayDims {
		n *= d
	}
	return n
}

// Member returns the compound member with exactly the given name.
func (dt *Datatype) Member(name string) (Member, bool) {
	for _, m := range dt.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MemberNames returns the compound member names in declaration order.
func (dt *Datatype) MemberNames() []string {
	names := make([]string, len(dt.Members))
	for i, m := range dt.Members {
		names[i] = m.Name
	}
	return names
}

// Clone returns a deep copy.
func (dt *Datatype) Clone() *Datatype {
	if dt == nil {
		return nil
	}
	c := *dt
	if dt.Members != nil {
		c.Members = make([]Member, len(dt.Members))
		for i, m := range dt.Members {
			c.Members[i] = Member{Name: m.Name, ByteOffset: m.ByteOffset, Type: m.Type.Clone()}
		}
	}
	if dt.ArrayDims != nil {
		c.ArrayDims = append([]uint32(nil), dt.ArrayDims...)
	}
	c.BaseType = dt.BaseType.Clone()
	return &c
}

// Equal reports whether two types describe the same stored layout.
func (dt *Datatype) Equal(o *Datatype) bool {
	if dt == nil || o == nil {
		return dt == o
	}
	return dt.String() == o.String()
}

// Fingerprint hashes the full type description. Equal types have equal
// fingerprints.
func (dt *Datatype) Fingerprint() uint64 {
	return xxhash.Sum64String(dt.String())
}

// String renders the type, e.g. "int32", "string[8]" or
// "compound[16]{a int32 @0, b float64 @8}".
func (dt *Datatype) String() string {
	if dt == nil {
		return "<nil>"
	}
	var b strings.Builder
	dt.format(&b)
	return b.String()
}

func (dt *Datatype) format(b *strings.Builder) {
	switch dt.Class {
	case ClassFixedPoint:
		if !dt.Signed {
			b.WriteByte('u')
		}
		fmt.Fprintf(b, "int%d", dt.Size*8)
		dt.formatOrder(b)
	case ClassFloatPoint:
		fmt.Fprintf(b, "float%d", dt.Size*8)
		dt.formatOrder(b)
	case ClassString:
		fmt.Fprintf(b, "string[%d]", dt.Size)
		switch dt.StringPadding {
		case PadNullPad:
			b.WriteString(",nullpad")
		case PadSpacePad:
			b.WriteString(",spacepad")
		}
		if dt.CharSet == CharsetASCII {
			b.WriteString(",ascii")
		}
	case ClassVarLen:
		b.WriteString("vlen-string")
	case ClassArray:
		b.WriteString("array{")
		for i, d := range dt.ArrayDims {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%d", d)
		}
		b.WriteByte('}')
		dt.BaseType.format(b)
	case ClassCompound:
		fmt.Fprintf(b, "compound[%d]{", dt.Size)
		for i, m := range dt.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s ", m.Name)
			m.Type.format(b)
			fmt.Fprintf(b, " @%d", m.ByteOffset)
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%s[%d]", dt.Class, dt.Size)
	}
}

func (dt *Datatype) formatOrder(b *strings.Builder) {
	if dt.ByteOrder == OrderBE && dt.Size > 1 {
		b.WriteString("be")
	}
}
