package meta

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
)

// FieldTable lists the members of a record type in declaration order.
type FieldTable struct {
	Names       []string
	Sizes       []uint64
	Offsets     []uint64
	Types       []*dtype.Datatype
	Classes     []dtype.Class
	RecordBytes uint64
}

// FieldsOf builds the field table of a compound type.
func FieldsOf(dt *dtype.Datatype) (FieldTable, error) {
	if dt == nil || dt.Class != dtype.ClassCompound {
		return FieldTable{}, h5err.New(h5err.UnresolvableType, "records need a compound type, got %s", dt)
	}
	n := len(dt.Members)
	ft := FieldTable{
		Names:       make([]string, n),
		Sizes:       make([]uint64, n),
		Offsets:     make([]uint64, n),
		Types:       make([]*dtype.Datatype, n),
		Classes:     make([]dtype.Class, n),
		RecordBytes: uint64(dt.Size),
	}
	for i, m := range dt.Members {
		ft.Names[i] = m.Name
		ft.Sizes[i] = uint64(m.Type.Size)
		ft.Offsets[i] = uint64(m.ByteOffset)
		ft.Types[i] = m.Type
		ft.Classes[i] = m.Type.Class
	}
	return ft, nil
}

// Len returns the number of fields.
func (ft FieldTable) Len() int {
	return len(ft.Names)
}

// Index returns the position of a field, or -1.
func (ft FieldTable) Index(name string) int {
	for i, n := range ft.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks that offsets never decrease and every field lies inside
// the record.
func (ft FieldTable) Validate() error {
	if ft.Len() == 0 {
		return h5err.New(h5err.InvalidConfig, "a record needs at least one field")
	}
	var problems []string
	for i := range ft.Names {
		if i > 0 && ft.Offsets[i] < ft.Offsets[i-1] {
			problems = append(problems, fmt.Sprintf("field %q at offset %d comes before field %q at offset %d",
				ft.Names[i], ft.Offsets[i], ft.Names[i-1], ft.Offsets[i-1]))
		}
		if end := ft.Offsets[i] + ft.Sizes[i]; end > ft.RecordBytes {
			problems = append(problems, fmt.Sprintf("field %q ends at byte %d, past the %d-byte record",
				ft.Names[i], end, ft.RecordBytes))
		}
	}
	if len(problems) > 0 {
		return h5err.New(h5err.InvalidConfig, "invalid field table: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (ft FieldTable) String() string {
	var b strings.Builder
	for i, n := range ft.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s@%d:%s", n, ft.Offsets[i], ft.Types[i])
	}
	return b.String()
}
