package dtype

import (
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

var namedTypes = map[string]func() *Datatype{
	"int8":    func() *Datatype { return NewInt(1, true) },
	"int16":   func() *Datatype { return NewInt(2, true) },
	"int32":   func() *Datatype { return NewInt(4, true) },
	"int64":   func() *Datatype { return NewInt(8, true) },
	"uint8":   func() *Datatype { return NewInt(1, false) },
	"uint16":  func() *Datatype { return NewInt(2, false) },
	"uint32":  func() *Datatype { return NewInt(4, false) },
	"uint64":  func() *Datatype { return NewInt(8, false) },
	"float32": func() *Datatype { return NewFloat(4) },
	"float64": func() *Datatype { return NewFloat(8) },
	"string":  NewVarString,
}

// Parse reads a scalar type name as printed by String: a numeric name such
// as "int32" or "float64" (with an optional "be" suffix), "string[N]" for a
// fixed-width string, or "string" / "vlen-string".
func Parse(name string) (*Datatype, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "vlen-string" {
		return NewVarString(), nil
	}
	if strings.HasPrefix(name, "string[") && strings.HasSuffix(name, "]") {
		w, err := strconv.ParseUint(name[len("string["):len(name)-1], 10, 32)
		if err != nil || w == 0 {
			return nil, h5err.New(h5err.UnresolvableType, "invalid string width in %q", name)
		}
		return NewFixedString(uint32(w), PadNullTerm), nil
	}
	be := false
	if base := strings.TrimSuffix(name, "be"); base != name {
		if _, ok := namedTypes[base]; ok && base != "string" {
			name, be = base, true
		}
	}
	mk, ok := namedTypes[name]
	if !ok {
		return nil, h5err.New(h5err.UnresolvableType, "unknown type name %q", name)
	}
	dt := mk()
	if be && dt.IsNumeric() {
		dt.ByteOrder = OrderBE
	}
	return dt, nil
}
