package marshal

import (
	"reflect"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/introspect"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
)

// ReadFields reads the named members of the selected records. A pointer to
// a byte slice receives the records of the packed subset type, which is
// returned; a pointer to a record container receives the members matched
// by name.
func (m *Marshaler) ReadFields(t engine.Transfer, dst interface{}, target meta.Target, names []string) (*dtype.Datatype, error) {
	sub, err := target.Type.Subset(names...)
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	info, err := introspect.Classify(reflect.TypeOf(dst))
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr {
		return nil, h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"read destination must be a pointer, got %v", v.Type()), target.Path)
	}
	raw := info.Elem != nil && info.Elem.Kind() == reflect.Uint8
	if !raw && !info.Has(introspect.CompoundRecord) {
		return nil, h5err.WithPath(h5err.New(h5err.UnresolvableType,
			"field reads need a byte slice or records, got %v", info.Type), target.Path)
	}

	sel, err := fileSelection(t, target)
	if err != nil {
		return nil, err
	}
	count := sel.NumSelected()
	shape := []uint64{count}
	if raw {
		shape = []uint64{count * uint64(sub.Size)}
	}
	if err := introspect.Fit(v, info, shape); err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	res, err := introspect.Resolve(v, info, nil)
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	need := shape[0] * res.ElemSize
	if !raw {
		need = count * res.ElemSize
	}
	if res.Bytes < need {
		return nil, h5err.WithPath(h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"destination %v holds %d bytes, %d records of fields %q need %d", info.Type, res.Bytes, count, names, need),
			res.Bytes, need), target.Path)
	}

	out := make([]byte, count*uint64(sub.Size))
	if err := t.ReadAs(sel, sub, out); err != nil {
		return nil, err
	}
	if !raw {
		if out, err = dtype.Convert(info.ElemType, sub, out, count); err != nil {
			return nil, h5err.WithPath(err, target.Path)
		}
	}
	mem, err := introspect.Bytes(v, info, res.Size)
	if err != nil {
		return nil, h5err.WithPath(err, target.Path)
	}
	copy(mem, out)
	m.log.Tracef("read fields %q of %d records from %s", names, count, target.Path)
	return sub, nil
}
