package meta

import (
	"fmt"

	"github.com/robert-malhotra/go-h5pp/internal/dtype"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/resize"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Attribute is the finished description of an attribute.
type Attribute struct {
	Name       string
	LinkPath   string
	LinkExists bool
	Exists     bool // The attribute exists and is written in place
	Replace    bool // An existing attribute of another type or shape is deleted first
	Type       *dtype.Datatype
	Dims       []uint64
	Slab       *space.Hyperslab
}

// Path returns the attribute address, link@name.
func (a Attribute) Path() string {
	if a.LinkPath == "/" {
		return "/@" + a.Name
	}
	return a.LinkPath + "@" + a.Name
}

// Size returns the number of elements.
func (a Attribute) Size() uint64 {
	return space.Size(a.Dims)
}

// Spec returns the engine request creating the attribute.
func (a Attribute) Spec() engine.AttributeSpec {
	return engine.AttributeSpec{Type: a.Type, Dims: space.Clone(a.Dims)}
}

// Target returns the transfer target of the attribute.
func (a Attribute) Target() Target {
	return Target{Path: a.Path(), Type: a.Type, Dims: space.Clone(a.Dims), Slab: a.Slab}
}

// AttributeBuilder collects the facts of an attribute.
type AttributeBuilder struct {
	log *logger.Logger

	AttrName   Fact[string]
	LinkPath   Fact[string]
	LinkExists Fact[bool]
	AttrExists Fact[bool]
	Type       Fact[*dtype.Datatype]
	Dims       Fact[[]uint64]
	Slab       Fact[*space.Hyperslab]

	// What the value asks for when an existing attribute is pinned.
	valueType *dtype.Datatype
	valueDims []uint64
	invalid   []string
}

// NewAttributeBuilder starts an attribute description.
func NewAttributeBuilder(linkPath, name string, log *logger.Logger) *AttributeBuilder {
	b := &AttributeBuilder{log: log.ForPackage("meta").WithFields(map[string]interface{}{
		"link": linkPath, "attribute": name,
	})}
	if linkPath != "" {
		b.LinkPath.Set(linkPath, FromOptions)
	}
	if name != "" {
		b.AttrName.Set(name, FromOptions)
	}
	return b
}

// FillFromExisting pins the facts of the link and, when present, of the
// attribute.
func (b *AttributeBuilder) FillFromExisting(e engine.Engine) error {
	link, ok := b.LinkPath.Get()
	if !ok {
		return nil
	}
	if !e.Exists(link) {
		b.LinkExists.Set(false, FromExisting)
		b.AttrExists.Set(false, FromExisting)
		return nil
	}
	b.LinkExists.Set(true, FromExisting)
	name, ok := b.AttrName.Get()
	if !ok {
		return nil
	}
	obj, err := e.OpenObject(link)
	if err != nil {
		return err
	}
	defer obj.Close()
	if !obj.HasAttribute(name) {
		b.AttrExists.Set(false, FromExisting)
		return nil
	}
	attr, err := obj.OpenAttribute(name)
	if err != nil {
		return err
	}
	defer attr.Close()
	info := attr.Info()
	b.AttrExists.Set(true, FromExisting)
	b.Type.Set(info.Type, FromExisting)
	b.Dims.Set(space.Clone(info.Dims), FromExisting)
	return nil
}

// FillFromValue fills the facts still unset from the options and the value.
func (b *AttributeBuilder) FillFromValue(data *Data, h Hints) {
	if h.AttrSlab != nil && !h.AttrSlab.IsEmpty() {
		slab := h.AttrSlab.Clone()
		b.Slab.Set(&slab, FromOptions)
	}

	typ := h.Type
	if typ == nil && data != nil {
		typ = data.Type
	}
	var dims []uint64
	dimsOK := false
	switch {
	case data != nil:
		var err error
		dims, err = resize.IncomingDims(data.Dims, data.Slab, b.Slab.Value())
		if err != nil {
			b.invalid = append(b.invalid, fmt.Sprintf("dims (%v)", err))
		} else {
			dimsOK = true
		}
	case h.DataDims != nil:
		dims, dimsOK = space.Clone(h.DataDims), true
	}

	if b.AttrExists.Value() {
		b.valueType = typ
		if dimsOK {
			b.valueDims = dims
		}
		return
	}
	if typ != nil {
		b.Type.Set(typ, FromValue)
	}
	if dimsOK {
		b.Dims.Set(dims, FromValue)
	}
}

// replace reports whether a pinned attribute differs from what the value
// asks for. With a slab the value writes into the attribute as it is.
func (b *AttributeBuilder) replace() bool {
	if !b.AttrExists.Value() || b.Slab.IsSet() {
		return false
	}
	if b.valueType != nil && !b.valueType.Equal(b.Type.Value()) {
		return true
	}
	return b.valueDims != nil && !space.Equal(b.valueDims, b.Dims.Value())
}

// Finish gates the facts for op and returns the descriptor.
func (b *AttributeBuilder) Finish(op Op) (Attribute, error) {
	g := gate{what: "attribute", op: op}
	a := Attribute{
		Name:       b.AttrName.Value(),
		LinkPath:   b.LinkPath.Value(),
		LinkExists: b.LinkExists.Value(),
		Exists:     b.AttrExists.Value(),
		Type:       b.Type.Value(),
		Dims:       space.Clone(b.Dims.Value()),
		Slab:       b.Slab.Value(),
	}
	if op == OpWrite && b.replace() {
		b.log.Debugf("replacing %s %s with %s %s", a.Type, space.Format(a.Dims), b.valueType, space.Format(b.valueDims))
		a.Replace, a.Exists = true, false
		if b.valueType != nil {
			a.Type = b.valueType
		}
		if b.valueDims != nil {
			a.Dims = space.Clone(b.valueDims)
		}
	}

	switch op {
	case OpCreate:
		g.need("attribute name", b.AttrName.IsSet())
		g.need("link path", b.LinkPath.IsSet())
		g.need("link exists", b.LinkExists.IsSet())
		if b.LinkExists.IsSet() && !a.LinkExists {
			g.fail("link exists", "no object at %s", a.LinkPath)
		}
	case OpWrite:
		g.need("attribute name", b.AttrName.IsSet())
	case OpRead:
		g.need("attribute exists", b.AttrExists.IsSet())
		if b.AttrExists.IsSet() && !a.Exists {
			g.fail("attribute exists", "%s has no attribute %q", a.LinkPath, a.Name)
		}
	}
	g.need("type", a.Type != nil)
	g.need("dims", b.Dims.IsSet() || a.Replace && b.valueDims != nil)
	g.invalid = append(g.invalid, b.invalid...)

	if a.Slab != nil && a.Type != nil {
		sp, err := space.NewSimple(a.Dims, nil)
		if err == nil {
			err = sp.Select(*a.Slab)
		}
		g.check("attribute slab", err)
	}
	if err := g.err(a.Path()); err != nil {
		return Attribute{}, err
	}
	return a, nil
}
