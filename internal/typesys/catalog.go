package typesys

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Benny93/catgraph/internal/typecat"
)

// Catalog is an in-memory set of declarations. It implements
// typecat.Introspector.
//
// Types that are referenced but never declared, such as bases from external
// libraries, are kept as placeholders so that hierarchies stay connected. A
// placeholder is an interface when it appears in an implements clause or as a
// base of an interface, and a class otherwise.
type Catalog struct {
	top          typecat.TypeID
	decls        map[typecat.TypeID]*Decl
	order        []typecat.TypeID
	placeholders map[typecat.TypeID]typecat.Kind
}

var _ typecat.Introspector = (*Catalog)(nil)

// NewCatalog creates an empty catalog whose universal supertype is top.
func NewCatalog(top typecat.TypeID) *Catalog {
	return &Catalog{
		top:          top,
		decls:        make(map[typecat.TypeID]*Decl),
		placeholders: make(map[typecat.TypeID]typecat.Kind),
	}
}

// Declare adds declarations. A later declaration of the same id replaces the
// earlier one but keeps its position.
func (c *Catalog) Declare(decls ...Decl) {
	for i := range decls {
		d := decls[i]
		if d.Kind == "" {
			d.Kind = typecat.KindClass
		}
		if _, ok := c.decls[d.ID]; !ok {
			c.order = append(c.order, d.ID)
		}
		c.decls[d.ID] = &d
		delete(c.placeholders, d.ID)

		for _, ref := range d.Implements {
			c.placeholder(ref, typecat.KindInterface)
		}
		for _, ref := range d.Extends {
			if d.Kind == typecat.KindInterface {
				c.placeholder(ref, typecat.KindInterface)
			} else {
				c.placeholder(ref, typecat.KindClass)
			}
		}
	}
}

func (c *Catalog) placeholder(id typecat.TypeID, kind typecat.Kind) {
	if id == c.top {
		return
	}
	if _, ok := c.decls[id]; ok {
		return
	}
	// Interface evidence wins over the weaker "used as a base" signal.
	if prev, ok := c.placeholders[id]; ok && prev == typecat.KindInterface {
		return
	}
	c.placeholders[id] = kind
}

// Len returns the number of declared types, placeholders excluded.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Decl returns the declaration of id.
func (c *Catalog) Decl(id typecat.TypeID) (Decl, bool) {
	d, ok := c.decls[id]
	if !ok {
		return Decl{}, false
	}
	return *d, true
}

// Decls returns all declarations in the order they were first declared.
func (c *Catalog) Decls() []Decl {
	out := make([]Decl, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.decls[id])
	}
	return out
}

// Placeholders returns the referenced but undeclared types, sorted by name.
func (c *Catalog) Placeholders() []typecat.TypeID {
	out := make([]typecat.TypeID, 0, len(c.placeholders))
	for id := range c.placeholders {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b typecat.TypeID) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

func (c *Catalog) Top() typecat.TypeID {
	return c.top
}

func (c *Catalog) Kind(id typecat.TypeID) (typecat.Kind, bool) {
	if id == c.top {
		return typecat.KindClass, true
	}
	if d, ok := c.decls[id]; ok {
		return d.Kind, true
	}
	k, ok := c.placeholders[id]
	return k, ok
}

func (c *Catalog) IsAbstract(id typecat.TypeID) bool {
	if d, ok := c.decls[id]; ok {
		return d.Abstract || d.Kind == typecat.KindInterface
	}
	return c.placeholders[id] == typecat.KindInterface
}

// Superclass returns the first class among the declared bases of a class.
// Further class bases are not part of the single-inheritance hierarchy.
func (c *Catalog) Superclass(id typecat.TypeID) (typecat.TypeID, bool) {
	d, ok := c.decls[id]
	if !ok || id == c.top || d.Kind != typecat.KindClass {
		return typecat.TypeID{}, false
	}
	for _, base := range d.Extends {
		if base == id {
			continue
		}
		if k, _ := c.Kind(base); k == typecat.KindClass {
			return base, true
		}
	}
	return typecat.TypeID{}, false
}

// Interfaces returns the interface bases of a class followed by its
// implements clause. For an interface it returns every declared base.
func (c *Catalog) Interfaces(id typecat.TypeID) []typecat.TypeID {
	d, ok := c.decls[id]
	if !ok || id == c.top {
		return nil
	}
	if d.Kind == typecat.KindInterface {
		return d.References()
	}

	var out []typecat.TypeID
	for _, base := range d.Extends {
		if k, _ := c.Kind(base); k == typecat.KindInterface {
			out = append(out, base)
		}
	}
	return append(out, d.Implements...)
}

// AssignableTo reports whether t reaches bound through superclasses and
// interfaces. Every type is assignable to itself and to the top type.
func (c *Catalog) AssignableTo(t, bound typecat.TypeID) bool {
	if t == bound || bound == c.top {
		return true
	}

	seen := map[typecat.TypeID]bool{t: true}
	queue := []typecat.TypeID{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		next := c.Interfaces(cur)
		if s, ok := c.Superclass(cur); ok {
			next = append([]typecat.TypeID{s}, next...)
		}
		for _, n := range next {
			if n == bound {
				return true
			}
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}

// Resolve finds the types matching name. A qualified name must match exactly.
// A short name matches every package, case-insensitively when no exact
// match exists.
func (c *Catalog) Resolve(name string) []typecat.TypeID {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if name == c.top.String() {
		return []typecat.TypeID{c.top}
	}

	candidates := append(c.Placeholders(), c.order...)
	if id := typecat.ParseTypeID(name); id.Package != "" {
		if _, ok := c.Kind(id); ok {
			return []typecat.TypeID{id}
		}
	}

	var exact, folded []typecat.TypeID
	for _, id := range candidates {
		switch {
		case id.Name == name || id.String() == name:
			exact = append(exact, id)
		case strings.EqualFold(id.Name, name) || strings.EqualFold(id.String(), name):
			folded = append(folded, id)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return folded
}

// ResolveOne resolves name to a single type.
func (c *Catalog) ResolveOne(name string) (typecat.TypeID, error) {
	ids := c.Resolve(name)
	switch len(ids) {
	case 0:
		return typecat.TypeID{}, fmt.Errorf("%q: %w", name, ErrTypeNotFound)
	case 1:
		return ids[0], nil
	default:
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = id.String()
		}
		return typecat.TypeID{}, fmt.Errorf("%q matches %s: %w", name, strings.Join(names, ", "), ErrAmbiguousType)
	}
}

// ApplyProperties registers every declaration that carries properties in tz
// and stores the properties on its category. Existing local values are
// replaced. Declarations that cannot be registered are skipped; their
// registration errors are joined into the returned error once every other
// declaration has been applied.
func (c *Catalog) ApplyProperties(tz *typecat.TypeCategorization) error {
	var errs []error
	for _, id := range c.order {
		d := c.decls[id]
		if len(d.Properties) == 0 {
			continue
		}
		tc, err := tz.Category(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("applying properties of %s: %w", id, err))
			continue
		}
		keys := make([]string, 0, len(d.Properties))
		for k := range d.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			tc.SetProperty(k, d.Properties[k])
		}
	}
	return errors.Join(errs...)
}
