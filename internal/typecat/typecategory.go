package typecat

import (
	"slices"

	"github.com/Benny93/catgraph/internal/category"
)

// TypeCategory is a category wrapping a class or an interface. The embedded
// Category carries properties and the cached bottom-up linearization.
type TypeCategory struct {
	*category.Category

	tz         *TypeCategorization
	id         TypeID
	kind       Kind
	abstract   bool
	superclass *TypeCategory
	interfaces []*TypeCategory
}

func (tc *TypeCategory) ID() TypeID { return tc.id }

func (tc *TypeCategory) Kind() Kind { return tc.kind }

func (tc *TypeCategory) IsClass() bool { return tc.kind == KindClass }

func (tc *TypeCategory) IsInterface() bool { return tc.kind == KindInterface }

// IsAbstract reports whether the type cannot be instantiated. Interfaces are
// always abstract.
func (tc *TypeCategory) IsAbstract() bool { return tc.abstract }

// TypeCategorization returns the graph this node belongs to.
func (tc *TypeCategory) TypeCategorization() *TypeCategorization { return tc.tz }

// Superclass returns the declared superclass of a class. The root and
// interfaces have none, and neither does a class that only implicitly
// extends the root.
func (tc *TypeCategory) Superclass() (*TypeCategory, bool) {
	return tc.superclass, tc.superclass != nil
}

// SuperInterfaces returns the directly declared interfaces in declaration order.
func (tc *TypeCategory) SuperInterfaces() []*TypeCategory {
	return append([]*TypeCategory(nil), tc.interfaces...)
}

func (tc *TypeCategory) isRoot() bool {
	return tc == tc.tz.root
}

// ParentsWith returns the direct parents under the given policy. A class
// always has a class parent, its superclass or the root. An interface
// without super-interfaces hangs off the root.
func (tc *TypeCategory) ParentsWith(p Priority, o InterfaceOrder) []*TypeCategory {
	if tc.isRoot() {
		return nil
	}

	ifaces := tc.SuperInterfaces()
	if o == Reverse {
		slices.Reverse(ifaces)
	}

	if tc.kind == KindInterface {
		if len(ifaces) == 0 {
			return []*TypeCategory{tc.tz.root}
		}
		return ifaces
	}

	super := tc.superclass
	if super == nil {
		super = tc.tz.root
	}
	if p == InterfacesFirst {
		return append(ifaces, super)
	}
	return append([]*TypeCategory{super}, ifaces...)
}

// ChildrenWith returns the registered types that list this node among their
// default parents. Classes and interfaces are grouped according to p, each
// group in registration order.
func (tc *TypeCategory) ChildrenWith(p Priority) []*TypeCategory {
	var classes, ifaces []*TypeCategory
	for _, k := range tc.tz.known {
		if !slices.Contains(k.ParentsWith(ClassesFirst, Declaration), tc) {
			continue
		}
		if k.kind == KindInterface {
			ifaces = append(ifaces, k)
		} else {
			classes = append(classes, k)
		}
	}
	if p == ClassesFirst {
		return append(classes, ifaces...)
	}
	return append(ifaces, classes...)
}

// Parents returns the parents with classes first in declaration order.
func (tc *TypeCategory) Parents() []*TypeCategory {
	return tc.ParentsWith(ClassesFirst, Declaration)
}

// Children returns the known direct subtypes, interfaces first.
func (tc *TypeCategory) Children() []*TypeCategory {
	return tc.ChildrenWith(InterfacesFirst)
}

// BottomUp returns the node followed by its ancestors under the
// categorization's bottom-up policy. The result is cached after the first call.
func (tc *TypeCategory) BottomUp() []*TypeCategory {
	return tc.tz.wrap(tc.BottomUpLinearization())
}

// TopDown returns the node followed by its known descendants under the
// categorization's top-down policy.
func (tc *TypeCategory) TopDown() []*TypeCategory {
	return tc.tz.wrap(tc.TopDownLinearization())
}

// LinearizeWith computes a fresh linearization under p, upwards through
// parents when up is true and downwards through children otherwise.
func (tc *TypeCategory) LinearizeWith(p Policy, up bool) []*TypeCategory {
	return tc.tz.wrap(tc.Linearize(tc.tz.linearization(p, up)))
}

func (tc *TypeCategory) Ancestors() []*TypeCategory {
	return tc.BottomUp()[1:]
}

func (tc *TypeCategory) Descendants() []*TypeCategory {
	return tc.TopDown()[1:]
}

// Super returns the first ancestor.
func (tc *TypeCategory) Super() (*TypeCategory, bool) {
	ancestors := tc.Ancestors()
	if len(ancestors) == 0 {
		return nil, false
	}
	return ancestors[0], true
}

// AbstractAncestors returns the ancestors that are abstract classes or interfaces.
func (tc *TypeCategory) AbstractAncestors() []*TypeCategory {
	return filter(tc.Ancestors(), (*TypeCategory).IsAbstract)
}

func (tc *TypeCategory) AncestorClasses() []*TypeCategory {
	return filter(tc.Ancestors(), (*TypeCategory).IsClass)
}

func (tc *TypeCategory) AncestorInterfaces() []*TypeCategory {
	return filter(tc.Ancestors(), (*TypeCategory).IsInterface)
}

// KnownSubClasses returns the registered descendant classes.
func (tc *TypeCategory) KnownSubClasses() []*TypeCategory {
	return filter(tc.Descendants(), (*TypeCategory).IsClass)
}

// KnownSubInterfaces returns the registered descendant interfaces.
func (tc *TypeCategory) KnownSubInterfaces() []*TypeCategory {
	return filter(tc.Descendants(), (*TypeCategory).IsInterface)
}

// IsInBoundaries reports whether the type is assignable to every bound. It
// holds vacuously for no bounds.
func (tc *TypeCategory) IsInBoundaries(bounds ...TypeID) bool {
	for _, b := range bounds {
		if !tc.tz.in.AssignableTo(tc.id, b) {
			return false
		}
	}
	return true
}

func (tc *TypeCategory) String() string {
	return tc.id.String()
}

// IDs returns the ids of tcs in order.
func IDs(tcs []*TypeCategory) []TypeID {
	out := make([]TypeID, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.id
	}
	return out
}

func filter(tcs []*TypeCategory, keep func(*TypeCategory) bool) []*TypeCategory {
	var out []*TypeCategory
	for _, tc := range tcs {
		if keep(tc) {
			out = append(out, tc)
		}
	}
	return out
}
