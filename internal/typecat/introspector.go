package typecat

// Introspector supplies the type metadata a TypeCategorization is built from.
// It may be backed by a parsed source tree, a manifest or a hand-written table
// in tests.
type Introspector interface {
	// Top is the universal supertype. It becomes the root of the graph.
	Top() TypeID

	// Kind reports the variant of id, or false when id is unknown.
	Kind(id TypeID) (Kind, bool)

	IsAbstract(id TypeID) bool

	// Superclass returns the direct superclass of a class. Interfaces and
	// classes without an explicit superclass return false.
	Superclass(id TypeID) (TypeID, bool)

	// Interfaces returns the directly declared interfaces of id in
	// declaration order. For an interface these are its super-interfaces.
	Interfaces(id TypeID) []TypeID

	// AssignableTo reports whether a value of type t can be used where bound
	// is expected.
	AssignableTo(t, bound TypeID) bool
}
