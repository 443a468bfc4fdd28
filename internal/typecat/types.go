// Package typecat specializes the category graph for class and interface
// hierarchies.
//
// A TypeCategorization grows lazily: a type enters the graph the first time a
// caller asks for it, together with its superclass and declared interfaces.
// Edges are never stored on the nodes. They are derived on every call from the
// Introspector and from the set of types registered so far, so children are
// always "known subtypes", never the full universe of the host program.
package typecat

import (
	"fmt"
	"strings"

	"github.com/Benny93/catgraph/internal/category"
)

// TypeID names a type within a package.
type TypeID struct {
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	Name    string `json:"name" yaml:"name"`
}

// String returns the qualified name, Package.Name, or Name alone when the
// package is empty.
func (id TypeID) String() string {
	if id.Package == "" {
		return id.Name
	}
	return id.Package + "." + id.Name
}

// IsZero reports whether the id has no name.
func (id TypeID) IsZero() bool {
	return id.Name == ""
}

// ParseTypeID splits a qualified name at its last dot. Package paths may
// themselves contain dots, e.g. "github.com/acme/shapes.Circle".
func ParseTypeID(s string) TypeID {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return TypeID{Name: s}
	}
	return TypeID{Package: s[:i], Name: s[i+1:]}
}

// Kind distinguishes the two variants of a type node.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
)

// ParseKind accepts "class" and "interface" in any case. An empty string is a
// class.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class", "struct":
		return KindClass, nil
	case "interface", "protocol":
		return KindInterface, nil
	default:
		return "", fmt.Errorf("unknown type kind %q", s)
	}
}

// Priority chooses whether the superclass or the interfaces of a node are
// visited first.
type Priority string

const (
	ClassesFirst    Priority = "classes-first"
	InterfacesFirst Priority = "interfaces-first"
)

// ParsePriority parses a priority name. Underscores are accepted in place of
// dashes so that CLASSES_FIRST style values work too.
func ParsePriority(s string) (Priority, error) {
	switch normalize(s) {
	case "classes-first", "classes":
		return ClassesFirst, nil
	case "interfaces-first", "interfaces":
		return InterfacesFirst, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// InterfaceOrder chooses the order in which the interfaces declared on a
// single type are visited.
type InterfaceOrder string

const (
	Declaration InterfaceOrder = "declaration"
	Reverse     InterfaceOrder = "reverse"
)

// ParseInterfaceOrder parses an interface order name.
func ParseInterfaceOrder(s string) (InterfaceOrder, error) {
	switch normalize(s) {
	case "declaration", "declared":
		return Declaration, nil
	case "reverse", "reversed":
		return Reverse, nil
	default:
		return "", fmt.Errorf("unknown interface order %q", s)
	}
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

// Policy is the full set of knobs for one linearization direction.
type Policy struct {
	Priority       Priority          `json:"priority"`
	InterfaceOrder InterfaceOrder    `json:"interface_order"`
	Strategy       category.Strategy `json:"strategy"`
}

// DefaultBottomUp visits a class's superclass before its interfaces.
var DefaultBottomUp = Policy{Priority: ClassesFirst, InterfaceOrder: Declaration, Strategy: category.Monotonic}

// DefaultTopDown lists subinterfaces before subclasses.
var DefaultTopDown = Policy{Priority: InterfacesFirst, InterfaceOrder: Declaration, Strategy: category.Monotonic}

func (p Policy) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Priority, p.InterfaceOrder, p.Strategy)
}
