// Package typesys holds the type declarations extracted from source code or
// manifests and exposes them as a typecat.Introspector.
package typesys

import "github.com/Benny93/catgraph/internal/typecat"

// Decl is one declared class or interface.
type Decl struct {
	ID       typecat.TypeID `json:"id"`
	Kind     typecat.Kind   `json:"kind"`
	Abstract bool           `json:"abstract,omitempty"`

	// Extends lists the declared base types in source order. For a class the
	// first base that is itself a class is the superclass and interface
	// bases count as implemented interfaces. For an interface every entry is
	// a super-interface.
	Extends []typecat.TypeID `json:"extends,omitempty"`

	// Implements lists interfaces named in an explicit implements clause.
	Implements []typecat.TypeID `json:"implements,omitempty"`

	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Language string `json:"language,omitempty"`

	// Properties are attached to the type's category when the catalog is
	// applied to a categorization.
	Properties map[string]any `json:"properties,omitempty"`
}

// References returns every type the declaration names, Extends first.
func (d Decl) References() []typecat.TypeID {
	refs := make([]typecat.TypeID, 0, len(d.Extends)+len(d.Implements))
	refs = append(refs, d.Extends...)
	return append(refs, d.Implements...)
}
