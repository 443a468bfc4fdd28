package typecat

import "errors"

var (
	// ErrUnknownType is returned when the introspector has no metadata for a type.
	ErrUnknownType = errors.New("unknown type")

	// ErrCyclicHierarchy is returned when a type is reachable from itself
	// through superclass or interface declarations.
	ErrCyclicHierarchy = errors.New("cyclic type hierarchy")

	// ErrKindMismatch is returned when a class extends an interface or a type
	// declares a class among its interfaces.
	ErrKindMismatch = errors.New("type kind mismatch")
)
