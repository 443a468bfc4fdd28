package typesys

import "errors"

var (
	// ErrTypeNotFound is returned when a name matches no known type.
	ErrTypeNotFound = errors.New("type not found")

	// ErrAmbiguousType is returned when a short name matches types in
	// several packages.
	ErrAmbiguousType = errors.New("ambiguous type name")
)
