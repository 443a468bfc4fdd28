package category

import (
	"errors"
	"fmt"
)

var (
	// ErrPropertyOverride is matched by errors.Is for every *OverrideError.
	ErrPropertyOverride = errors.New("property override rejected")

	// ErrForeignParent is returned when a parent belongs to another categorization.
	ErrForeignParent = errors.New("parent belongs to a different categorization")

	// ErrIncomparableKey is returned when a property key cannot be compared with ==.
	ErrIncomparableKey = errors.New("property key is not comparable")
)

// OverrideError reports an attempt to replace a local property value when
// overriding was not allowed.
type OverrideError struct {
	Key      any
	Current  any
	Rejected any
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("the category already has a value for property %q: %v. Attempting to override it with: %v",
		fmt.Sprint(e.Key), e.Current, e.Rejected)
}

// Is reports whether target is ErrPropertyOverride.
func (e *OverrideError) Is(target error) bool {
	return target == ErrPropertyOverride
}
