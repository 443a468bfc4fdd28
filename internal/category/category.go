package category

import (
	"fmt"
	"maps"
	"reflect"
)

// Category is a node in a categorization. Identity is the pointer itself.
//
// Property keys are compared with ==, so they must be comparable values.
// Lookups report an incomparable key, such as a slice or a map, as absent and
// SetPropertyChecked rejects it with ErrIncomparableKey.
type Category struct {
	categorization *Categorization
	label          any
	properties     map[any]any

	// Stored edges. Ignored when the categorization derives edges through a Topology.
	parents  []*Category
	children []*Category

	// bottomUp is filled on the first call to BottomUpLinearization.
	bottomUp []*Category
}

func newCategory(z *Categorization, label any, parents []*Category) *Category {
	return &Category{
		categorization: z,
		label:          label,
		properties:     make(map[any]any),
		parents:        parents,
	}
}

// Categorization returns the categorization this category belongs to.
func (c *Category) Categorization() *Categorization {
	return c.categorization
}

// Label returns the value the category was created with, or nil.
func (c *Category) Label() any {
	return c.label
}

// Property returns the value of key, looking first at the category itself and
// then at its ancestors in bottom-up linearization order.
func (c *Category) Property(key any) (any, bool) {
	if !comparableKey(key) {
		return nil, false
	}
	if v, ok := c.properties[key]; ok {
		return v, true
	}
	for _, ancestor := range c.Ancestors() {
		if v, ok := ancestor.properties[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// ContainsProperty reports whether key is defined on the category or any ancestor.
func (c *Category) ContainsProperty(key any) bool {
	_, ok := c.Property(key)
	return ok
}

// PropertyInHierarchy returns every value defined for key along the bottom-up
// linearization, nearest first.
func (c *Category) PropertyInHierarchy(key any) []any {
	if !comparableKey(key) {
		return nil
	}
	var values []any
	for _, cat := range c.BottomUpLinearization() {
		if v, ok := cat.properties[key]; ok {
			values = append(values, v)
		}
	}
	return values
}

// LocalProperty returns the value stored on this category only.
func (c *Category) LocalProperty(key any) (any, bool) {
	if !comparableKey(key) {
		return nil, false
	}
	v, ok := c.properties[key]
	return v, ok
}

// ContainsLocalProperty reports whether key is stored on this category.
func (c *Category) ContainsLocalProperty(key any) bool {
	_, ok := c.LocalProperty(key)
	return ok
}

// LocalProperties returns a copy of the properties stored on this category.
func (c *Category) LocalProperties() map[any]any {
	return maps.Clone(c.properties)
}

// SetProperty stores value under key, replacing any local value. It panics
// when key is not comparable.
func (c *Category) SetProperty(key, value any) {
	c.properties[key] = value
}

// SetPropertyChecked stores value under key. When a local value already
// exists and canOverride is false it returns an *OverrideError and leaves the
// stored value untouched.
func (c *Category) SetPropertyChecked(key, value any, canOverride bool) error {
	if !comparableKey(key) {
		return fmt.Errorf("%T: %w", key, ErrIncomparableKey)
	}
	if current, ok := c.properties[key]; ok && !canOverride {
		return &OverrideError{Key: key, Current: current, Rejected: value}
	}
	c.properties[key] = value
	return nil
}

func comparableKey(key any) bool {
	return key == nil || reflect.ValueOf(key).Comparable()
}

// Linearize applies fn to the category.
func (c *Category) Linearize(fn LinearizationFunc) []*Category {
	return fn(c)
}

// BottomUpLinearization returns the category followed by its ancestors,
// ordered by the categorization's bottom-up function.
//
// The result is computed once and cached. Edges added after the first call
// are not reflected.
func (c *Category) BottomUpLinearization() []*Category {
	if c.bottomUp == nil {
		c.bottomUp = c.Linearize(c.categorization.bottomUp)
	}
	return append([]*Category(nil), c.bottomUp...)
}

// TopDownLinearization returns the category followed by its descendants,
// ordered by the categorization's top-down function. It is recomputed on
// every call since new descendants may have been added.
func (c *Category) TopDownLinearization() []*Category {
	return c.Linearize(c.categorization.topDown)
}

// Ancestors returns the bottom-up linearization without the category itself.
func (c *Category) Ancestors() []*Category {
	return c.BottomUpLinearization()[1:]
}

// Descendants returns the top-down linearization without the category itself.
func (c *Category) Descendants() []*Category {
	return c.TopDownLinearization()[1:]
}

// Super returns the first ancestor in the bottom-up linearization.
func (c *Category) Super() (*Category, bool) {
	ancestors := c.Ancestors()
	if len(ancestors) == 0 {
		return nil, false
	}
	return ancestors[0], true
}

// Parents returns a snapshot of the category's direct parents.
func (c *Category) Parents() []*Category {
	if t := c.categorization.topology; t != nil {
		return t.Parents(c)
	}
	return append([]*Category(nil), c.parents...)
}

// Children returns a snapshot of the category's direct children.
func (c *Category) Children() []*Category {
	if t := c.categorization.topology; t != nil {
		return t.Children(c)
	}
	return append([]*Category(nil), c.children...)
}

// IsRoot reports whether the category has no parents.
func (c *Category) IsRoot() bool {
	return len(c.Parents()) == 0
}

func (c *Category) String() string {
	if c.label == nil {
		return fmt.Sprint(c.properties)
	}
	return fmt.Sprintf("%v%v", c.label, c.properties)
}
