package category

import "fmt"

// Topology derives the edges of a category instead of reading the stored
// parent and child lists. Implementations must return fresh slices.
type Topology interface {
	Parents(c *Category) []*Category
	Children(c *Category) []*Category
}

// Categorization owns a root category and the linearization functions used
// by every category created through it.
type Categorization struct {
	root      *Category
	bottomUp  LinearizationFunc
	topDown   LinearizationFunc
	topology  Topology
	rootLabel any
}

// Option configures a Categorization.
type Option func(*Categorization)

// WithBottomUp replaces the default bottom-up linearization function.
func WithBottomUp(fn LinearizationFunc) Option {
	return func(z *Categorization) { z.bottomUp = fn }
}

// WithTopDown replaces the default top-down linearization function.
func WithTopDown(fn LinearizationFunc) Option {
	return func(z *Categorization) { z.topDown = fn }
}

// WithTopology makes the categorization derive edges from t. Stored parent
// and child lists are not maintained in that mode.
func WithTopology(t Topology) Option {
	return func(z *Categorization) { z.topology = t }
}

// WithRootLabel sets the label of the root category.
func WithRootLabel(label any) Option {
	return func(z *Categorization) { z.rootLabel = label }
}

// NewCategorization creates a categorization and its root category. Unless
// overridden, both linearizations use the Monotonic strategy.
func NewCategorization(opts ...Option) *Categorization {
	z := &Categorization{
		bottomUp: BottomUp(Monotonic),
		topDown:  TopDown(Monotonic),
	}
	for _, opt := range opts {
		opt(z)
	}
	z.root = newCategory(z, z.rootLabel, nil)
	return z
}

// Root returns the unique parentless category.
func (z *Categorization) Root() *Category {
	return z.root
}

// BottomUpFunc returns the bottom-up linearization function.
func (z *Categorization) BottomUpFunc() LinearizationFunc {
	return z.bottomUp
}

// TopDownFunc returns the top-down linearization function.
func (z *Categorization) TopDownFunc() LinearizationFunc {
	return z.topDown
}

// NewCategory creates an unlabeled category under the given parents.
func (z *Categorization) NewCategory(parents ...*Category) (*Category, error) {
	return z.NewLabeledCategory(nil, parents...)
}

// NewLabeledCategory creates a category carrying label. Without parents the
// category is placed directly under the root. Each parent records the new
// category as its last child.
func (z *Categorization) NewLabeledCategory(label any, parents ...*Category) (*Category, error) {
	if z.topology != nil {
		return newCategory(z, label, nil), nil
	}

	if len(parents) == 0 {
		parents = []*Category{z.root}
	}
	for _, p := range parents {
		if p == nil || p.categorization != z {
			return nil, fmt.Errorf("creating category %v: %w", label, ErrForeignParent)
		}
	}

	c := newCategory(z, label, append([]*Category(nil), parents...))
	for _, p := range parents {
		p.children = append(p.children, c)
	}
	return c, nil
}
