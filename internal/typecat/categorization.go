package typecat

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Benny93/catgraph/internal/category"
)

// TypeCategorization is a category graph whose nodes are types supplied by an
// Introspector. It is not safe for concurrent use.
type TypeCategorization struct {
	in       Introspector
	z        *category.Categorization
	root     *TypeCategory
	byID     map[TypeID]*TypeCategory
	byNode   map[*category.Category]*TypeCategory
	known    []*TypeCategory
	bottomUp Policy
	topDown  Policy
	log      zerolog.Logger
}

// Option configures a TypeCategorization.
type Option func(*TypeCategorization)

// WithBottomUpPolicy sets the policy behind BottomUp, Ancestors and property
// lookup.
func WithBottomUpPolicy(p Policy) Option {
	return func(tz *TypeCategorization) { tz.bottomUp = p }
}

// WithTopDownPolicy sets the policy behind TopDown and Descendants.
func WithTopDownPolicy(p Policy) Option {
	return func(tz *TypeCategorization) { tz.topDown = p }
}

// WithLogger sets the logger used to trace type registration.
func WithLogger(l zerolog.Logger) Option {
	return func(tz *TypeCategorization) { tz.log = l }
}

// NewTypeCategorization creates a graph rooted at in.Top().
func NewTypeCategorization(in Introspector, opts ...Option) *TypeCategorization {
	tz := &TypeCategorization{
		in:       in,
		byID:     make(map[TypeID]*TypeCategory),
		byNode:   make(map[*category.Category]*TypeCategory),
		bottomUp: DefaultBottomUp,
		topDown:  DefaultTopDown,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tz)
	}

	top := in.Top()
	tz.z = category.NewCategorization(
		category.WithTopology(topology{tz}),
		category.WithBottomUp(tz.linearization(tz.bottomUp, true)),
		category.WithTopDown(tz.linearization(tz.topDown, false)),
		category.WithRootLabel(top),
	)
	tz.root = &TypeCategory{
		Category: tz.z.Root(),
		tz:       tz,
		id:       top,
		kind:     KindClass,
		abstract: in.IsAbstract(top),
	}
	tz.byID[top] = tz.root
	tz.byNode[tz.root.Category] = tz.root

	return tz
}

// Root returns the category of the top type.
func (tz *TypeCategorization) Root() *TypeCategory {
	return tz.root
}

// Categorization returns the underlying generic categorization.
func (tz *TypeCategorization) Categorization() *category.Categorization {
	return tz.z
}

// Introspector returns the metadata source the graph is built from.
func (tz *TypeCategorization) Introspector() Introspector {
	return tz.in
}

// BottomUpPolicy returns the default bottom-up policy.
func (tz *TypeCategorization) BottomUpPolicy() Policy {
	return tz.bottomUp
}

// TopDownPolicy returns the default top-down policy.
func (tz *TypeCategorization) TopDownPolicy() Policy {
	return tz.topDown
}

// Lookup returns the category of id if it has already been registered.
func (tz *TypeCategorization) Lookup(id TypeID) (*TypeCategory, bool) {
	tc, ok := tz.byID[id]
	return tc, ok
}

// Known returns every registered type except the root, in registration
// order. A type is always registered after its superclass and interfaces.
func (tz *TypeCategorization) Known() []*TypeCategory {
	return append([]*TypeCategory(nil), tz.known...)
}

// Category returns the category of id, registering it and every type it
// depends on first.
func (tz *TypeCategorization) Category(id TypeID) (*TypeCategory, error) {
	return tz.register(id, make(map[TypeID]bool))
}

func (tz *TypeCategorization) register(id TypeID, visiting map[TypeID]bool) (*TypeCategory, error) {
	if tc, ok := tz.byID[id]; ok {
		return tc, nil
	}
	if visiting[id] {
		return nil, fmt.Errorf("registering %s: %w", id, ErrCyclicHierarchy)
	}
	kind, ok := tz.in.Kind(id)
	if !ok {
		return nil, fmt.Errorf("registering %s: %w", id, ErrUnknownType)
	}

	visiting[id] = true
	defer delete(visiting, id)

	tc := &TypeCategory{
		tz:       tz,
		id:       id,
		kind:     kind,
		abstract: kind == KindInterface || tz.in.IsAbstract(id),
	}

	if kind == KindClass {
		if sid, ok := tz.in.Superclass(id); ok {
			super, err := tz.register(sid, visiting)
			if err != nil {
				return nil, fmt.Errorf("superclass of %s: %w", id, err)
			}
			if super.kind != KindClass {
				return nil, fmt.Errorf("%s extends %s %s: %w", id, super.kind, sid, ErrKindMismatch)
			}
			tc.superclass = super
		}
	}

	seen := make(map[TypeID]bool)
	for _, iid := range tz.in.Interfaces(id) {
		if seen[iid] {
			continue
		}
		seen[iid] = true

		iface, err := tz.register(iid, visiting)
		if err != nil {
			return nil, fmt.Errorf("interface of %s: %w", id, err)
		}
		if iface.kind != KindInterface {
			return nil, fmt.Errorf("%s implements %s %s: %w", id, iface.kind, iid, ErrKindMismatch)
		}
		tc.interfaces = append(tc.interfaces, iface)
	}

	node, err := tz.z.NewLabeledCategory(id)
	if err != nil {
		return nil, err
	}
	tc.Category = node

	tz.byID[id] = tc
	tz.byNode[node] = tc
	tz.known = append(tz.known, tc)

	tz.log.Debug().
		Str("type", id.String()).
		Str("kind", string(kind)).
		Int("interfaces", len(tc.interfaces)).
		Msg("registered type")

	return tc, nil
}

// wrap maps generic nodes back to their type categories. Every node of the
// categorization is created by register or NewTypeCategorization.
func (tz *TypeCategorization) wrap(nodes []*category.Category) []*TypeCategory {
	out := make([]*TypeCategory, len(nodes))
	for i, n := range nodes {
		out[i] = tz.byNode[n]
	}
	return out
}

func unwrap(tcs []*TypeCategory) []*category.Category {
	out := make([]*category.Category, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.Category
	}
	return out
}

func (tz *TypeCategorization) neighbors(p Policy, up bool) category.Neighbors {
	return func(c *category.Category) []*category.Category {
		tc := tz.byNode[c]
		if tc == nil {
			return nil
		}
		if up {
			return unwrap(tc.ParentsWith(p.Priority, p.InterfaceOrder))
		}
		return unwrap(tc.ChildrenWith(p.Priority))
	}
}

func (tz *TypeCategorization) linearization(p Policy, up bool) category.LinearizationFunc {
	next := tz.neighbors(p, up)
	return func(c *category.Category) []*category.Category {
		return category.Linearize(c, next, p.Strategy)
	}
}

// topology exposes the default type edges to the generic category layer.
type topology struct {
	tz *TypeCategorization
}

func (t topology) Parents(c *category.Category) []*category.Category {
	return t.tz.neighbors(Policy{Priority: ClassesFirst, InterfaceOrder: Declaration}, true)(c)
}

func (t topology) Children(c *category.Category) []*category.Category {
	return t.tz.neighbors(Policy{Priority: InterfacesFirst}, false)(c)
}
