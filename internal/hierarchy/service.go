// Package hierarchy serves queries over the type categorization built from a
// declaration catalog. A Service is safe for concurrent use: every call runs
// under a single lock, since the categorization registers types lazily and
// caches linearizations.
package hierarchy

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// TypeRef is the summary of a type returned by queries.
type TypeRef struct {
	Name     string       `json:"name"`
	Kind     typecat.Kind `json:"kind"`
	Abstract bool         `json:"abstract,omitempty"`
}

// TypeInfo is the full view of one type.
type TypeInfo struct {
	Type               TypeRef        `json:"type"`
	Declared           bool           `json:"declared"`
	File               string         `json:"file,omitempty"`
	Line               int            `json:"line,omitempty"`
	Language           string         `json:"language,omitempty"`
	Superclass         string         `json:"superclass,omitempty"`
	Interfaces         []string       `json:"interfaces,omitempty"`
	Parents            []TypeRef      `json:"parents"`
	Children           []TypeRef      `json:"children"`
	KnownSubClasses    []TypeRef      `json:"known_sub_classes,omitempty"`
	KnownSubInterfaces []TypeRef      `json:"known_sub_interfaces,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
}

// Stats describes the loaded hierarchy.
type Stats struct {
	Declared     int `json:"declared"`
	Placeholders int `json:"placeholders"`
	Registered   int `json:"registered"`
	Rejected     int `json:"rejected"`
}

// Service answers hierarchy queries.
type Service struct {
	mu       sync.Mutex
	catalog  *typesys.Catalog
	tz       *typecat.TypeCategorization
	rejected int

	bottomUp typecat.Policy
	topDown  typecat.Policy
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBottomUpPolicy sets the default policy for ancestor queries.
func WithBottomUpPolicy(p typecat.Policy) Option {
	return func(s *Service) { s.bottomUp = p }
}

// WithTopDownPolicy sets the default policy for descendant queries.
func WithTopDownPolicy(p typecat.Policy) Option {
	return func(s *Service) { s.topDown = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New builds a service over catalog.
func New(catalog *typesys.Catalog, opts ...Option) (*Service, error) {
	s := &Service{
		bottomUp: typecat.DefaultBottomUp,
		topDown:  typecat.DefaultTopDown,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(catalog); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the hierarchy with one built from catalog. Every declared
// type is registered up front so that descendant queries see the whole
// catalog. Types whose hierarchy is inconsistent are logged and left out,
// together with their properties.
// Properties set through SetProperty do not survive a reload.
func (s *Service) Reload(catalog *typesys.Catalog) error {
	tz := typecat.NewTypeCategorization(catalog,
		typecat.WithBottomUpPolicy(s.bottomUp),
		typecat.WithTopDownPolicy(s.topDown),
		typecat.WithLogger(s.log),
	)

	rejected := 0
	for _, d := range catalog.Decls() {
		if _, err := tz.Category(d.ID); err != nil {
			rejected++
			s.log.Warn().Err(err).Str("type", d.ID.String()).Msg("skipping type")
		}
	}
	// Rejected types are already counted above.
	if err := catalog.ApplyProperties(tz); err != nil {
		s.log.Warn().Err(err).Msg("skipping properties of rejected types")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	s.tz = tz
	s.rejected = rejected

	s.log.Info().
		Int("types", len(tz.Known())).
		Int("rejected", rejected).
		Msg("loaded type hierarchy")
	return nil
}

// BottomUpPolicy returns the default policy of ancestor queries.
func (s *Service) BottomUpPolicy() typecat.Policy { return s.bottomUp }

// TopDownPolicy returns the default policy of descendant queries.
func (s *Service) TopDownPolicy() typecat.Policy { return s.topDown }

// Stats returns counts describing the loaded hierarchy.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Declared:     len(s.catalog.Decls()),
		Placeholders: len(s.catalog.Placeholders()),
		Registered:   len(s.tz.Known()),
		Rejected:     s.rejected,
	}
}

// Resolve lists the qualified names matching name.
func (s *Service) Resolve(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.catalog.Resolve(name)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return names
}

// category resolves name and returns its category. Callers hold s.mu.
func (s *Service) category(name string) (*typecat.TypeCategory, error) {
	id, err := s.catalog.ResolveOne(name)
	if err != nil {
		return nil, err
	}
	return s.tz.Category(id)
}

// Query selects a linearization.
type Query struct {
	Type string

	// Policy overrides the service default for the direction when set.
	Policy *typecat.Policy

	Filter      Filter
	IncludeSelf bool
}

// Ancestors returns the bottom-up linearization of the queried type.
func (s *Service) Ancestors(q Query) ([]TypeRef, error) {
	return s.linearize(q, true)
}

// Descendants returns the top-down linearization of the queried type.
func (s *Service) Descendants(q Query) ([]TypeRef, error) {
	return s.linearize(q, false)
}

func (s *Service) linearize(q Query, up bool) ([]TypeRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.category(q.Type)
	if err != nil {
		return nil, err
	}

	var lin []*typecat.TypeCategory
	switch {
	case q.Policy != nil:
		lin = tc.LinearizeWith(*q.Policy, up)
	case up:
		lin = tc.BottomUp()
	default:
		lin = tc.TopDown()
	}
	if !q.IncludeSelf {
		lin = lin[1:]
	}
	return refs(q.Filter.apply(lin)), nil
}

// Inspect returns the full view of one type.
func (s *Service) Inspect(name string) (*TypeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.category(name)
	if err != nil {
		return nil, err
	}

	info := &TypeInfo{
		Type:               ref(tc),
		Parents:            refs(tc.Parents()),
		Children:           refs(tc.Children()),
		KnownSubClasses:    refs(tc.KnownSubClasses()),
		KnownSubInterfaces: refs(tc.KnownSubInterfaces()),
	}
	if d, ok := s.catalog.Decl(tc.ID()); ok {
		info.Declared = true
		info.File = d.File
		info.Line = d.Line
		info.Language = d.Language
	}
	if super, ok := tc.Superclass(); ok {
		info.Superclass = super.ID().String()
	}
	for _, i := range tc.SuperInterfaces() {
		info.Interfaces = append(info.Interfaces, i.ID().String())
	}
	if props := tc.LocalProperties(); len(props) > 0 {
		info.Properties = make(map[string]any, len(props))
		for k, v := range props {
			info.Properties[fmt.Sprint(k)] = v
		}
	}
	return info, nil
}

// InBounds reports whether the type is assignable to every bound.
func (s *Service) InBounds(name string, bounds []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.category(name)
	if err != nil {
		return false, err
	}
	ids := make([]typecat.TypeID, 0, len(bounds))
	for _, b := range bounds {
		id, err := s.catalog.ResolveOne(b)
		if err != nil {
			return false, fmt.Errorf("bound: %w", err)
		}
		ids = append(ids, id)
	}
	return tc.IsInBoundaries(ids...), nil
}

// PropertyValue is the result of a property lookup.
type PropertyValue struct {
	Found bool `json:"found"`
	Value any  `json:"value,omitempty"`

	// Local is set when the value is stored on the type itself.
	Local bool `json:"local,omitempty"`

	// Hierarchy lists every value along the bottom-up linearization, nearest
	// first.
	Hierarchy []any `json:"hierarchy,omitempty"`
}

// Property looks key up on the type, falling back to its ancestors.
func (s *Service) Property(name, key string) (PropertyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.category(name)
	if err != nil {
		return PropertyValue{}, err
	}
	v, ok := tc.Property(key)
	return PropertyValue{
		Found:     ok,
		Value:     v,
		Local:     tc.ContainsLocalProperty(key),
		Hierarchy: tc.PropertyInHierarchy(key),
	}, nil
}

// SetProperty stores a property on the type. Without override an existing
// local value is kept and an error wrapping category.ErrPropertyOverride is
// returned.
func (s *Service) SetProperty(name, key string, value any, override bool) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("property key must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.category(name)
	if err != nil {
		return err
	}
	if err := tc.SetPropertyChecked(key, value, override); err != nil {
		return fmt.Errorf("%s: %w", tc.ID(), err)
	}
	s.log.Debug().Str("type", tc.ID().String()).Str("key", key).Msg("set property")
	return nil
}

func ref(tc *typecat.TypeCategory) TypeRef {
	return TypeRef{Name: tc.ID().String(), Kind: tc.Kind(), Abstract: tc.IsAbstract()}
}

func refs(tcs []*typecat.TypeCategory) []TypeRef {
	out := make([]TypeRef, len(tcs))
	for i, tc := range tcs {
		out[i] = ref(tc)
	}
	return out
}

// Filter restricts a linearization to some kinds of types.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterAbstract   Filter = "abstract"
	FilterClasses    Filter = "classes"
	FilterInterfaces Filter = "interfaces"
)

// ParseFilter parses a filter name. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	if !slices.Contains([]Filter{FilterAll, FilterAbstract, FilterClasses, FilterInterfaces}, f) {
		return "", fmt.Errorf("unknown filter %q", s)
	}
	return f, nil
}

func (f Filter) apply(tcs []*typecat.TypeCategory) []*typecat.TypeCategory {
	var keep func(*typecat.TypeCategory) bool
	switch f {
	case FilterAbstract:
		keep = (*typecat.TypeCategory).IsAbstract
	case FilterClasses:
		keep = (*typecat.TypeCategory).IsClass
	case FilterInterfaces:
		keep = (*typecat.TypeCategory).IsInterface
	default:
		return tcs
	}
	return slices.DeleteFunc(slices.Clone(tcs), func(tc *typecat.TypeCategory) bool { return !keep(tc) })
}
