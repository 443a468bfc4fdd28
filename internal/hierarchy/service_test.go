package hierarchy

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/category"
	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

const shapesManifest = `
top: Object
types:
  - name: shapes.Drawable
    kind: interface
  - name: shapes.Comparable
    kind: interface
  - name: shapes.Serializable
    kind: interface
  - name: shapes.Shape
    abstract: true
    implements: [shapes.Drawable, shapes.Comparable]
    properties:
      renderer: vector
  - name: shapes.Circle
    extends: [shapes.Shape]
    implements: [shapes.Serializable]
  - name: shapes.Square
    extends: [shapes.Shape]
`

func loadCatalog(t *testing.T, manifest string) *typesys.Catalog {
	t.Helper()
	m, err := typesys.LoadManifest(strings.NewReader(manifest))
	require.NoError(t, err)
	c, err := m.Catalog()
	require.NoError(t, err)
	return c
}

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := New(loadCatalog(t, shapesManifest))
	require.NoError(t, err)
	return s
}

func names(refs []TypeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

func TestAncestors(t *testing.T) {
	t.Parallel()
	s := newService(t)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "Default",
			query: Query{Type: "shapes.Circle"},
			want:  []string{"shapes.Shape", "shapes.Drawable", "shapes.Comparable", "shapes.Serializable", "Object"},
		},
		{
			name:  "IncludeSelf",
			query: Query{Type: "Circle", IncludeSelf: true},
			want:  []string{"shapes.Circle", "shapes.Shape", "shapes.Drawable", "shapes.Comparable", "shapes.Serializable", "Object"},
		},
		{
			name:  "Interfaces",
			query: Query{Type: "shapes.Circle", Filter: FilterInterfaces},
			want:  []string{"shapes.Drawable", "shapes.Comparable", "shapes.Serializable"},
		},
		{
			name:  "Classes",
			query: Query{Type: "shapes.Circle", Filter: FilterClasses},
			want:  []string{"shapes.Shape", "Object"},
		},
		{
			name:  "Abstract",
			query: Query{Type: "shapes.Circle", Filter: FilterAbstract},
			want:  []string{"shapes.Shape", "shapes.Drawable", "shapes.Comparable", "shapes.Serializable"},
		},
		{
			name: "InterfacesFirstPolicy",
			query: Query{Type: "shapes.Circle", Policy: &typecat.Policy{
				Priority:       typecat.InterfacesFirst,
				InterfaceOrder: typecat.Declaration,
				Strategy:       category.Monotonic,
			}},
			want: []string{"shapes.Serializable", "shapes.Shape", "shapes.Drawable", "shapes.Comparable", "Object"},
		},
		{
			name:  "Root",
			query: Query{Type: "Object"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Ancestors(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestDescendants(t *testing.T) {
	t.Parallel()
	s := newService(t)

	got, err := s.Descendants(Query{Type: "shapes.Shape"})
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes.Circle", "shapes.Square"}, names(got))

	got, err = s.Descendants(Query{Type: "shapes.Drawable"})
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes.Shape", "shapes.Circle", "shapes.Square"}, names(got))

	got, err = s.Descendants(Query{Type: "shapes.Square"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnknownType(t *testing.T) {
	t.Parallel()
	s := newService(t)

	_, err := s.Ancestors(Query{Type: "Triangle"})
	assert.ErrorIs(t, err, typesys.ErrTypeNotFound)

	_, err = s.Inspect("Triangle")
	assert.ErrorIs(t, err, typesys.ErrTypeNotFound)

	_, err = s.InBounds("shapes.Circle", []string{"Triangle"})
	assert.ErrorIs(t, err, typesys.ErrTypeNotFound)
}

func TestInspect(t *testing.T) {
	t.Parallel()
	s := newService(t)

	info, err := s.Inspect("shapes.Circle")
	require.NoError(t, err)

	assert.Equal(t, "shapes.Circle", info.Type.Name)
	assert.Equal(t, typecat.KindClass, info.Type.Kind)
	assert.False(t, info.Type.Abstract)
	assert.True(t, info.Declared)
	assert.Equal(t, "manifest", info.Language)
	assert.Equal(t, "shapes.Shape", info.Superclass)
	assert.Equal(t, []string{"shapes.Serializable"}, info.Interfaces)
	assert.Equal(t, []string{"shapes.Shape", "shapes.Serializable"}, names(info.Parents))
	assert.Empty(t, info.Children)
	assert.Empty(t, info.Properties)

	info, err = s.Inspect("shapes.Shape")
	require.NoError(t, err)
	assert.True(t, info.Type.Abstract)
	assert.Equal(t, map[string]any{"renderer": "vector"}, info.Properties)
	assert.Equal(t, []string{"shapes.Circle", "shapes.Square"}, names(info.KnownSubClasses))
	assert.Empty(t, info.KnownSubInterfaces)

	info, err = s.Inspect("Object")
	require.NoError(t, err)
	assert.False(t, info.Declared)
	assert.Empty(t, info.Parents)
}

func TestInBounds(t *testing.T) {
	t.Parallel()
	s := newService(t)

	ok, err := s.InBounds("shapes.Circle", []string{"shapes.Drawable", "shapes.Serializable"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InBounds("shapes.Circle", []string{"shapes.Square"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.InBounds("shapes.Square", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProperties(t *testing.T) {
	t.Parallel()
	s := newService(t)

	v, err := s.Property("shapes.Circle", "renderer")
	require.NoError(t, err)
	assert.Equal(t, PropertyValue{Found: true, Value: "vector", Hierarchy: []any{"vector"}}, v)

	v, err = s.Property("shapes.Circle", "missing")
	require.NoError(t, err)
	assert.False(t, v.Found)
	assert.Nil(t, v.Value)

	require.NoError(t, s.SetProperty("shapes.Circle", "renderer", "raster", false))

	err = s.SetProperty("shapes.Circle", "renderer", "ascii", false)
	require.ErrorIs(t, err, category.ErrPropertyOverride)

	v, err = s.Property("shapes.Circle", "renderer")
	require.NoError(t, err)
	assert.Equal(t, "raster", v.Value)
	assert.True(t, v.Local)
	assert.Equal(t, []any{"raster", "vector"}, v.Hierarchy)

	require.NoError(t, s.SetProperty("shapes.Circle", "renderer", "ascii", true))
	v, err = s.Property("shapes.Circle", "renderer")
	require.NoError(t, err)
	assert.Equal(t, "ascii", v.Value)

	assert.Error(t, s.SetProperty("shapes.Circle", " ", 1, true))
}

func TestReload(t *testing.T) {
	t.Parallel()
	s := newService(t)
	require.NoError(t, s.SetProperty("shapes.Square", "sides", 4, false))

	require.NoError(t, s.Reload(loadCatalog(t, shapesManifest+`
  - name: shapes.Rounded
    extends: [shapes.Square]
`)))

	got, err := s.Descendants(Query{Type: "shapes.Square"})
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes.Rounded"}, names(got))

	v, err := s.Property("shapes.Square", "sides")
	require.NoError(t, err)
	assert.False(t, v.Found)
}

func TestStatsAndRejectedTypes(t *testing.T) {
	t.Parallel()

	s, err := New(loadCatalog(t, `
types:
  - name: loop.A
    extends: [loop.B]
  - name: loop.B
    extends: [loop.A]
  - name: ok.C
    implements: [ext.Marker]
`))
	require.NoError(t, err)

	assert.Equal(t, Stats{Declared: 3, Placeholders: 1, Registered: 2, Rejected: 2}, s.Stats())

	_, err = s.Ancestors(Query{Type: "loop.A"})
	assert.ErrorIs(t, err, typecat.ErrCyclicHierarchy)

	t.Run("RejectedTypeWithProperties", func(t *testing.T) {
		t.Parallel()

		s, err := New(loadCatalog(t, `
types:
  - name: ok.Good
    properties:
      k: v
  - name: loop.A
    extends: [loop.B]
    properties:
      k: a
  - name: loop.B
    extends: [loop.A]
`))
		require.NoError(t, err)
		assert.Equal(t, Stats{Declared: 3, Registered: 1, Rejected: 2}, s.Stats())

		v, err := s.Property("ok.Good", "k")
		require.NoError(t, err)
		assert.True(t, v.Found)
		assert.Equal(t, "v", v.Value)

		_, err = s.Property("loop.A", "k")
		assert.ErrorIs(t, err, typecat.ErrCyclicHierarchy)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()
	s := newService(t)

	assert.Equal(t, []string{"shapes.Circle"}, s.Resolve("circle"))
	assert.Equal(t, []string{"Object"}, s.Resolve("Object"))
	assert.Empty(t, s.Resolve("Triangle"))
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Filter{
		"":           FilterAll,
		"all":        FilterAll,
		"Abstract":   FilterAbstract,
		"classes":    FilterClasses,
		"interfaces": FilterInterfaces,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilter("enums")
	assert.Error(t, err)
}

func TestConcurrentQueries(t *testing.T) {
	t.Parallel()
	s := newService(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.Ancestors(Query{Type: "shapes.Circle"})
				return
			}
			_ = s.SetProperty("shapes.Square", "n", i, true)
		}()
	}
	wg.Wait()

	v, err := s.Property("shapes.Square", "n")
	require.NoError(t, err)
	assert.True(t, v.Found)
}
