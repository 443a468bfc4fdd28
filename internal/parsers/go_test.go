package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typecat"
)

func TestGoParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewGoParser()

	t.Run("ParseStruct", func(t *testing.T) {
		content := []byte(`
package shapes

type Circle struct {
	Radius float64
}
`)
		result, err := parser.Parse("shapes/circle.go", content)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, "shapes", result.Package)
		require.Len(t, result.Decls, 1)

		d := result.Decls[0]
		assert.Equal(t, typecat.TypeID{Package: "shapes", Name: "Circle"}, d.ID)
		assert.Equal(t, typecat.KindClass, d.Kind)
		assert.False(t, d.Abstract)
		assert.Empty(t, d.Extends)
		assert.Equal(t, "shapes/circle.go", d.File)
		assert.Equal(t, 4, d.Line)
		assert.Equal(t, "go", d.Language)
	})

	t.Run("ParseEmbeddedTypes", func(t *testing.T) {
		content := []byte(`
package shapes

import (
	"sync"

	geo "github.com/acme/geometry"
)

type Circle struct {
	*Shape
	geo.Point
	sync.Mutex
	Container[int]
	name string
}
`)
		result, err := parser.Parse("shapes/circle.go", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 1)

		assert.Equal(t, []typecat.TypeID{
			{Package: "shapes", Name: "Shape"},
			{Package: "geometry", Name: "Point"},
			{Package: "sync", Name: "Mutex"},
			{Package: "shapes", Name: "Container"},
		}, result.Decls[0].Extends)
		assert.Equal(t, "geometry", result.Imports["geo"])
	})

	t.Run("ParseInterface", func(t *testing.T) {
		content := []byte(`
package store

import "io"

type ReadCloser interface {
	io.Reader
	io.Closer
	error
	Flush() error
}

type Number interface {
	~int | ~float64
}
`)
		result, err := parser.Parse("store/store.go", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 2)

		rc := result.Decls[0]
		assert.Equal(t, typecat.KindInterface, rc.Kind)
		assert.True(t, rc.Abstract)
		assert.Equal(t, []typecat.TypeID{
			{Package: "io", Name: "Reader"},
			{Package: "io", Name: "Closer"},
			{Name: "error"},
		}, rc.Extends)

		assert.Empty(t, result.Decls[1].Extends)
	})

	t.Run("SkipsAliasesAndNamedTypes", func(t *testing.T) {
		content := []byte(`
package main

type ID = string
type Celsius float64
type Handler func()
`)
		result, err := parser.Parse("main.go", content)
		require.NoError(t, err)
		assert.Empty(t, result.Decls)
	})

	t.Run("InvalidSource", func(t *testing.T) {
		_, err := parser.Parse("broken.go", []byte("package"))
		assert.Error(t, err)
	})
}

func TestForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"main.go", "go", true},
		{"main_test.go", "", false},
		{"src/app.ts", "typescript", true},
		{"src/App.tsx", "typescript", true},
		{"types.d.ts", "", false},
		{"pkg/mod.py", "python", true},
		{"README.md", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ForFile(tt.name)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, p.Language())
			}
		})
	}

	assert.Equal(t, []string{".go", ".py", ".ts", ".tsx"}, Extensions())
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A", "Map<K, V>", "B[int, str]"}, splitList(" A, Map<K, V>, B[int, str] "))
	assert.Empty(t, splitList("  "))
}
