package analyze

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

const zooPkg = "github.com/Benny93/catgraph/internal/analyze/testdata/zoo"

func zoo(name string) typecat.TypeID {
	return typecat.TypeID{Package: zooPkg, Name: name}
}

func byName(decls []typesys.Decl) map[string]typesys.Decl {
	out := make(map[string]typesys.Decl, len(decls))
	for _, d := range decls {
		out[d.ID.Name] = d
	}
	return out
}

func TestAnalyzer_LoadPackages(t *testing.T) {
	analyzer := NewAnalyzer()
	decls, err := analyzer.LoadPackages("./testdata/zoo")
	require.NoError(t, err)

	var names []string
	for _, d := range decls {
		names = append(names, d.ID.Name)
	}
	assert.Equal(t, []string{"Animal", "Dog", "Named", "Pet", "Rock"}, names)

	got := byName(decls)

	dog := got["Dog"]
	assert.Equal(t, typecat.KindClass, dog.Kind)
	assert.Equal(t, []typecat.TypeID{zoo("Animal")}, dog.Extends)
	assert.Equal(t, []typecat.TypeID{{Package: "io", Name: "Closer"}}, dog.Implements)
	assert.Equal(t, "zoo.go", filepath.Base(dog.File))
	assert.Positive(t, dog.Line)

	pet := got["Pet"]
	assert.Equal(t, typecat.KindInterface, pet.Kind)
	assert.True(t, pet.Abstract)
	assert.Equal(t, []typecat.TypeID{zoo("Named")}, pet.Extends)
}

func TestAnalyzer_InferImplements(t *testing.T) {
	analyzer := &Analyzer{InferImplements: true, IncludeUnexported: true}
	decls, err := analyzer.LoadPackages("./testdata/zoo")
	require.NoError(t, err)

	got := byName(decls)
	assert.Contains(t, got, "hidden")

	assert.Equal(t, []typecat.TypeID{zoo("Named")}, got["Animal"].Implements)
	assert.Equal(t,
		[]typecat.TypeID{{Package: "io", Name: "Closer"}, zoo("Named"), zoo("Pet")},
		got["Dog"].Implements)
	assert.Empty(t, got["Rock"].Implements)
}

func TestAnalyzer_Hierarchy(t *testing.T) {
	decls, err := NewAnalyzer().LoadPackages("./testdata/zoo")
	require.NoError(t, err)

	catalog := typesys.NewCatalog(typecat.TypeID{Name: "any"})
	catalog.Declare(decls...)
	tz := typecat.NewTypeCategorization(catalog)

	dog, err := tz.Category(zoo("Dog"))
	require.NoError(t, err)

	assert.Equal(t,
		[]typecat.TypeID{zoo("Dog"), zoo("Animal"), {Package: "io", Name: "Closer"}, {Name: "any"}},
		typecat.IDs(dog.BottomUp()))
}

func TestAnalyzer_LoadErrors(t *testing.T) {
	_, err := NewAnalyzer().LoadPackages("./testdata/missing")
	assert.Error(t, err)
}
