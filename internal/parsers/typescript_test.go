package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typecat"
)

func TestTypeScriptParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewTypeScriptParser()

	t.Run("ParseClassHeritage", func(t *testing.T) {
		content := []byte(`import { Shape } from './shape';
import { Comparable as Cmp, Serializable } from '../core/traits';
import * as geo from 'geometry';

export class Circle extends Shape implements Cmp<Circle>, Serializable, geo.Located {
  radius = 1;
}
`)
		result, err := parser.Parse("src/shapes/circle.ts", content)
		require.NoError(t, err)
		assert.Equal(t, "src/shapes/circle", result.Package)
		require.Len(t, result.Decls, 1)

		d := result.Decls[0]
		assert.Equal(t, typecat.TypeID{Package: "src/shapes/circle", Name: "Circle"}, d.ID)
		assert.Equal(t, typecat.KindClass, d.Kind)
		assert.False(t, d.Abstract)
		assert.Equal(t, 5, d.Line)
		assert.Equal(t, []typecat.TypeID{{Package: "src/shapes/shape", Name: "Shape"}}, d.Extends)
		assert.Equal(t, []typecat.TypeID{
			{Package: "src/core/traits", Name: "Comparable"},
			{Package: "src/core/traits", Name: "Serializable"},
			{Package: "geometry", Name: "Located"},
		}, d.Implements)
	})

	t.Run("ParseAbstractAndGeneric", func(t *testing.T) {
		content := []byte(`
export abstract class Repository<T extends Entity> extends Base<T> {
}

class Local {}
`)
		result, err := parser.Parse("repo.ts", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 2)

		repo := result.Decls[0]
		assert.Equal(t, "Repository", repo.ID.Name)
		assert.True(t, repo.Abstract)
		assert.Equal(t, []typecat.TypeID{{Name: "Base"}}, repo.Extends)

		assert.Equal(t, "Local", result.Decls[1].ID.Name)
		assert.Empty(t, result.Decls[1].Extends)
	})

	t.Run("ParseInterfaces", func(t *testing.T) {
		content := []byte(`
export interface Named {
  name: string;
}

interface Pet extends Named, Map<string, number> {
}
`)
		result, err := parser.Parse("pets.ts", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 2)

		pet := result.Decls[1]
		assert.Equal(t, typecat.KindInterface, pet.Kind)
		assert.True(t, pet.Abstract)
		assert.Equal(t, []typecat.TypeID{
			{Package: "pets", Name: "Named"},
			{Name: "Map"},
		}, pet.Extends)
	})

	t.Run("SourceOrder", func(t *testing.T) {
		content := []byte(`
interface A {}
class B implements A {}
interface C extends A {}
`)
		result, err := parser.Parse("order.ts", content)
		require.NoError(t, err)

		var names []string
		for _, d := range result.Decls {
			names = append(names, d.ID.Name)
		}
		assert.Equal(t, []string{"A", "B", "C"}, names)
	})
}
