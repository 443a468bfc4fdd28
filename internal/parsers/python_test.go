package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typecat"
)

func TestPythonParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewPythonParser()

	t.Run("ParseClass", func(t *testing.T) {
		content := []byte(`
from .base import Animal
from zoo.traits import Named as N

class Dog(Animal, N):
    def bark(self):
        pass
`)
		result, err := parser.Parse("zoo/dogs.py", content)
		require.NoError(t, err)
		assert.Equal(t, "zoo.dogs", result.Package)
		require.Len(t, result.Decls, 1)

		d := result.Decls[0]
		assert.Equal(t, typecat.TypeID{Package: "zoo.dogs", Name: "Dog"}, d.ID)
		assert.Equal(t, typecat.KindClass, d.Kind)
		assert.Equal(t, 5, d.Line)
		assert.Equal(t, "python", d.Language)
		assert.Equal(t, []typecat.TypeID{
			{Package: "zoo.base", Name: "Animal"},
			{Package: "zoo.traits", Name: "Named"},
		}, d.Extends)
	})

	t.Run("ParseProtocol", func(t *testing.T) {
		content := []byte(`
from typing import Protocol

class Closer(Protocol):
    def close(self) -> None: ...

class ReadCloser(Closer, Protocol):
    pass
`)
		result, err := parser.Parse("io.py", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 2)

		closer := result.Decls[0]
		assert.Equal(t, typecat.KindInterface, closer.Kind)
		assert.True(t, closer.Abstract)
		assert.Empty(t, closer.Extends)

		rc := result.Decls[1]
		assert.Equal(t, typecat.KindInterface, rc.Kind)
		assert.Equal(t, []typecat.TypeID{{Package: "io", Name: "Closer"}}, rc.Extends)
	})

	t.Run("ParseAbstract", func(t *testing.T) {
		content := []byte(`
import abc
from abc import ABC, abstractmethod

class Shape(ABC):
    pass

class Meta(metaclass=abc.ABCMeta):
    pass

class Solid(object):
    @abstractmethod
    def volume(self):
        pass

class Plain:
    pass
`)
		result, err := parser.Parse("shapes.py", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 4)

		for i, want := range []bool{true, true, true, false} {
			assert.Equal(t, want, result.Decls[i].Abstract, result.Decls[i].ID.Name)
			assert.Empty(t, result.Decls[i].Extends, result.Decls[i].ID.Name)
		}
	})

	t.Run("ParseGenericAndDotted", func(t *testing.T) {
		content := []byte(`
import collections.abc as cabc

class Box(Generic[T], cabc.Sized):
    pass
`)
		result, err := parser.Parse("box.py", content)
		require.NoError(t, err)
		require.Len(t, result.Decls, 1)
		assert.Equal(t, []typecat.TypeID{{Package: "cabc", Name: "Sized"}}, result.Decls[0].Extends)
	})
}

func TestResolveRelativeModule(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pkg.geo.shapes", resolveRelativeModule("pkg.geo.circle", ".shapes"))
	assert.Equal(t, "pkg.util", resolveRelativeModule("pkg.geo.circle", "..util"))
	assert.Equal(t, "pkg.geo", resolveRelativeModule("pkg.geo.circle", "."))
	assert.Equal(t, "zoo", resolveRelativeModule("pkg.geo.circle", "zoo"))
}
