package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

func tid(s string) typecat.TypeID { return typecat.ParseTypeID(s) }

func sampleDecls() []typesys.Decl {
	return []typesys.Decl{
		{ID: tid("zoo.Dog"), Kind: typecat.KindClass, Extends: []typecat.TypeID{tid("zoo.Animal")}, File: "zoo/dog.go", Line: 10, Language: "go"},
		{ID: tid("zoo.Animal"), Kind: typecat.KindClass, Abstract: true, File: "zoo/animal.go", Line: 3, Language: "go"},
		{ID: tid("zoo.Puppy"), Kind: typecat.KindClass, Extends: []typecat.TypeID{tid("zoo.Dog")}, File: "zoo/dog.go", Line: 2, Language: "go"},
		{ID: tid("zoo.Named"), Kind: typecat.KindInterface, Abstract: true, File: "zoo/animal.go", Line: 20, Language: "go"},
	}
}

// backends returns a fresh instance of every implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	badgerBackend := NewBadgerBackend()
	require.NoError(t, badgerBackend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = badgerBackend.Close() })

	memory := NewMemoryBackend()
	require.NoError(t, memory.Initialize("", false))

	return map[string]Backend{"Memory": memory, "Badger": badgerBackend}
}

func TestBackend_PutAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutDecls(ctx, sampleDecls()))
			assert.Equal(t, 4, b.DeclCount())

			d, err := b.GetDecl(ctx, tid("zoo.Dog"))
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, []typecat.TypeID{tid("zoo.Animal")}, d.Extends)
			assert.Equal(t, 10, d.Line)

			missing, err := b.GetDecl(ctx, tid("zoo.Cat"))
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestBackend_AllDeclsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutDecls(ctx, sampleDecls()))

			all, err := b.AllDecls(ctx)
			require.NoError(t, err)

			var got []string
			for _, d := range all {
				got = append(got, d.ID.String())
			}
			assert.Equal(t, []string{"zoo.Animal", "zoo.Named", "zoo.Puppy", "zoo.Dog"}, got)
		})
	}
}

func TestBackend_Replace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutDecls(ctx, sampleDecls()))

			moved := typesys.Decl{ID: tid("zoo.Dog"), Kind: typecat.KindClass, File: "zoo/pets.go", Line: 1}
			require.NoError(t, b.PutDecls(ctx, []typesys.Decl{moved}))
			assert.Equal(t, 4, b.DeclCount())

			// Only Puppy is still declared in dog.go.
			n, err := b.RemoveDeclsByFile(ctx, "zoo/dog.go")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			d, err := b.GetDecl(ctx, tid("zoo.Dog"))
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, "zoo/pets.go", d.File)
		})
	}
}

func TestBackend_RemoveDeclsByFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutDecls(ctx, sampleDecls()))

			n, err := b.RemoveDeclsByFile(ctx, "zoo/animal.go")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, 2, b.DeclCount())

			n, err = b.RemoveDeclsByFile(ctx, "zoo/none.go")
			require.NoError(t, err)
			assert.Zero(t, n)

			d, err := b.GetDecl(ctx, tid("zoo.Animal"))
			require.NoError(t, err)
			assert.Nil(t, d)
		})
	}
}

func TestBackend_Meta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			meta, err := b.LoadMeta(ctx)
			require.NoError(t, err)
			assert.Nil(t, meta)

			want := &IndexMeta{
				RepoPath:  "/repo",
				IndexedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				Files:     3,
				Decls:     7,
				Languages: map[string]int{"go": 3},
			}
			require.NoError(t, b.SaveMeta(ctx, want))

			got, err := b.LoadMeta(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want.RepoPath, got.RepoPath)
			assert.True(t, want.IndexedAt.Equal(got.IndexedAt))
			assert.Equal(t, want.Languages, got.Languages)
		})
	}
}

func TestBackend_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutDecls(ctx, sampleDecls()))
			require.NoError(t, b.SaveMeta(ctx, &IndexMeta{Files: 1}))

			require.NoError(t, b.Reset(ctx))
			assert.Zero(t, b.DeclCount())

			all, err := b.AllDecls(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			meta, err := b.LoadMeta(ctx)
			require.NoError(t, err)
			assert.Nil(t, meta)
		})
	}
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					d := typesys.Decl{ID: tid(fmt.Sprintf("p.T%d", i)), File: fmt.Sprintf("f%d.go", i)}
					assert.NoError(t, b.PutDecls(ctx, []typesys.Decl{d}))
					_, err := b.AllDecls(ctx)
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 10, b.DeclCount())
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := NewMemoryBackend()
	require.NoError(t, b.PutDecls(ctx, sampleDecls()))

	catalog, err := LoadCatalog(ctx, b, tid("Object"))
	require.NoError(t, err)
	assert.Equal(t, 4, catalog.Len())

	tz := typecat.NewTypeCategorization(catalog)
	puppy, err := tz.Category(tid("zoo.Puppy"))
	require.NoError(t, err)
	assert.Equal(t,
		[]typecat.TypeID{tid("zoo.Puppy"), tid("zoo.Dog"), tid("zoo.Animal"), tid("Object")},
		typecat.IDs(puppy.BottomUp()))
}
