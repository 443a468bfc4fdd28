package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/catgraph/internal/typesys"
)

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "badger")

		backend := NewBadgerBackend()
		err := backend.Initialize(dbPath, false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		assert.NoError(t, backend.Close())
		assert.NoError(t, backend.Close())
	})

	t.Run("Persistence", func(t *testing.T) {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "badger")

		backend1 := NewBadgerBackend()
		require.NoError(t, backend1.Initialize(dbPath, false))
		require.NoError(t, backend1.PutDecls(ctx, sampleDecls()))
		require.NoError(t, backend1.Close())

		backend2 := NewBadgerBackend()
		require.NoError(t, backend2.Initialize(dbPath, true))
		defer func() { _ = backend2.Close() }()

		assert.Equal(t, 4, backend2.DeclCount())
		d, err := backend2.GetDecl(ctx, tid("zoo.Named"))
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.True(t, d.Abstract)
	})

	t.Run("NotInitialized", func(t *testing.T) {
		backend := NewBadgerBackend()

		_, err := backend.AllDecls(context.Background())
		assert.Error(t, err)
	})
}

func TestBadgerBackend_Properties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	defer func() { _ = backend.Close() }()

	d := typesys.Decl{
		ID:         tid("shapes.Square"),
		File:       "types.yaml",
		Properties: map[string]any{"sides": 4, "label": "square"},
	}
	require.NoError(t, backend.PutDecls(ctx, []typesys.Decl{d}))

	got, err := backend.GetDecl(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// JSON turns numbers into float64.
	assert.Equal(t, float64(4), got.Properties["sides"])
	assert.Equal(t, "square", got.Properties["label"])
}

func TestBadgerBackend_Cancelled(t *testing.T) {
	t.Parallel()

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	defer func() { _ = backend.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := backend.PutDecls(ctx, sampleDecls())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backend.DeclCount())
}
