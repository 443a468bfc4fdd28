package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func relPaths(entries []FileEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.RelPath)
	}
	return paths
}

func TestWalkRepo(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.py":              "class Main: pass",
		"src/app.py":           "class App: pass",
		"src/lib/utils.ts":     "export class Util {}",
		"shapes/shape.go":      "package shapes\n\ntype Shape interface{}\n",
		"shapes/shape_test.go": "package shapes\n",
		"README.md":            "# README",
		".gitignore":           "# generated\ngen/\n",
		"gen/out.py":           "class Gen: pass",
		"node_modules/x/i.ts":  "export class X {}",
		".catgraph/db.go":      "package db\n",
	})

	t.Run("WalkAllSupportedFiles", func(t *testing.T) {
		t.Parallel()

		entries, err := WalkRepo(tmpDir, nil)
		require.NoError(t, err)

		paths := relPaths(entries)
		assert.Contains(t, paths, "main.py")
		assert.Contains(t, paths, "src/app.py")
		assert.Contains(t, paths, "src/lib/utils.ts")
		assert.Contains(t, paths, "shapes/shape.go")
		assert.Contains(t, paths, "gen/out.py")
		assert.NotContains(t, paths, "shapes/shape_test.go")
		assert.NotContains(t, paths, "README.md")
	})

	t.Run("RespectIgnoreRules", func(t *testing.T) {
		t.Parallel()

		matcher, err := LoadIgnoreMatcher(tmpDir)
		require.NoError(t, err)

		entries, err := WalkRepo(tmpDir, matcher)
		require.NoError(t, err)

		for _, p := range relPaths(entries) {
			assert.False(t, strings.HasPrefix(p, "gen/"), p)
			assert.False(t, strings.HasPrefix(p, "node_modules/"), p)
			assert.False(t, strings.HasPrefix(p, ".catgraph/"), p)
		}
		assert.Len(t, entries, 4)
	})

	t.Run("DetectLanguageAndHash", func(t *testing.T) {
		t.Parallel()

		entries, err := WalkRepo(tmpDir, nil)
		require.NoError(t, err)

		for _, e := range entries {
			if e.RelPath != "main.py" {
				continue
			}
			assert.Equal(t, "python", e.Language)
			assert.Equal(t, filepath.Join(tmpDir, "main.py"), e.Path)

			sum := sha256.Sum256([]byte("class Main: pass"))
			assert.Equal(t, hex.EncodeToString(sum[:]), e.SHA256)
			return
		}
		t.Fatal("main.py not walked")
	})
}

func TestLoadGitignore(t *testing.T) {
	t.Parallel()

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()

		patterns, err := loadGitignore(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("SkipsCommentsAndBlankLines", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeTree(t, dir, map[string]string{".gitignore": "# comment\n\n*.gen.py\nbuild/\n"})

		patterns, err := loadGitignore(dir)
		require.NoError(t, err)
		assert.Len(t, patterns, 2)
	})
}

func TestGetLanguage(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.go":      "go",
		"a.py":      "python",
		"a.ts":      "typescript",
		"a.tsx":     "typescript",
		"a.d.ts":    "",
		"a_test.go": "",
		"a.rs":      "",
	}
	for name, want := range tests {
		assert.Equal(t, want, getLanguage(name), name)
	}
}
