// Package storage persists extracted type declarations.
//
// Only declarations are stored. The category graph is rebuilt from them on
// every load, so property values set at runtime do not survive a restart.
package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// IndexMeta describes the last indexing run.
type IndexMeta struct {
	RepoPath  string         `json:"repo_path"`
	IndexedAt time.Time      `json:"indexed_at"`
	Files     int            `json:"files"`
	Decls     int            `json:"decls"`
	Languages map[string]int `json:"languages,omitempty"`
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Reset deletes every declaration and the index metadata.
	Reset(ctx context.Context) error

	// PutDecls inserts or replaces declarations by id.
	PutDecls(ctx context.Context, decls []typesys.Decl) error

	// RemoveDeclsByFile deletes all declarations whose file path matches.
	// Returns the number of declarations removed.
	RemoveDeclsByFile(ctx context.Context, filePath string) (int, error)

	// GetDecl returns a single declaration by id, or nil if not found.
	GetDecl(ctx context.Context, id typecat.TypeID) (*typesys.Decl, error)

	// AllDecls returns every declaration ordered by file, line and id.
	AllDecls(ctx context.Context) ([]typesys.Decl, error)

	// DeclCount returns the number of stored declarations.
	DeclCount() int

	// SaveMeta records metadata about an indexing run.
	SaveMeta(ctx context.Context, meta *IndexMeta) error

	// LoadMeta returns the last saved metadata, or nil if none.
	LoadMeta(ctx context.Context) (*IndexMeta, error)
}

// LoadCatalog reads every declaration from b into a new catalog.
func LoadCatalog(ctx context.Context, b Backend, top typecat.TypeID) (*typesys.Catalog, error) {
	decls, err := b.AllDecls(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading declarations: %w", err)
	}
	c := typesys.NewCatalog(top)
	c.Declare(decls...)
	return c, nil
}

func sortDecls(decls []typesys.Decl) {
	slices.SortFunc(decls, func(a, b typesys.Decl) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.ID.String(), b.ID.String()),
		)
	})
}
