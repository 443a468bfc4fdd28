package storage

import (
	"context"
	"sync"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// MemoryBackend is an in-memory implementation of Backend, used for
// manifests and tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	decls map[typecat.TypeID]typesys.Decl
	meta  *IndexMeta
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		decls: make(map[typecat.TypeID]typesys.Decl),
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decls == nil {
		m.decls = make(map[typecat.TypeID]typesys.Decl)
	}
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decls = nil
	m.meta = nil
	return nil
}

// Reset implements Backend.
func (m *MemoryBackend) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decls = make(map[typecat.TypeID]typesys.Decl)
	m.meta = nil
	return nil
}

// PutDecls implements Backend.
func (m *MemoryBackend) PutDecls(ctx context.Context, decls []typesys.Decl) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range decls {
		m.decls[d.ID] = d
	}
	return nil
}

// RemoveDeclsByFile implements Backend.
func (m *MemoryBackend) RemoveDeclsByFile(ctx context.Context, filePath string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, d := range m.decls {
		if d.File == filePath {
			delete(m.decls, id)
			count++
		}
	}
	return count, nil
}

// GetDecl implements Backend.
func (m *MemoryBackend) GetDecl(ctx context.Context, id typecat.TypeID) (*typesys.Decl, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.decls[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// AllDecls implements Backend.
func (m *MemoryBackend) AllDecls(ctx context.Context) ([]typesys.Decl, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]typesys.Decl, 0, len(m.decls))
	for _, d := range m.decls {
		out = append(out, d)
	}
	sortDecls(out)
	return out, nil
}

// DeclCount implements Backend.
func (m *MemoryBackend) DeclCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.decls)
}

// SaveMeta implements Backend.
func (m *MemoryBackend) SaveMeta(ctx context.Context, meta *IndexMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *meta
	m.meta = &cp
	return nil
}

// LoadMeta implements Backend.
func (m *MemoryBackend) LoadMeta(ctx context.Context) (*IndexMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.meta == nil {
		return nil, nil
	}
	cp := *m.meta
	return &cp, nil
}
