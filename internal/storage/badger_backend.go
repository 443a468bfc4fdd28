package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// Key prefixes for different data types
const (
	prefixDecl = "d:" // declaration data, keyed by qualified type name
	prefixFile = "f:" // file index: f:<file>\x00<type>
	keyMeta    = "m:index"
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	declCount   int
}

var _ Backend = (*BadgerBackend)(nil)

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return b.countDecls()
}

func (b *BadgerBackend) countDecls() error {
	b.declCount = 0
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDecl)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			b.declCount++
		}
		return nil
	})
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

func (b *BadgerBackend) checkOpen() error {
	if !b.initialized || b.db == nil {
		return errors.New("badger backend is not initialized")
	}
	return nil
}

// Reset deletes all stored data.
func (b *BadgerBackend) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("dropping data: %w", err)
	}
	b.declCount = 0
	return nil
}

// PutDecls inserts or replaces declarations. A declaration that moved to a
// different file loses its old file index entry.
func (b *BadgerBackend) PutDecls(ctx context.Context, decls []typesys.Decl) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}

	added := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		for i := range decls {
			if err := ctx.Err(); err != nil {
				return err
			}
			d := &decls[i]

			prev, err := getDecl(txn, d.ID)
			if err != nil {
				return err
			}
			if prev == nil {
				added++
			} else if prev.File != d.File {
				if err := txn.Delete(fileKey(prev.File, prev.ID)); err != nil {
					return fmt.Errorf("deleting file index: %w", err)
				}
			}

			data, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshaling declaration %s: %w", d.ID, err)
			}
			if err := txn.Set(declKey(d.ID), data); err != nil {
				return fmt.Errorf("setting declaration: %w", err)
			}
			if err := txn.Set(fileKey(d.File, d.ID), nil); err != nil {
				return fmt.Errorf("setting file index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.declCount += added
	return nil
}

// RemoveDeclsByFile deletes all declarations whose file path matches.
func (b *BadgerBackend) RemoveDeclsByFile(ctx context.Context, filePath string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	prefix := fileKey(filePath, typecat.TypeID{})
	var keys [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			id := typecat.ParseTypeID(string(k[len(prefix):]))
			if err := txn.Delete(declKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("removing declarations of %s: %w", filePath, err)
	}

	b.declCount -= len(keys)
	return len(keys), nil
}

// GetDecl returns a single declaration by id, or nil if not found.
func (b *BadgerBackend) GetDecl(ctx context.Context, id typecat.TypeID) (*typesys.Decl, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var d *typesys.Decl
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		d, err = getDecl(txn, id)
		return err
	})
	return d, err
}

func getDecl(txn *badger.Txn, id typecat.TypeID) (*typesys.Decl, error) {
	item, err := txn.Get(declKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting declaration %s: %w", id, err)
	}

	var d typesys.Decl
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &d)
	}); err != nil {
		return nil, fmt.Errorf("decoding declaration %s: %w", id, err)
	}
	return &d, nil
}

// AllDecls returns every stored declaration.
func (b *BadgerBackend) AllDecls(ctx context.Context) ([]typesys.Decl, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	decls := make([]typesys.Decl, 0, b.declCount)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDecl)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d typesys.Decl
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			decls = append(decls, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortDecls(decls)
	return decls, nil
}

// DeclCount returns the number of stored declarations.
func (b *BadgerBackend) DeclCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.declCount
}

// SaveMeta records metadata about an indexing run.
func (b *BadgerBackend) SaveMeta(ctx context.Context, meta *IndexMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMeta), data)
	})
}

// LoadMeta returns the last saved metadata, or nil if none.
func (b *BadgerBackend) LoadMeta(ctx context.Context) (*IndexMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var meta *IndexMeta
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = &IndexMeta{}
			return json.Unmarshal(val, meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading index metadata: %w", err)
	}
	return meta, nil
}

func declKey(id typecat.TypeID) []byte {
	return []byte(prefixDecl + id.String())
}

// fileKey builds the file index key. With a zero id it is the prefix of every
// entry for the file.
func fileKey(file string, id typecat.TypeID) []byte {
	return []byte(prefixFile + file + "\x00" + id.String())
}
