package typesys

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Benny93/catgraph/internal/typecat"
)

// DefaultTop is the universal supertype used when none is configured.
const DefaultTop = "Object"

// Manifest is a hand-written type hierarchy:
//
//	top: Object
//	types:
//	  - name: shapes.Shape
//	    abstract: true
//	    implements: [shapes.Drawable]
//	    properties:
//	      renderer: vector
//	  - name: shapes.Drawable
//	    kind: interface
type Manifest struct {
	Top   string         `yaml:"top"`
	Types []ManifestType `yaml:"types"`

	// path is set by LoadManifestFile and recorded on every declaration.
	path string
}

// ManifestType is one entry of a manifest.
type ManifestType struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Abstract   bool           `yaml:"abstract"`
	Extends    []string       `yaml:"extends"`
	Implements []string       `yaml:"implements"`
	Properties map[string]any `yaml:"properties"`
}

// LoadManifest decodes a manifest. Unknown fields are rejected.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.Top == "" {
		m.Top = DefaultTop
	}
	return &m, nil
}

// LoadManifestFile reads a manifest from path.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// TopID returns the parsed top type.
func (m *Manifest) TopID() typecat.TypeID {
	return typecat.ParseTypeID(m.Top)
}

// Decls validates the entries and converts them to declarations.
func (m *Manifest) Decls() ([]Decl, error) {
	seen := make(map[typecat.TypeID]int, len(m.Types))
	decls := make([]Decl, 0, len(m.Types))

	for i, t := range m.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("manifest type #%d: missing name", i+1)
		}
		id := typecat.ParseTypeID(t.Name)
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("manifest type %s: already declared as #%d", t.Name, prev+1)
		}
		seen[id] = i

		kind, err := typecat.ParseKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("manifest type %s: %w", t.Name, err)
		}
		if kind == typecat.KindInterface && len(t.Implements) > 0 {
			return nil, fmt.Errorf("manifest type %s: an interface cannot implement, use extends", t.Name)
		}

		decls = append(decls, Decl{
			ID:         id,
			Kind:       kind,
			Abstract:   t.Abstract || kind == typecat.KindInterface,
			Extends:    parseIDs(t.Extends),
			Implements: parseIDs(t.Implements),
			File:       m.path,
			Language:   "manifest",
			Properties: t.Properties,
		})
	}
	return decls, nil
}

// Catalog builds a catalog holding the manifest's declarations.
func (m *Manifest) Catalog() (*Catalog, error) {
	decls, err := m.Decls()
	if err != nil {
		return nil, err
	}
	c := NewCatalog(m.TopID())
	c.Declare(decls...)
	return c, nil
}

func parseIDs(names []string) []typecat.TypeID {
	if len(names) == 0 {
		return nil
	}
	ids := make([]typecat.TypeID, len(names))
	for i, n := range names {
		ids[i] = typecat.ParseTypeID(n)
	}
	return ids
}
