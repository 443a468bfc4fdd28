package analyze

import (
	"errors"
	"fmt"
	"go/types"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Analyzer loads Go packages and extracts their type hierarchy.
type Analyzer struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string

	// InferImplements records structural interface satisfaction between
	// loaded structs and loaded interfaces.
	InferImplements bool

	// IncludeUnexported also extracts unexported types.
	IncludeUnexported bool
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

type named struct {
	obj  *types.TypeName
	decl typesys.Decl
}

// LoadPackages loads the packages matching patterns and returns their
// declarations, ordered by package path and then by name.
func (a *Analyzer) LoadPackages(patterns ...string) ([]typesys.Decl, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  a.Dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %w", errors.Join(errs...))
	}

	slices.SortFunc(pkgs, func(x, y *packages.Package) int {
		return strings.Compare(x.PkgPath, y.PkgPath)
	})

	var all []named
	for _, pkg := range pkgs {
		all = append(all, a.processPackage(pkg)...)
	}

	if a.InferImplements {
		inferImplements(all)
	}

	decls := make([]typesys.Decl, len(all))
	for i, n := range all {
		decls[i] = n.decl
	}
	return decls, nil
}

func (a *Analyzer) processPackage(pkg *packages.Package) []named {
	var out []named

	// Scope names are sorted.
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || typeName.IsAlias() {
			continue
		}
		if !typeName.Exported() && !a.IncludeUnexported {
			continue
		}

		decl, ok := declFor(typeName)
		if !ok {
			continue
		}
		if pos := pkg.Fset.Position(typeName.Pos()); pos.IsValid() {
			decl.File = pos.Filename
			decl.Line = pos.Line
		}
		out = append(out, named{obj: typeName, decl: decl})
	}
	return out
}

func declFor(obj *types.TypeName) (typesys.Decl, bool) {
	decl := typesys.Decl{
		ID:       idOf(obj),
		Language: "go",
	}

	switch u := obj.Type().Underlying().(type) {
	case *types.Struct:
		decl.Kind = typecat.KindClass
		for i := 0; i < u.NumFields(); i++ {
			field := u.Field(i)
			if !field.Embedded() {
				continue
			}
			id, iface, ok := embeddedID(field.Type())
			if !ok {
				continue
			}
			if iface {
				decl.Implements = append(decl.Implements, id)
			} else {
				decl.Extends = append(decl.Extends, id)
			}
		}

	case *types.Interface:
		decl.Kind = typecat.KindInterface
		decl.Abstract = true
		for i := 0; i < u.NumEmbeddeds(); i++ {
			if id, iface, ok := embeddedID(u.EmbeddedType(i)); ok && iface {
				decl.Extends = append(decl.Extends, id)
			}
		}

	default:
		return typesys.Decl{}, false
	}

	return decl, true
}

// embeddedID names an embedded type and reports whether it is an interface.
func embeddedID(t types.Type) (typecat.TypeID, bool, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	switch n := types.Unalias(t).(type) {
	case *types.Named:
		_, iface := n.Underlying().(*types.Interface)
		return idOf(n.Obj()), iface, true
	default:
		return typecat.TypeID{}, false, false
	}
}

func idOf(obj *types.TypeName) typecat.TypeID {
	if obj.Pkg() == nil {
		return typecat.TypeID{Name: obj.Name()}
	}
	return typecat.TypeID{Package: obj.Pkg().Path(), Name: obj.Name()}
}

// inferImplements adds every loaded, non-empty interface a struct satisfies
// with either its value or pointer method set.
func inferImplements(all []named) {
	type iface struct {
		id typecat.TypeID
		t  *types.Interface
	}
	var ifaces []iface
	for _, n := range all {
		if n.decl.Kind != typecat.KindInterface {
			continue
		}
		t := n.obj.Type().Underlying().(*types.Interface)
		if t.NumMethods() == 0 || !t.IsMethodSet() {
			continue
		}
		ifaces = append(ifaces, iface{id: n.decl.ID, t: t})
	}

	for i := range all {
		d := &all[i].decl
		if d.Kind != typecat.KindClass {
			continue
		}
		typ := all[i].obj.Type()
		if named, ok := typ.(*types.Named); ok && named.TypeParams().Len() > 0 {
			continue
		}
		for _, in := range ifaces {
			if slices.Contains(d.Implements, in.id) {
				continue
			}
			if types.Implements(typ, in.t) || types.Implements(types.NewPointer(typ), in.t) {
				d.Implements = append(d.Implements, in.id)
			}
		}
	}
}
