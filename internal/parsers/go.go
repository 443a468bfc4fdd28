package parsers

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// universe holds predeclared interface names that may be embedded.
var universe = map[string]bool{"error": true, "any": true, "comparable": true}

// GoParser parses Go source code using the standard library's go/parser.
//
// Structs become classes and interfaces become interfaces. Embedded types are
// recorded as Extends, in field order; whether an embedded type is a class or
// an interface is decided by the catalog once every file has been seen.
type GoParser struct{}

// NewGoParser creates a new Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the language this parser handles.
func (p *GoParser) Language() string {
	return "go"
}

// Parse parses Go source code and extracts struct and interface declarations.
func (p *GoParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing Go code: %w", err)
	}

	result := &ParseResult{
		Package: file.Name.Name,
		Imports: make(map[string]string),
	}

	p.parseImports(file, result)

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			if typeSpec, ok := spec.(*ast.TypeSpec); ok && typeSpec.Assign == 0 {
				p.parseTypeSpec(typeSpec, filePath, fset, result)
			}
		}
	}

	return result, nil
}

func (p *GoParser) parseImports(file *ast.File, result *ParseResult) {
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)

		// Types are qualified by package name, which is the last path
		// element for the imports we can see without loading packages.
		parts := strings.Split(path, "/")
		name := parts[len(parts)-1]

		alias := name
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		if alias == "_" || alias == "." {
			continue
		}
		result.Imports[alias] = name
	}
}

func (p *GoParser) parseTypeSpec(typeSpec *ast.TypeSpec, filePath string, fset *token.FileSet, result *ParseResult) {
	decl := typesys.Decl{
		ID:       typecat.TypeID{Package: result.Package, Name: typeSpec.Name.Name},
		File:     filePath,
		Line:     fset.Position(typeSpec.Pos()).Line,
		Language: p.Language(),
	}

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		decl.Kind = typecat.KindClass
		if t.Fields != nil {
			for _, field := range t.Fields.List {
				if len(field.Names) > 0 {
					continue
				}
				if id, ok := p.typeID(field.Type, result); ok {
					decl.Extends = append(decl.Extends, id)
				}
			}
		}

	case *ast.InterfaceType:
		decl.Kind = typecat.KindInterface
		decl.Abstract = true
		if t.Methods != nil {
			for _, m := range t.Methods.List {
				if len(m.Names) > 0 {
					continue
				}
				// Type set elements such as ~int | string are not embeddings.
				if id, ok := p.typeID(m.Type, result); ok {
					decl.Extends = append(decl.Extends, id)
				}
			}
		}

	default:
		return
	}

	result.Decls = append(result.Decls, decl)
}

// typeID names the type an embedded field refers to.
func (p *GoParser) typeID(expr ast.Expr, result *ParseResult) (typecat.TypeID, bool) {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return p.typeID(e.X, result)
	case *ast.IndexExpr:
		return p.typeID(e.X, result)
	case *ast.IndexListExpr:
		return p.typeID(e.X, result)
	case *ast.Ident:
		if universe[e.Name] {
			return typecat.TypeID{Name: e.Name}, true
		}
		return typecat.TypeID{Package: result.Package, Name: e.Name}, true
	case *ast.SelectorExpr:
		x, ok := e.X.(*ast.Ident)
		if !ok {
			return typecat.TypeID{}, false
		}
		pkg, ok := result.Imports[x.Name]
		if !ok {
			pkg = x.Name
		}
		return typecat.TypeID{Package: pkg, Name: e.Sel.Name}, true
	default:
		return typecat.TypeID{}, false
	}
}
