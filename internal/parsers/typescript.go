package parsers

import (
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// TypeScriptParser parses TypeScript/TSX source code.
//
// Types are qualified by their module, the file path without extension.
// Names brought in by an import are qualified by the imported module;
// other names are treated as globals.
type TypeScriptParser struct {
	classRegex     *regexp.Regexp
	interfaceRegex *regexp.Regexp
	importRegex    *regexp.Regexp
}

// NewTypeScriptParser creates a new TypeScript parser.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{
		classRegex:     regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:default\s+)?(?:declare\s+)?(abstract\s+)?class\s+(\w+)(?:\s*<[^{]*?>)?(?:\s+extends\s+([\w.]+)(?:\s*<[^{]*?>)?)?(?:\s+implements\s+([^{]+))?\s*\{`),
		interfaceRegex: regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:declare\s+)?interface\s+(\w+)(?:\s*<[^{]*?>)?(?:\s+extends\s+([^{]+))?\s*\{`),
		importRegex:    regexp.MustCompile(`(?m)^import\s+(?:type\s+)?(?:{([^}]+)}|\*\s+as\s+(\w+)|(\w+))\s+from\s+['"]([^'"]+)['"]`),
	}
}

// Language returns the language this parser handles.
func (p *TypeScriptParser) Language() string {
	return "typescript"
}

// Parse extracts class and interface declarations.
func (p *TypeScriptParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	source := string(content)
	module := moduleName(filePath)

	result := &ParseResult{
		Package: module,
		Imports: make(map[string]string),
	}
	names := make(map[string]typecat.TypeID)

	p.parseImports(source, module, names, result)

	var found []tsDecl
	for _, m := range p.classRegex.FindAllStringSubmatchIndex(source, -1) {
		found = append(found, tsDecl{
			offset:     m[0],
			kind:       typecat.KindClass,
			abstract:   m[2] >= 0,
			name:       source[m[4]:m[5]],
			extends:    group(source, m, 3),
			implements: group(source, m, 4),
		})
	}
	for _, m := range p.interfaceRegex.FindAllStringSubmatchIndex(source, -1) {
		found = append(found, tsDecl{
			offset:  m[0],
			kind:    typecat.KindInterface,
			name:    source[m[2]:m[3]],
			extends: group(source, m, 2),
		})
	}
	slices.SortFunc(found, func(a, b tsDecl) int { return a.offset - b.offset })

	// Local declarations shadow imports of the same name.
	for _, f := range found {
		names[f.name] = typecat.TypeID{Package: module, Name: f.name}
	}

	for _, f := range found {
		result.Decls = append(result.Decls, typesys.Decl{
			ID:         names[f.name],
			Kind:       f.kind,
			Abstract:   f.abstract || f.kind == typecat.KindInterface,
			Extends:    p.resolveList(f.extends, names, result.Imports),
			Implements: p.resolveList(f.implements, names, result.Imports),
			File:       filePath,
			Line:       lineAt(source, f.offset),
			Language:   p.Language(),
		})
	}

	return result, nil
}

type tsDecl struct {
	offset     int
	kind       typecat.Kind
	abstract   bool
	name       string
	extends    string
	implements string
}

// group returns submatch n of a FindStringSubmatchIndex result, or "".
func group(source string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return source[m[2*n]:m[2*n+1]]
}

func (p *TypeScriptParser) parseImports(source, module string, names map[string]typecat.TypeID, result *ParseResult) {
	dir := path.Dir(module)

	for _, m := range p.importRegex.FindAllStringSubmatch(source, -1) {
		from := m[4]
		if strings.HasPrefix(from, ".") {
			from = path.Join(dir, from)
		}

		switch {
		case m[1] != "":
			for _, item := range strings.Split(m[1], ",") {
				item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "type "))
				if item == "" {
					continue
				}
				name, alias := item, item
				if before, after, ok := strings.Cut(item, " as "); ok {
					name, alias = strings.TrimSpace(before), strings.TrimSpace(after)
				}
				names[alias] = typecat.TypeID{Package: from, Name: name}
			}
		case m[2] != "":
			result.Imports[m[2]] = from
		case m[3] != "":
			result.Imports[m[3]] = from
		}
	}
}

// resolve qualifies a type reference such as "Shape", "ns.Shape" or
// "Box<T>".
func (p *TypeScriptParser) resolve(ref string, names map[string]typecat.TypeID, namespaces map[string]string) typecat.TypeID {
	ref = stripTypeArgs(ref)
	if id, ok := names[ref]; ok {
		return id
	}
	if ns, name, ok := strings.Cut(ref, "."); ok {
		if module, ok := namespaces[ns]; ok {
			return typecat.TypeID{Package: module, Name: name}
		}
	}
	return typecat.TypeID{Name: ref}
}

func (p *TypeScriptParser) resolveList(list string, names map[string]typecat.TypeID, namespaces map[string]string) []typecat.TypeID {
	var ids []typecat.TypeID
	for _, ref := range splitList(list) {
		ids = append(ids, p.resolve(ref, names, namespaces))
	}
	return ids
}
