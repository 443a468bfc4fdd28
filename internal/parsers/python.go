package parsers

import (
	"regexp"
	"strings"

	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// PythonParser parses Python source code line by line.
//
// A class listing Protocol among its bases is an interface. ABC, ABCMeta or
// an @abstractmethod in the body mark a class abstract. Types are qualified by
// their dotted module path.
type PythonParser struct {
	classRegex  *regexp.Regexp
	importRegex *regexp.Regexp
}

// Bases that only carry meaning for the kind of the class.
var pythonMarkerBases = map[string]bool{
	"object":   true,
	"Protocol": true,
	"ABC":      true,
	"Generic":  true,
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{
		classRegex:  regexp.MustCompile(`^class\s+(\w+)(?:\[[^\]]*\])?\s*(?:\(([^)]*)\))?\s*:`),
		importRegex: regexp.MustCompile(`^from\s+(\.*[\w.]*)\s+import\s+\(?([^)#]+)\)?`),
	}
}

// Language returns the language this parser handles.
func (p *PythonParser) Language() string {
	return "python"
}

// Parse extracts class declarations from Python source code.
func (p *PythonParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	module := strings.ReplaceAll(moduleName(filePath), "/", ".")
	module = strings.TrimSuffix(module, ".__init__")

	result := &ParseResult{
		Package: module,
		Imports: make(map[string]string),
	}
	names := make(map[string]typecat.TypeID)

	lines := strings.Split(string(content), "\n")

	// Local classes shadow imported names, so collect them first.
	for _, line := range lines {
		if m := p.classRegex.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			names[m[1]] = typecat.TypeID{Package: module, Name: m[1]}
		}
	}

	var current *typesys.Decl
	var currentIndent int

	for lineNum, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		if current != nil && indent <= currentIndent && !strings.HasPrefix(trimmed, "@") {
			current = nil
		}

		if m := p.importRegex.FindStringSubmatch(trimmed); m != nil && indent == 0 {
			p.parseImport(module, m[1], m[2], names, result)
			continue
		}

		if m := p.classRegex.FindStringSubmatch(trimmed); m != nil {
			decl := p.parseClass(m[1], m[2], module, names, result)
			decl.File = filePath
			decl.Line = lineNum + 1
			result.Decls = append(result.Decls, decl)
			current = &result.Decls[len(result.Decls)-1]
			currentIndent = indent
			continue
		}

		if current != nil && (trimmed == "@abstractmethod" || trimmed == "@abc.abstractmethod") {
			current.Abstract = true
		}
	}

	return result, nil
}

func (p *PythonParser) parseClass(name, bases, module string, names map[string]typecat.TypeID, result *ParseResult) typesys.Decl {
	decl := typesys.Decl{
		ID:       typecat.TypeID{Package: module, Name: name},
		Kind:     typecat.KindClass,
		Language: p.Language(),
	}

	for _, base := range splitList(bases) {
		if key, value, ok := strings.Cut(base, "="); ok {
			if strings.TrimSpace(key) == "metaclass" && strings.HasSuffix(strings.TrimSpace(value), "ABCMeta") {
				decl.Abstract = true
			}
			continue
		}

		base = stripTypeArgs(base)
		short := base[strings.LastIndex(base, ".")+1:]
		switch short {
		case "Protocol":
			decl.Kind = typecat.KindInterface
			decl.Abstract = true
		case "ABC":
			decl.Abstract = true
		}
		if pythonMarkerBases[short] {
			continue
		}

		decl.Extends = append(decl.Extends, p.resolve(base, names, result.Imports))
	}

	return decl
}

func (p *PythonParser) parseImport(module, from, items string, names map[string]typecat.TypeID, result *ParseResult) {
	from = resolveRelativeModule(module, from)
	for _, item := range strings.Split(items, ",") {
		item = strings.TrimSpace(item)
		if item == "" || item == "*" {
			continue
		}
		name, alias := item, item
		if before, after, ok := strings.Cut(item, " as "); ok {
			name, alias = strings.TrimSpace(before), strings.TrimSpace(after)
		}
		if _, local := names[alias]; local {
			continue
		}
		names[alias] = typecat.TypeID{Package: from, Name: name}
		result.Imports[alias] = from
	}
}

// resolveRelativeModule turns ".shapes" imported from "pkg.geo.circle" into
// "pkg.geo.shapes".
func resolveRelativeModule(module, from string) string {
	dots := len(from) - len(strings.TrimLeft(from, "."))
	if dots == 0 {
		return from
	}
	parts := strings.Split(module, ".")
	keep := len(parts) - dots
	if keep < 0 {
		keep = 0
	}
	base := strings.Join(parts[:keep], ".")
	rest := from[dots:]
	switch {
	case base == "":
		return rest
	case rest == "":
		return base
	default:
		return base + "." + rest
	}
}

func (p *PythonParser) resolve(ref string, names map[string]typecat.TypeID, imports map[string]string) typecat.TypeID {
	if id, ok := names[ref]; ok {
		return id
	}
	if i := strings.LastIndex(ref, "."); i >= 0 {
		prefix := ref[:i]
		if mod, ok := imports[prefix]; ok {
			prefix = mod
		}
		return typecat.TypeID{Package: prefix, Name: ref[i+1:]}
	}
	return typecat.TypeID{Name: ref}
}
