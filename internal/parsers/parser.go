// Package parsers extracts class and interface declarations, with their
// inheritance clauses, from Go, TypeScript and Python source files.
package parsers

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/Benny93/catgraph/internal/typesys"
)

// ParseResult contains the declarations found in one source file.
type ParseResult struct {
	// Package is the package or module the file's types are qualified with.
	Package string

	// Imports maps local names to the package they refer to.
	Imports map[string]string

	// Decls are the types declared in the file, in source order.
	Decls []typesys.Decl
}

// Parser defines the interface for language-specific parsers.
type Parser interface {
	// Parse extracts type declarations from source code. filePath is the
	// path relative to the repository root and determines module names for
	// languages without package clauses.
	Parse(filePath string, content []byte) (*ParseResult, error)

	// Language returns the language this parser handles
	Language() string
}

var byExtension = map[string]func() Parser{
	".go":  func() Parser { return NewGoParser() },
	".ts":  func() Parser { return NewTypeScriptParser() },
	".tsx": func() Parser { return NewTypeScriptParser() },
	".py":  func() Parser { return NewPythonParser() },
}

// ForFile returns a parser for the file's extension.
func ForFile(name string) (Parser, bool) {
	if strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, ".d.ts") {
		return nil, false
	}
	newParser, ok := byExtension[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, false
	}
	return newParser(), true
}

// Extensions returns the supported file extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// moduleName derives a module name from a slash-separated file path by
// dropping the extension.
func moduleName(filePath string) string {
	p := filepath.ToSlash(filePath)
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// lineAt returns the 1-based line of byte offset off.
func lineAt(source string, off int) int {
	return strings.Count(source[:off], "\n") + 1
}

// splitList splits a comma separated list at depth zero, ignoring commas
// inside angle or square brackets.
func splitList(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<', '[', '(':
			depth++
		case '>', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				out = appendTrimmed(out, s[start:i])
				start = i + 1
			}
		}
	}
	return appendTrimmed(out, s[start:])
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

// stripTypeArgs removes a trailing generic argument list, "Box<T>" or
// "Box[T]" becoming "Box".
func stripTypeArgs(s string) string {
	if i := strings.IndexAny(s, "<["); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
