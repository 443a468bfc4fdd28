// Package ingestion walks a repository, extracts type declarations from its
// source files and keeps the declaration store in sync with the tree.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/catgraph/internal/parsers"
)

// FileEntry represents a file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the slash-separated path relative to the repo root.
	RelPath string

	// Language is the detected programming language.
	Language string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	".catgraph/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".eggs/",
	"*.egg-info/",
	".pytest_cache/",
	".mypy_cache/",
	"dist/",
	"coverage/",
	"testdata/",
	".DS_Store",
}

// WalkRepo walks the repository and returns every file a parser exists for.
func WalkRepo(repoPath string, matcher gitignore.Matcher) ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != repoPath && isIgnored(path, repoPath, true, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		language := getLanguage(d.Name())
		if language == "" || isIgnored(path, repoPath, false, matcher) {
			return nil
		}

		entry, err := readEntry(repoPath, path, language)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

func readEntry(repoPath, path, language string) (FileEntry, error) {
	relPath, err := filepath.Rel(repoPath, path)
	if err != nil {
		return FileEntry{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, err
	}

	hash := sha256.Sum256(content)

	return FileEntry{
		Path:     path,
		RelPath:  filepath.ToSlash(relPath),
		Language: language,
		Content:  content,
		SHA256:   hex.EncodeToString(hash[:]),
	}, nil
}

// LoadIgnoreMatcher builds a matcher from the default patterns and the
// repository's root .gitignore, if any.
func LoadIgnoreMatcher(repoPath string) (gitignore.Matcher, error) {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	loaded, err := loadGitignore(repoPath)
	if err != nil {
		return nil, err
	}
	return gitignore.NewMatcher(append(patterns, loaded...)), nil
}

// loadGitignore loads .gitignore patterns from the repository root.
func loadGitignore(repoPath string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(repoPath, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// getLanguage returns the language of the parser handling filename, or "".
func getLanguage(filename string) string {
	p, ok := parsers.ForFile(filename)
	if !ok {
		return ""
	}
	return p.Language()
}

// isIgnored reports whether path, inside repoRoot, matches the ignore rules.
func isIgnored(path, repoRoot string, isDir bool, matcher gitignore.Matcher) bool {
	if matcher == nil {
		return false
	}
	relPath, err := filepath.Rel(repoRoot, path)
	if err != nil || relPath == "." {
		return false
	}
	return matcher.Match(splitPath(relPath), isDir)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
