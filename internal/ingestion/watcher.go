package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rs/zerolog"

	"github.com/Benny93/catgraph/internal/storage"
)

// DefaultDebounce is how long the watcher waits for more events before
// re-indexing a batch of changed files.
const DefaultDebounce = 2 * time.Second

// ChangeSet lists the files touched by one re-index batch.
type ChangeSet struct {
	Reindexed []string
	Removed   []string
}

// Empty reports whether the batch changed nothing.
func (c ChangeSet) Empty() bool {
	return len(c.Reindexed) == 0 && len(c.Removed) == 0
}

// WatchOptions configures WatchRepo.
type WatchOptions struct {
	Logger   zerolog.Logger
	Debounce time.Duration

	// OnChange is called after each batch that changed the store.
	OnChange func(ChangeSet)
}

// WatchRepo monitors a repository for file changes and re-indexes the changed
// files. Blocks until the context is cancelled.
func WatchRepo(ctx context.Context, repoPath string, store storage.Backend, opts WatchOptions) error {
	log := opts.Logger
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	matcher, err := LoadIgnoreMatcher(repoPath)
	if err != nil {
		return fmt.Errorf("loading ignore rules: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, repoPath, repoPath, matcher); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	w := &repoWatcher{
		repoPath: repoPath,
		store:    store,
		matcher:  matcher,
		log:      log,
		hashes:   make(map[string]string),
	}
	if err := w.seedHashes(); err != nil {
		return err
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	log.Info().Str("repo", repoPath).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDirs(watcher, event.Name, repoPath, matcher); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
					}
					continue
				}
			}

			relPath, ok := w.relevant(event.Name)
			if !ok {
				continue
			}
			changed[relPath] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-batchTimer.C:
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			changed = make(map[string]bool)

			cs, err := w.process(ctx, paths)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Error().Err(err).Msg("re-indexing changed files")
				continue
			}
			if cs.Empty() {
				continue
			}
			log.Info().
				Int("reindexed", len(cs.Reindexed)).
				Int("removed", len(cs.Removed)).
				Msg("applied changes")
			if opts.OnChange != nil {
				opts.OnChange(cs)
			}
		}
	}
}

// addDirs adds root and every non-ignored directory below it to the watcher.
func addDirs(watcher *fsnotify.Watcher, root, repoPath string, matcher gitignore.Matcher) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != repoPath && isIgnored(path, repoPath, true, matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

type repoWatcher struct {
	repoPath string
	store    storage.Backend
	matcher  gitignore.Matcher
	log      zerolog.Logger

	// hashes holds the content hash of every indexed file, keyed by RelPath.
	hashes map[string]string
}

func (w *repoWatcher) seedHashes() error {
	entries, err := WalkRepo(w.repoPath, w.matcher)
	if err != nil {
		return fmt.Errorf("walking repo: %w", err)
	}
	for _, e := range entries {
		w.hashes[e.RelPath] = e.SHA256
	}
	return nil
}

// relevant returns the slash-separated relative path of a supported,
// non-ignored file.
func (w *repoWatcher) relevant(path string) (string, bool) {
	if getLanguage(filepath.Base(path)) == "" {
		return "", false
	}
	if isIgnored(path, w.repoPath, false, w.matcher) {
		return "", false
	}
	rel, err := filepath.Rel(w.repoPath, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// process re-indexes the given relative paths. Deleted files lose their
// declarations and files whose content did not change are skipped.
func (w *repoWatcher) process(ctx context.Context, paths []string) (ChangeSet, error) {
	var cs ChangeSet
	var entries []FileEntry

	for _, rel := range paths {
		abs := filepath.Join(w.repoPath, filepath.FromSlash(rel))

		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			if _, err := w.store.RemoveDeclsByFile(ctx, rel); err != nil {
				return cs, fmt.Errorf("removing declarations of %s: %w", rel, err)
			}
			delete(w.hashes, rel)
			cs.Removed = append(cs.Removed, rel)
			continue
		}
		if err != nil || info.IsDir() {
			continue
		}

		entry, err := readEntry(w.repoPath, abs, getLanguage(filepath.Base(abs)))
		if err != nil {
			w.log.Warn().Err(err).Str("file", rel).Msg("cannot read changed file")
			continue
		}
		if w.hashes[rel] == entry.SHA256 {
			continue
		}
		entries = append(entries, entry)
	}

	done, err := ReindexFiles(ctx, entries, w.store)
	for _, e := range done {
		w.hashes[e.RelPath] = e.SHA256
		cs.Reindexed = append(cs.Reindexed, e.RelPath)
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		w.log.Warn().Err(err).Msg("skipping unparsable files")
		err = nil
	}
	return cs, err
}

// ParseError collects the files ReindexFiles could not parse.
type ParseError struct {
	Files []string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %d file(s): %v", len(e.Files), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReindexFiles replaces the stored declarations of each entry with freshly
// parsed ones and returns the entries it re-indexed. A file that fails to
// parse keeps its previous declarations and is reported in a *ParseError
// once every other entry has been processed. Storage errors abort at once.
func ReindexFiles(ctx context.Context, entries []FileEntry, store storage.Backend) ([]FileEntry, error) {
	var done []FileEntry
	var failed []string
	var errs []error

	for _, entry := range entries {
		decls, err := ParseEntry(entry)
		if err != nil {
			failed = append(failed, entry.RelPath)
			errs = append(errs, err)
			continue
		}
		if err := replaceFile(ctx, store, entry.RelPath, decls); err != nil {
			return done, err
		}
		done = append(done, entry)
	}

	if len(failed) > 0 {
		return done, &ParseError{Files: failed, Err: errors.Join(errs...)}
	}
	return done, nil
}
