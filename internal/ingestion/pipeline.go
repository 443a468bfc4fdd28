package ingestion

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/catgraph/internal/parsers"
	"github.com/Benny93/catgraph/internal/storage"
	"github.com/Benny93/catgraph/internal/typesys"
)

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files        int
	Decls        int
	Failed       int
	Removed      int
	Languages    map[string]int
	DurationSecs float64
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Options configures RunPipeline.
type Options struct {
	// Full drops every stored declaration before indexing.
	Full bool

	// Workers bounds concurrent parsing. Zero means GOMAXPROCS.
	Workers int

	Progress ProgressCallback
	Logger   zerolog.Logger
}

func (o Options) progress(phase string, p float64) {
	if o.Progress != nil {
		o.Progress(phase, p)
	}
}

// parsed is the outcome of parsing one file.
type parsed struct {
	entry FileEntry
	decls []typesys.Decl
	err   error
}

// RunPipeline indexes every supported file under repoPath into store.
//
// Declarations are replaced file by file. Without Full, declarations of files
// that no longer exist are removed. A file that fails to parse is logged and
// counted in Failed. Its previous declarations are left in place.
func RunPipeline(ctx context.Context, repoPath string, store storage.Backend, opts Options) (*PipelineResult, error) {
	start := time.Now()
	log := opts.Logger
	result := &PipelineResult{Languages: make(map[string]int)}

	opts.progress("Walking files", 0.0)
	matcher, err := LoadIgnoreMatcher(repoPath)
	if err != nil {
		return nil, fmt.Errorf("loading ignore rules: %w", err)
	}
	entries, err := WalkRepo(repoPath, matcher)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	result.Files = len(entries)
	opts.progress("Walking files", 1.0)
	log.Debug().Int("files", len(entries)).Str("repo", repoPath).Msg("walked repository")

	opts.progress("Parsing code", 0.0)
	results, err := ParseEntries(ctx, entries, opts.Workers)
	if err != nil {
		return nil, err
	}
	opts.progress("Parsing code", 1.0)

	opts.progress("Storing declarations", 0.0)
	if opts.Full {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting store: %w", err)
		}
	} else {
		removed, err := removeVanished(ctx, store, entries)
		if err != nil {
			return nil, err
		}
		result.Removed = removed
	}

	for i, r := range results {
		if r.err != nil {
			result.Failed++
			log.Warn().Err(r.err).Str("file", r.entry.RelPath).Msg("skipping unparsable file")
			continue
		}
		if err := replaceFile(ctx, store, r.entry.RelPath, r.decls); err != nil {
			return nil, err
		}
		result.Decls += len(r.decls)
		result.Languages[r.entry.Language]++
		opts.progress("Storing declarations", float64(i+1)/float64(len(results)))
	}
	opts.progress("Storing declarations", 1.0)

	result.DurationSecs = time.Since(start).Seconds()

	if err := store.SaveMeta(ctx, &storage.IndexMeta{
		RepoPath:  repoPath,
		IndexedAt: time.Now().UTC(),
		Files:     result.Files,
		Decls:     store.DeclCount(),
		Languages: result.Languages,
	}); err != nil {
		return nil, fmt.Errorf("saving index metadata: %w", err)
	}

	log.Info().
		Int("files", result.Files).
		Int("decls", result.Decls).
		Int("failed", result.Failed).
		Int("removed", result.Removed).
		Float64("seconds", result.DurationSecs).
		Msg("indexed repository")

	return result, nil
}

// ParseEntries parses entries concurrently. The results keep the order of
// entries. Parse failures are reported per file; only cancellation aborts
// the whole run.
func ParseEntries(ctx context.Context, entries []FileEntry, workers int) ([]parsed, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]parsed, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decls, err := ParseEntry(entry)
			results[i] = parsed{entry: entry, decls: decls, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing files: %w", err)
	}
	return results, nil
}

// ParseEntry extracts the declarations of one file.
func ParseEntry(entry FileEntry) ([]typesys.Decl, error) {
	p, ok := parsers.ForFile(entry.RelPath)
	if !ok {
		return nil, nil
	}
	res, err := p.Parse(entry.RelPath, entry.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.RelPath, err)
	}
	return res.Decls, nil
}

func replaceFile(ctx context.Context, store storage.Backend, relPath string, decls []typesys.Decl) error {
	if _, err := store.RemoveDeclsByFile(ctx, relPath); err != nil {
		return fmt.Errorf("removing declarations of %s: %w", relPath, err)
	}
	if len(decls) == 0 {
		return nil
	}
	if err := store.PutDecls(ctx, decls); err != nil {
		return fmt.Errorf("storing declarations of %s: %w", relPath, err)
	}
	return nil
}

// removeVanished deletes declarations of files that are no longer walked.
func removeVanished(ctx context.Context, store storage.Backend, entries []FileEntry) (int, error) {
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.RelPath] = true
	}

	stored, err := store.AllDecls(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stored declarations: %w", err)
	}

	removed := 0
	seen := make(map[string]bool)
	for _, d := range stored {
		if present[d.File] || seen[d.File] {
			continue
		}
		seen[d.File] = true
		n, err := store.RemoveDeclsByFile(ctx, d.File)
		if err != nil {
			return removed, fmt.Errorf("removing declarations of %s: %w", d.File, err)
		}
		removed += n
	}
	return removed, nil
}
