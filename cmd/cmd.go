// Package cmd provides the CLI commands of catgraph.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/catgraph/internal/analyze"
	"github.com/Benny93/catgraph/internal/config"
	"github.com/Benny93/catgraph/internal/hierarchy"
	"github.com/Benny93/catgraph/internal/ingestion"
	"github.com/Benny93/catgraph/internal/logger"
	"github.com/Benny93/catgraph/internal/storage"
	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
	"github.com/Benny93/catgraph/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `help:"Config file (default: .catgraph.yaml in the working directory or $HOME)" type:"path"`
	Manifest string `short:"m" help:"Read types from a YAML manifest instead of the index" type:"path"`
	Repo     string `short:"C" default:"." help:"Repository root" type:"path"`
	Verbose  bool   `short:"v" help:"Enable debug logging"`

	// Out receives command output. Nil means standard output.
	Out io.Writer `kong:"-"`
}

// runtime is the state a command runs with.
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	out      io.Writer
	repo     string
	manifest string
}

func (g *Globals) setup() (*runtime, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		cfg.Log.Level = "debug"
	}

	repo, err := filepath.Abs(g.Repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	out := g.Out
	if out == nil {
		out = os.Stdout
	}

	return &runtime{
		cfg:      cfg,
		log:      logger.New(logger.Config{Format: cfg.Log.Format, Level: cfg.Log.Level}),
		out:      out,
		repo:     repo,
		manifest: g.Manifest,
	}, nil
}

func (rt *runtime) indexPath() string {
	return rt.cfg.IndexPath(rt.repo)
}

// openIndex opens the badger index of the repository. A read-only open fails
// when the repository has not been indexed yet.
func (rt *runtime) openIndex(readOnly bool) (*storage.BadgerBackend, error) {
	path := rt.indexPath()
	if readOnly {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no index found at %s. Run 'catgraph index' first", rt.repo)
		}
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(path, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func (rt *runtime) top() typecat.TypeID {
	return typecat.ParseTypeID(rt.cfg.Hierarchy.Top)
}

// loadCatalog reads the declarations from the manifest when one is given and
// from the index otherwise.
func (rt *runtime) loadCatalog(ctx context.Context) (*typesys.Catalog, error) {
	if rt.manifest != "" {
		m, err := typesys.LoadManifestFile(rt.manifest)
		if err != nil {
			return nil, err
		}
		return m.Catalog()
	}

	store, err := rt.openIndex(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return storage.LoadCatalog(ctx, store, rt.top())
}

func (rt *runtime) newService(catalog *typesys.Catalog) (*hierarchy.Service, error) {
	bottomUp, err := rt.cfg.BottomUpPolicy()
	if err != nil {
		return nil, err
	}
	return hierarchy.New(catalog,
		hierarchy.WithBottomUpPolicy(bottomUp),
		hierarchy.WithLogger(rt.log),
	)
}

func (rt *runtime) loadService(ctx context.Context) (*hierarchy.Service, error) {
	catalog, err := rt.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return rt.newService(catalog)
}

// IndexCmd extracts the type declarations of a repository into the index.
type IndexCmd struct {
	Full     bool     `help:"Drop the existing index before indexing"`
	Workers  int      `help:"Concurrent parsers (default: config index.workers, then GOMAXPROCS)"`
	Packages []string `help:"Load these Go package patterns with the type checker instead of parsing files" placeholder:"PATTERN"`
}

// Run executes the index command.
func (c *IndexCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	ctx := context.Background()

	info, err := os.Stat(rt.repo)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", rt.repo, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", rt.repo)
	}

	store, err := rt.openIndex(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	green.Fprintf(rt.out, "Indexing %s\n", rt.repo)

	if len(c.Packages) > 0 {
		return c.indexPackages(ctx, rt, store)
	}

	workers := c.Workers
	if workers == 0 {
		workers = rt.cfg.Index.Workers
	}
	result, err := ingestion.RunPipeline(ctx, rt.repo, store, ingestion.Options{
		Full:    c.Full,
		Workers: workers,
		Logger:  rt.log,
		Progress: func(phase string, pct float64) {
			rt.log.Debug().Str("phase", phase).Float64("progress", pct).Msg("indexing")
		},
	})
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	green.Fprintln(rt.out, "✓ Indexing complete")
	fmt.Fprintf(rt.out, "  Files:          %d\n", result.Files)
	fmt.Fprintf(rt.out, "  Types:          %d\n", result.Decls)
	if result.Removed > 0 {
		fmt.Fprintf(rt.out, "  Removed types:  %d\n", result.Removed)
	}
	if result.Failed > 0 {
		yellow.Fprintf(rt.out, "  Unparsed files: %d\n", result.Failed)
	}
	for _, lang := range sortedKeys(result.Languages) {
		fmt.Fprintf(rt.out, "    %-12s  %d\n", lang, result.Languages[lang])
	}
	fmt.Fprintf(rt.out, "  Duration:       %.2fs\n", result.DurationSecs)
	return nil
}

// indexPackages replaces the index with the declarations found by the type
// checker.
func (c *IndexCmd) indexPackages(ctx context.Context, rt *runtime, store storage.Backend) error {
	a := analyze.NewAnalyzer()
	a.Dir = rt.repo
	a.InferImplements = true

	decls, err := a.LoadPackages(c.Packages...)
	if err != nil {
		return err
	}

	files := make(map[string]bool)
	for i := range decls {
		if rel, err := filepath.Rel(rt.repo, decls[i].File); err == nil {
			decls[i].File = filepath.ToSlash(rel)
		}
		files[decls[i].File] = true
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	if err := store.PutDecls(ctx, decls); err != nil {
		return fmt.Errorf("storing declarations: %w", err)
	}
	if err := store.SaveMeta(ctx, &storage.IndexMeta{
		RepoPath:  rt.repo,
		IndexedAt: time.Now().UTC(),
		Files:     len(files),
		Decls:     len(decls),
		Languages: map[string]int{"go": len(files)},
	}); err != nil {
		return fmt.Errorf("saving index metadata: %w", err)
	}

	green.Fprintln(rt.out, "✓ Indexing complete")
	fmt.Fprintf(rt.out, "  Packages:       %s\n", strings.Join(c.Packages, " "))
	fmt.Fprintf(rt.out, "  Files:          %d\n", len(files))
	fmt.Fprintf(rt.out, "  Types:          %d\n", len(decls))
	return nil
}

// LinearizationFlags are shared by the ancestors and descendants commands.
type LinearizationFlags struct {
	Type           string `arg:"" help:"Type name, qualified (shapes.Circle) or short (Circle)"`
	Filter         string `short:"f" default:"all" enum:"all,abstract,classes,interfaces" help:"Keep only these types (${enum})"`
	IncludeSelf    bool   `short:"s" help:"Start the list with the queried type"`
	Priority       string `help:"classes-first or interfaces-first (default: config)"`
	InterfaceOrder string `help:"declaration or reverse (default: config)"`
	Strategy       string `help:"monotonic, pre-order or level-order (default: config)"`
	JSON           bool   `help:"Print JSON"`
}

func (f *LinearizationFlags) query(base typecat.Policy) (hierarchy.Query, error) {
	in := mcp.LinearizationInput{
		Type:           f.Type,
		Filter:         f.Filter,
		IncludeSelf:    f.IncludeSelf,
		Priority:       f.Priority,
		InterfaceOrder: f.InterfaceOrder,
		Strategy:       f.Strategy,
	}
	return in.Query(base)
}

func (f *LinearizationFlags) run(g *Globals, up bool) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	svc, err := rt.loadService(context.Background())
	if err != nil {
		return err
	}

	base := svc.TopDownPolicy()
	if up {
		base = svc.BottomUpPolicy()
	}
	q, err := f.query(base)
	if err != nil {
		return err
	}

	var types []hierarchy.TypeRef
	if up {
		types, err = svc.Ancestors(q)
	} else {
		types, err = svc.Descendants(q)
	}
	if err != nil {
		return err
	}

	if f.JSON {
		return printJSON(rt.out, mcp.LinearizationOutput{Type: f.Type, Types: types})
	}
	if len(types) == 0 {
		fmt.Fprintln(rt.out, "No types found")
		return nil
	}
	for i, t := range types {
		fmt.Fprintf(rt.out, "%3d. %s\n", i+1, describe(t))
	}
	return nil
}

// AncestorsCmd prints the bottom-up linearization of a type.
type AncestorsCmd struct {
	LinearizationFlags
}

// Run executes the ancestors command.
func (c *AncestorsCmd) Run(g *Globals) error {
	return c.run(g, true)
}

// DescendantsCmd prints the top-down linearization of a type.
type DescendantsCmd struct {
	LinearizationFlags
}

// Run executes the descendants command.
func (c *DescendantsCmd) Run(g *Globals) error {
	return c.run(g, false)
}

// InspectCmd shows the full view of a type.
type InspectCmd struct {
	Type string `arg:"" help:"Type name"`
	JSON bool   `help:"Print JSON"`
}

// Run executes the inspect command.
func (c *InspectCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	svc, err := rt.loadService(context.Background())
	if err != nil {
		return err
	}
	info, err := svc.Inspect(c.Type)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(rt.out, info)
	}

	bold.Fprintf(rt.out, "## %s\n", describe(info.Type))
	switch {
	case info.File != "":
		fmt.Fprintf(rt.out, "Declared: %s:%d (%s)\n", info.File, info.Line, info.Language)
	case !info.Declared:
		faint.Fprintln(rt.out, "Not declared in the index")
	}
	if info.Superclass != "" {
		fmt.Fprintf(rt.out, "Superclass: %s\n", info.Superclass)
	}
	if len(info.Interfaces) > 0 {
		fmt.Fprintf(rt.out, "Interfaces: %s\n", strings.Join(info.Interfaces, ", "))
	}

	printRefs(rt.out, "Parents", info.Parents)
	printRefs(rt.out, "Children", info.Children)
	printRefs(rt.out, "Known subclasses", info.KnownSubClasses)
	printRefs(rt.out, "Known subinterfaces", info.KnownSubInterfaces)

	if len(info.Properties) > 0 {
		fmt.Fprintf(rt.out, "\n### Properties (%d)\n", len(info.Properties))
		for _, k := range sortedKeys(info.Properties) {
			fmt.Fprintf(rt.out, "  %s = %v\n", k, info.Properties[k])
		}
	}
	return nil
}

// BoundsCmd checks whether a type satisfies upper bounds.
type BoundsCmd struct {
	Type   string   `arg:"" help:"Type name"`
	Bounds []string `arg:"" help:"Upper bounds"`
}

// Run executes the bounds command.
func (c *BoundsCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	svc, err := rt.loadService(context.Background())
	if err != nil {
		return err
	}
	ok, err := svc.InBounds(c.Type, c.Bounds)
	if err != nil {
		return err
	}

	bounds := strings.Join(c.Bounds, ", ")
	if ok {
		green.Fprintf(rt.out, "✓ %s is within %s\n", c.Type, bounds)
	} else {
		red.Fprintf(rt.out, "✗ %s is not within %s\n", c.Type, bounds)
	}
	return nil
}

// PropertyCmd looks a property up along the ancestors of a type.
type PropertyCmd struct {
	Type string `arg:"" help:"Type name"`
	Key  string `arg:"" help:"Property name"`
	JSON bool   `help:"Print JSON"`
}

// Run executes the property command.
func (c *PropertyCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	svc, err := rt.loadService(context.Background())
	if err != nil {
		return err
	}
	v, err := svc.Property(c.Type, c.Key)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(rt.out, v)
	}

	if !v.Found {
		yellow.Fprintf(rt.out, "%s has no property %q\n", c.Type, c.Key)
		return nil
	}
	where := "inherited"
	if v.Local {
		where = "local"
	}
	fmt.Fprintf(rt.out, "%s = %v (%s)\n", c.Key, v.Value, where)
	if len(v.Hierarchy) > 1 {
		faint.Fprintf(rt.out, "  shadowed: %v\n", v.Hierarchy[1:])
	}
	return nil
}

// ResolveCmd lists the qualified names matching a type name.
type ResolveCmd struct {
	Name string `arg:"" help:"Type name, qualified or short, case-insensitive"`
}

// Run executes the resolve command.
func (c *ResolveCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	svc, err := rt.loadService(context.Background())
	if err != nil {
		return err
	}
	names := svc.Resolve(c.Name)
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", c.Name, typesys.ErrTypeNotFound)
	}
	for _, n := range names {
		fmt.Fprintln(rt.out, n)
	}
	return nil
}

// WatchCmd indexes the repository and keeps the index up to date.
type WatchCmd struct {
	Debounce time.Duration `default:"2s" help:"Wait this long for more changes before re-indexing"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	store, err := rt.openIndex(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := ingestion.RunPipeline(ctx, rt.repo, store, ingestion.Options{
		Workers: rt.cfg.Index.Workers,
		Logger:  rt.log,
	})
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	bold.Fprintln(rt.out, "## Watch Mode")
	fmt.Fprintf(rt.out, "Indexed %d types from %d files\n", result.Decls, result.Files)
	fmt.Fprintf(rt.out, "Watching %s for changes (Ctrl+C to stop)\n\n", rt.repo)

	err = ingestion.WatchRepo(ctx, rt.repo, store, ingestion.WatchOptions{
		Logger:   rt.log,
		Debounce: c.Debounce,
		OnChange: func(cs ingestion.ChangeSet) {
			for _, f := range cs.Reindexed {
				green.Fprintf(rt.out, "  ~ %s\n", f)
			}
			for _, f := range cs.Removed {
				red.Fprintf(rt.out, "  - %s\n", f)
			}
			fmt.Fprintf(rt.out, "  %d types indexed\n", store.DeclCount())
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(rt.out, "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Watch bool `short:"w" help:"Re-index changed files and reload the served hierarchy"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	if !c.Watch || rt.manifest != "" {
		svc, err := rt.loadService(ctx)
		if err != nil {
			return err
		}
		// Nothing but JSON-RPC may be written to stdout.
		return mcp.NewServer(svc, rt.log).Run(ctx)
	}

	store, err := rt.openIndex(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if _, err := ingestion.RunPipeline(ctx, rt.repo, store, ingestion.Options{
		Workers: rt.cfg.Index.Workers,
		Logger:  rt.log,
	}); err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}
	catalog, err := storage.LoadCatalog(ctx, store, rt.top())
	if err != nil {
		return err
	}
	svc, err := rt.newService(catalog)
	if err != nil {
		return err
	}
	server := mcp.NewServer(svc, rt.log)

	return rt.serveWatching(ctx, store, server, 0, server.Run)
}

// serveWatching runs serve while a watcher re-indexes changed files into store
// and reloads server. It returns once both have stopped, so the caller may
// close store afterwards.
func (rt *runtime) serveWatching(ctx context.Context, store storage.Backend, server *mcp.Server, debounce time.Duration, serve func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	watchCtx, cancel := context.WithCancel(gctx)

	g.Go(func() error {
		err := ingestion.WatchRepo(watchCtx, rt.repo, store, ingestion.WatchOptions{
			Logger:   rt.log,
			Debounce: debounce,
			OnChange: func(ingestion.ChangeSet) {
				catalog, err := storage.LoadCatalog(watchCtx, store, rt.top())
				if err == nil {
					err = server.Reload(catalog)
				}
				if err != nil {
					rt.log.Error().Err(err).Msg("reloading hierarchy")
				}
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			rt.log.Error().Err(err).Msg("watch stopped")
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return serve(gctx)
	})
	return g.Wait()
}

// StatusCmd shows the index status of the repository.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}
	store, err := rt.openIndex(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	meta, err := store.LoadMeta(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "Index status for %s\n", rt.repo)
	fmt.Fprintf(rt.out, "  Location:       %s\n", rt.indexPath())
	fmt.Fprintf(rt.out, "  Types:          %d\n", store.DeclCount())
	if meta == nil {
		yellow.Fprintln(rt.out, "  Never completed an indexing run")
		return nil
	}
	fmt.Fprintf(rt.out, "  Last indexed:   %s\n", meta.IndexedAt.Format(time.RFC3339))
	fmt.Fprintf(rt.out, "  Files:          %d\n", meta.Files)
	for _, lang := range sortedKeys(meta.Languages) {
		fmt.Fprintf(rt.out, "    %-12s  %d\n", lang, meta.Languages[lang])
	}
	return nil
}

// CleanCmd deletes the index of the repository.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	rt, err := g.setup()
	if err != nil {
		return err
	}

	dir := rt.indexPath()
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no index found at %s. Nothing to clean", rt.repo)
	}

	if !c.Force {
		fmt.Fprintf(rt.out, "Delete index at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(rt.out, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	green.Fprintf(rt.out, "Deleted %s\n", dir)
	return nil
}

// Helper functions

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func describe(t hierarchy.TypeRef) string {
	kind := string(t.Kind)
	if t.Abstract && t.Kind == typecat.KindClass {
		kind = "abstract " + kind
	}
	return fmt.Sprintf("%s (%s)", t.Name, kind)
}

func printRefs(w io.Writer, title string, refs []hierarchy.TypeRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n### %s (%d)\n", title, len(refs))
	for _, r := range refs {
		fmt.Fprintf(w, "  - %s\n", describe(r))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Index       IndexCmd       `cmd:"" help:"Extract the type hierarchy of a repository into the index"`
	Ancestors   AncestorsCmd   `cmd:"" help:"Bottom-up linearization of a type"`
	Descendants DescendantsCmd `cmd:"" help:"Top-down linearization of a type"`
	Inspect     InspectCmd     `cmd:"" help:"Show parents, children, subtypes and properties of a type"`
	Bounds      BoundsCmd      `cmd:"" help:"Check whether a type satisfies upper bounds"`
	Property    PropertyCmd    `cmd:"" help:"Look a property up along the ancestors of a type"`
	Resolve     ResolveCmd     `cmd:"" help:"List the qualified names matching a type name"`
	Watch       WatchCmd       `cmd:"" help:"Watch mode with live re-indexing"`
	MCP         MCPCmd         `cmd:"" help:"Start MCP server (stdio transport)"`
	Status      StatusCmd      `cmd:"" help:"Show index status for the repository"`
	Clean       CleanCmd       `cmd:"" help:"Delete the index of the repository"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Parser builds the kong parser of c.
func (c *CLI) Parser(options ...kong.Option) (*kong.Kong, error) {
	return kong.New(c, append([]kong.Option{
		kong.Name("catgraph"),
		kong.Description("Class hierarchy graph with inherited properties and linearization queries"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	}, options...)...)
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := c.Parser()
	if err != nil {
		return err
	}
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(&c.Globals)
}
