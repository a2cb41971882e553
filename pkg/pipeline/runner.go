package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackpm/pkg/buildinfo"
	"github.com/matzehuels/stackpm/pkg/cache"
	"github.com/matzehuels/stackpm/pkg/deps"
	"github.com/matzehuels/stackpm/pkg/fetch"
	"github.com/matzehuels/stackpm/pkg/integrations"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
	"github.com/matzehuels/stackpm/pkg/link"
	"github.com/matzehuels/stackpm/pkg/manifest"
	"github.com/matzehuels/stackpm/pkg/observability"
	"github.com/matzehuels/stackpm/pkg/tree"
	"github.com/matzehuels/stackpm/pkg/tree/transform"
)

// Runner executes pipeline runs against a shared archive cache.
//
// The Runner holds no per-run state, so multiple goroutines can safely use
// the same Runner for different projects.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Reporter Reporter
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Reporter: NopReporter{},
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	Raw   *tree.Node // Tree as resolved
	Tree  *tree.Node // Tree as installed (equal to Raw when optimization is skipped)
	Stats Stats
}

// run bundles the per-run collaborators.
type run struct {
	id      string
	opts    Options
	logger  *log.Logger
	client  *npm.Client
	fetcher *fetch.Fetcher
}

func (r *Runner) newRun(opts Options) *run {
	id := uuid.NewString()
	logger := r.Logger.With("run", id[:8])

	http := integrations.NewClient(integrations.Options{
		Timeout:     opts.Timeout,
		Retries:     opts.Retries,
		Concurrency: opts.Concurrency,
		Headers:     map[string]string{"User-Agent": buildinfo.UserAgent()},
	})
	client := npm.NewClient(http, opts.Registry)

	return &run{
		id:     id,
		opts:   opts,
		logger: logger,
		client: client,
		fetcher: fetch.New(client, fetch.Options{
			Cache:  r.Cache,
			Keyer:  r.Keyer,
			Dir:    opts.Dir,
			Logger: logger,
		}),
	}
}

func (r *Runner) reporter() Reporter {
	if r.Reporter == nil {
		return NopReporter{}
	}
	return r.Reporter
}

// Install resolves, optimizes and links the project in opts.Dir.
func (r *Runner) Install(ctx context.Context, opts Options) (*Result, error) {
	result, rn, err := r.plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	counter := &Counter{}
	counter.Add(result.Tree.Count())
	r.reporter().StageStarted(StageLink, counter)
	hooks.OnLinkStart(ctx, result.Tree.Count())

	linker := link.New(rn.fetcher, link.Options{
		IgnoreScripts: rn.opts.IgnoreScripts,
		Logger:        rn.logger,
		Progress:      counter,
	})
	start := time.Now()
	err = linker.Link(ctx, result.Tree, rn.opts.Dir)
	result.Stats.LinkTime = time.Since(start)

	hooks.OnLinkComplete(ctx, result.Tree.Count(), result.Stats.LinkTime, err)
	r.reporter().StageFinished(StageLink, counter, err)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	rn.logger.Info("linked packages",
		"packages", result.Stats.Installed,
		"duration", result.Stats.LinkTime)
	return result, nil
}

// Resolve runs the resolve and optimize stages without touching
// node_modules. Optimization is skipped when opts.Raw is set.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*Result, error) {
	result, _, err := r.plan(ctx, opts)
	return result, err
}

func (r *Runner) plan(ctx context.Context, opts Options) (*Result, *run, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, fmt.Errorf("invalid options: %w", err)
	}
	m, err := manifest.Read(opts.Dir)
	if err != nil {
		return nil, nil, err
	}

	rn := r.newRun(opts)
	result := &Result{RunID: rn.id}
	rootName := m.Name
	if rootName == "" {
		rootName = filepath.Base(opts.Dir)
	}

	// Stage 1: Resolve
	hooks := observability.Pipeline()
	hooks.OnResolveStart(ctx, rootName)
	counter := &Counter{}
	r.reporter().StageStarted(StageResolve, counter)
	resolver := deps.NewResolver(rn.client, deps.Options{Logger: rn.logger, Progress: counter, Archives: rn.fetcher})

	start := time.Now()
	raw, err := resolver.Resolve(ctx, rootName, RootRequests(m, opts.Production))
	result.Stats.ResolveTime = time.Since(start)
	count := 0
	if raw != nil {
		count = raw.Count()
	}
	hooks.OnResolveComplete(ctx, rootName, count, result.Stats.ResolveTime, err)
	r.reporter().StageFinished(StageResolve, counter, err)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve: %w", err)
	}
	result.Raw = raw
	result.Stats.Resolved = count

	rn.logger.Info("resolved dependencies",
		"packages", result.Stats.Resolved,
		"duration", result.Stats.ResolveTime)

	// Stage 2: Optimize
	result.Tree = raw
	if !opts.Raw {
		start = time.Now()
		result.Tree = transform.Hoist(raw)
		result.Stats.OptimizeTime = time.Since(start)
		hooks.OnOptimizeComplete(ctx, raw.Count(), result.Tree.Count(), result.Stats.OptimizeTime)

		rn.logger.Info("optimized tree",
			"before", raw.Count(),
			"after", result.Tree.Count(),
			"duration", result.Stats.OptimizeTime)
	}
	result.Stats.Installed = result.Tree.Count()
	return result, rn, nil
}

// RootRequests returns the project's direct dependency requests, sorted by
// name. devDependencies are included unless production is set; a name
// declared in both uses the dependencies entry.
func RootRequests(m *manifest.Manifest, production bool) []deps.Request {
	merged := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	if !production {
		for name, ref := range m.DevDependencies {
			merged[name] = ref
		}
	}
	for name, ref := range m.Dependencies {
		merged[name] = ref
	}
	return deps.FromMap(merged)
}
