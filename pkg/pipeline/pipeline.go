// Package pipeline runs the install pipeline for a project.
//
// # Architecture
//
// An install has four stages:
//
//  1. Resolve: turn the project's declared dependencies into a tree of
//     pinned packages ([deps.Resolver])
//  2. Optimize: hoist packages to reduce duplicate installs
//     ([transform.Hoist])
//  3. Fetch: download archives, or read them from the archive cache
//     ([fetch.Fetcher]); driven by the linker
//  4. Link: extract archives into node_modules, link executables and run
//     lifecycle scripts ([link.Linker])
//
// # Usage
//
//	runner := pipeline.NewRunner(archives, nil, logger)
//	result, err := runner.Install(ctx, pipeline.Options{
//	    Dir:      ".",
//	    Registry: "https://registry.yarnpkg.com",
//	})
//
// Every call builds fresh per-run state: registry metadata and pin lookups
// are memoized for that call only, while the archive cache persists across
// calls. Each run gets a random ID that appears in its log lines.
//
// [deps.Resolver]: github.com/matzehuels/stackpm/pkg/deps.Resolver
// [transform.Hoist]: github.com/matzehuels/stackpm/pkg/tree/transform.Hoist
// [fetch.Fetcher]: github.com/matzehuels/stackpm/pkg/fetch.Fetcher
// [link.Linker]: github.com/matzehuels/stackpm/pkg/link.Linker
package pipeline

import (
	"path/filepath"
	"time"

	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/integrations"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
)

// Options configures one pipeline run.
type Options struct {
	Dir           string        // Project directory holding package.json (default: ".")
	Registry      string        // Registry base URL (default: npm.DefaultRegistry)
	Concurrency   int           // Simultaneous tarball downloads (default: 8)
	Retries       int           // Total attempts per request (default: 3)
	Timeout       time.Duration // Per-attempt request timeout (default: 30s)
	IgnoreScripts bool          // Skip lifecycle scripts
	Production    bool          // Omit the project's devDependencies
	Raw           bool          // Skip the optimize stage
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Dir == "" {
		o.Dir = "."
	}
	dir, err := filepath.Abs(o.Dir)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "project directory %s", o.Dir)
	}
	o.Dir = dir

	if o.Registry == "" {
		o.Registry = npm.DefaultRegistry
	}
	if err := errs.ValidateURL(o.Registry); err != nil {
		return err
	}
	if o.Concurrency < 0 || o.Retries < 0 || o.Timeout < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "concurrency, retries and timeout must not be negative")
	}
	if o.Concurrency == 0 {
		o.Concurrency = integrations.DefaultConcurrency
	}
	if o.Retries == 0 {
		o.Retries = integrations.DefaultRetries
	}
	if o.Timeout == 0 {
		o.Timeout = integrations.DefaultTimeout
	}
	return nil
}

// Stats reports per-stage timings and sizes.
type Stats struct {
	ResolveTime  time.Duration
	OptimizeTime time.Duration
	LinkTime     time.Duration
	Resolved     int // Nodes in the resolved tree, root excluded
	Installed    int // Nodes in the optimized tree, root excluded
}
