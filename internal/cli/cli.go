package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/stackpm/pkg/buildinfo"
	"github.com/matzehuels/stackpm/pkg/cache"
	"github.com/matzehuels/stackpm/pkg/config"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Err    io.Writer         // Log and progress destination
	Env    config.LookupFunc // Environment lookup (default: os.LookupEnv)

	configPath string
	verbose    bool
}

// New creates a CLI that logs to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Err:    w,
		Env:    os.LookupEnv,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "stackpm",
		Short: "stackpm installs npm packages into node_modules",
		Long: `stackpm resolves a project's package.json against an npm registry, hoists the
resulting tree to avoid duplicate installs, and links the packages into
node_modules, running their lifecycle scripts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		// main prints errors with their code-aware message
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.Logger.SetLevel(LogDebug)
				installDebugHooks(c.Logger)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/stackpm/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Settings
// =============================================================================

// registryFlags are shared by every command that talks to the registry.
type registryFlags struct {
	registry    string
	concurrency int
	retries     int
	timeout     time.Duration
}

func (f *registryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.registry, "registry", "", "registry base URL")
	fs.IntVar(&f.concurrency, "concurrency", 0, "simultaneous tarball downloads")
	fs.IntVar(&f.retries, "retries", 0, "attempts per registry request")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-attempt request timeout")
}

// apply overlays the flags the user set on cfg.
func (f *registryFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("registry") {
		cfg.Registry = f.registry
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fs.Changed("retries") {
		cfg.Retries = f.retries
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
}

// loadConfig reads the layered settings, lets overlay apply flags on top
// and validates the result.
func (c *CLI) loadConfig(overlay func(*config.Config)) (*config.Config, error) {
	env := c.Env
	if env == nil {
		env = os.LookupEnv
	}
	cfg, err := config.LoadWith(c.configPath, env)
	if err != nil {
		return nil, err
	}
	if overlay != nil {
		overlay(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// pipelineOptions maps settings onto a run for the project in dir.
func pipelineOptions(cfg *config.Config, dir string) pipeline.Options {
	return pipeline.Options{
		Dir:           dir,
		Registry:      cfg.Registry,
		Concurrency:   cfg.Concurrency,
		Retries:       cfg.Retries,
		Timeout:       cfg.Timeout,
		IgnoreScripts: cfg.IgnoreScripts,
	}
}

// projectDir returns the absolute project directory named by args.
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidConfig, err, "project directory %s", dir)
	}
	return abs, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured archive
// cache. The caller closes runner.Cache.
func (c *CLI) newRunner(cfg *config.Config) (*pipeline.Runner, error) {
	archives, keyer, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(archives, keyer, c.Logger)
	runner.Reporter = newReporter(c.Err, c.Logger, c.verbose)
	return runner, nil
}

// openCache returns the archive cache for cfg.Cache.Backend. Redis keys
// are scoped by the configured prefix so one database can serve several
// tools.
func openCache(cfg *config.Config) (cache.Cache, cache.Keyer, error) {
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil, nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "redis cache %s", cfg.Cache.RedisURL)
		}
		return rc, cache.NewScopedKeyer(nil, cfg.Cache.RedisPrefix), nil
	default:
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "cache directory %s", cfg.Cache.Dir)
		}
		return fc, nil, nil
	}
}
