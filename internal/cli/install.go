package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpm/pkg/config"
	"github.com/matzehuels/stackpm/pkg/link"
)

type installFlags struct {
	registryFlags
	cacheDir      string
	noCache       bool
	ignoreScripts bool
	production    bool
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install [dir]",
		Short: "Install the dependencies of a project into node_modules",
		Long: `Install reads package.json in dir (default: the current directory), resolves
every dependency against the registry, hoists the tree and links it into
dir/node_modules. Packages already present in node_modules are left alone.`,
		Example: `  stackpm install
  stackpm install ./app --production
  stackpm install --registry https://registry.npmjs.org --no-cache`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			cfg, err := c.loadConfig(func(cfg *config.Config) {
				flags.apply(fs, cfg)
				if fs.Changed("cache-dir") {
					cfg.Cache.Backend = config.BackendFile
					cfg.Cache.Dir = flags.cacheDir
				}
				if flags.noCache {
					cfg.Cache.Backend = config.BackendNone
				}
				if flags.ignoreScripts {
					cfg.IgnoreScripts = true
				}
			})
			if err != nil {
				return err
			}
			return c.runInstall(cmd, cfg, dir, flags.production)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "archive cache directory")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the archive cache")
	cmd.Flags().BoolVar(&flags.ignoreScripts, "ignore-scripts", false, "skip preinstall, install and postinstall scripts")
	cmd.Flags().BoolVar(&flags.production, "production", false, "omit devDependencies")

	return cmd
}

func (c *CLI) runInstall(cmd *cobra.Command, cfg *config.Config, dir string, production bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(cfg)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	opts := pipelineOptions(cfg, dir)
	opts.Production = production
	logger.Debug("installing", "dir", dir, "registry", cfg.Registry, "cache", cfg.Cache.Backend)

	start := time.Now()
	result, err := runner.Install(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Installed %d packages", result.Stats.Installed)
	printStats(out, result.Stats.Resolved, result.Stats.Installed, time.Since(start))
	printFile(out, filepath.Join(dir, link.DefaultModulesDir))
	return nil
}
