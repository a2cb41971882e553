package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpm/pkg/cache"
	"github.com/matzehuels/stackpm/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the package archive cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached package archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			archives, _, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer archives.Close()

			switch ac := archives.(type) {
			case *cache.FileCache:
				n, err := ac.Clear()
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess(out, "Cleared %d cached archives", n)
				printDetail(out, "Directory: %s", ac.Dir())
			case *cache.RedisCache:
				n, err := ac.ClearPrefix(cmd.Context(), cfg.Cache.RedisPrefix)
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess(out, "Cleared %d cached archives", n)
				printDetail(out, "Keys: %s*", cfg.Cache.RedisPrefix)
			default:
				printWarning(out, "Archive cache is disabled")
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where archives are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			switch cfg.Cache.Backend {
			case config.BackendRedis:
				fmt.Fprintf(cmd.OutOrStdout(), "%s (prefix %s)\n", cfg.Cache.RedisURL, cfg.Cache.RedisPrefix)
			case config.BackendNone:
				printInfo(cmd.OutOrStdout(), "Archive cache is disabled")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			}
			return nil
		},
	}
}
