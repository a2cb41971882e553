package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpm/pkg/config"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	treeio "github.com/matzehuels/stackpm/pkg/io"
	"github.com/matzehuels/stackpm/pkg/pipeline"
	"github.com/matzehuels/stackpm/pkg/tree"
)

// Tree output formats.
const (
	formatText = "text"
	formatDOT  = "dot"
	formatJSON = "json"
	formatSVG  = "svg"
)

type treeFlags struct {
	registryFlags
	format     string
	output     string
	raw        bool
	production bool
}

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var flags treeFlags

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the dependency tree of a project",
		Long: `Tree resolves the project in dir and prints the tree that install would
link, without downloading archives or touching node_modules. Use --raw to
print the tree before hoisting.`,
		Example: `  stackpm tree
  stackpm tree --raw --format dot | dot -Tpng > tree.png
  stackpm tree --format json -o tree.json
  stackpm tree --format svg -o tree.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch flags.format {
			case formatText, formatDOT, formatJSON, formatSVG:
			default:
				return errs.New(errs.ErrCodeInvalidConfig, "unknown format %q (want text, dot, json or svg)", flags.format)
			}
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			cfg, err := c.loadConfig(func(cfg *config.Config) { flags.apply(fs, cfg) })
			if err != nil {
				return err
			}
			return c.runTree(cmd, cfg, dir, flags)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&flags.format, "format", "f", formatText, "output format: text, dot, json or svg")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "skip hoisting")
	cmd.Flags().BoolVar(&flags.production, "production", false, "omit devDependencies")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, cfg *config.Config, dir string, flags treeFlags) error {
	ctx := cmd.Context()

	// Resolving reads registry metadata only, so no archive cache is opened.
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	runner.Reporter = newReporter(c.Err, c.Logger, c.verbose)

	opts := pipelineOptions(cfg, dir)
	opts.Raw = flags.raw
	opts.Production = flags.production
	result, err := runner.Resolve(ctx, opts)
	if err != nil {
		return err
	}

	var data []byte
	switch flags.format {
	case formatDOT:
		data = []byte(tree.ToDOT(result.Tree))
	case formatJSON:
		var buf bytes.Buffer
		if err := treeio.WriteJSON(result.Tree, &buf); err != nil {
			return err
		}
		data = buf.Bytes()
	case formatSVG:
		if data, err = tree.RenderSVG(ctx, tree.ToDOT(result.Tree)); err != nil {
			return err
		}
	default:
		data = []byte(tree.Format(result.Tree))
	}

	if flags.output == "" {
		return writeAll(cmd.OutOrStdout(), data)
	}
	if err := os.WriteFile(flags.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flags.output, err)
	}
	printSuccess(cmd.OutOrStdout(), "Wrote %d packages", result.Tree.Count())
	printFile(cmd.OutOrStdout(), flags.output)
	return nil
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
