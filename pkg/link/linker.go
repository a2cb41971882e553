package link

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackpm/pkg/archive"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/manifest"
	"github.com/matzehuels/stackpm/pkg/tree"
)

const (
	// DefaultModulesDir is the dependency container directory name.
	DefaultModulesDir = "node_modules"
	// BinDir is the executables directory inside a container.
	BinDir = ".bin"

	wrapperDepth = 1
)

// Fetcher supplies archive bytes for a package reference.
type Fetcher interface {
	Fetch(ctx context.Context, name, ref string) ([]byte, error)
}

// Progress is advanced once per visited node.
type Progress interface {
	Tick()
}

// Options configures a [Linker].
type Options struct {
	ModulesDir    string      // Container directory name (default: node_modules)
	IgnoreScripts bool        // Skip lifecycle scripts
	Shell         string      // Script interpreter, invoked as "<shell> -c <script>" (default: sh)
	Logger        *log.Logger // Default: log.Default()
	Progress      Progress
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.ModulesDir == "" {
		opts.ModulesDir = DefaultModulesDir
	}
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	return opts
}

type nopProgress struct{}

func (nopProgress) Tick() {}

// Linker materializes trees. It is safe for concurrent use on disjoint
// target directories.
type Linker struct {
	fetcher Fetcher
	opts    Options
}

// New creates a Linker.
func New(fetcher Fetcher, opts Options) *Linker {
	return &Linker{fetcher: fetcher, opts: opts.WithDefaults()}
}

// Link installs the children of root below targetDir. root itself is
// taken to be the project already present at targetDir.
func (l *Linker) Link(ctx context.Context, root *tree.Node, targetDir string) error {
	return l.linkChildren(ctx, root, targetDir)
}

func (l *Linker) linkChildren(ctx context.Context, n *tree.Node, dir string) error {
	if len(n.Children) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, child := range n.Children {
		g.Go(func() error {
			return l.linkNode(ctx, child, dir)
		})
	}
	return g.Wait()
}

func (l *Linker) linkNode(ctx context.Context, n *tree.Node, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := l.installDir(dir, n.Name)
	if err != nil {
		return err
	}

	switch _, err := os.Lstat(target); {
	case err == nil:
		l.opts.Logger.Debug("already installed", "package", n.ID(), "dir", target)
	case errors.Is(err, fs.ErrNotExist):
		if err := l.install(ctx, n, dir, target); err != nil {
			return err
		}
	default:
		return errs.Wrap(errs.ErrCodeLink, err, "inspect %s", target)
	}
	l.opts.Progress.Tick()

	return l.linkChildren(ctx, n, target)
}

func (l *Linker) install(ctx context.Context, n *tree.Node, dir, target string) error {
	data, err := l.fetcher.Fetch(ctx, n.Name, n.Reference)
	if err != nil {
		return err
	}
	if err := archive.Extract(ctx, data, target, wrapperDepth); err != nil {
		return fmt.Errorf("%s: %w", n.ID(), err)
	}

	m, err := readManifest(target, n)
	if err != nil {
		return err
	}
	if err := l.linkBins(n, m, dir, target); err != nil {
		return err
	}
	if !l.opts.IgnoreScripts {
		if err := l.runScripts(ctx, n, m, dir, target); err != nil {
			return err
		}
	}
	l.opts.Logger.Debug("installed", "package", n.ID(), "dir", target)
	return nil
}

func readManifest(target string, n *tree.Node) (*manifest.Manifest, error) {
	path := filepath.Join(target, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrap(errs.ErrCodeArchive, err, "archive of %s has no %s", n.ID(), manifest.FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeArchive, err, "read %s of %s", manifest.FileName, n.ID())
	}
	m, err := manifest.ParseFor(data, n.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.ID(), err)
	}
	return m, nil
}

// linkBins creates <dir>/<modules>/.bin/<cmd> symlinks for every bin entry.
func (l *Linker) linkBins(n *tree.Node, m *manifest.Manifest, dir, target string) error {
	if len(m.Bin) == 0 {
		return nil
	}
	binDir := l.binDir(dir)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeLink, err, "create %s", binDir)
	}

	for _, cmd := range slices.Sorted(maps.Keys(m.Bin)) {
		source := filepath.Join(target, filepath.FromSlash(m.Bin[cmd]))
		if !within(target, source) {
			return errs.New(errs.ErrCodeLink, "bin %s of %s points outside the package", cmd, n.ID())
		}
		if _, err := os.Stat(source); err != nil {
			l.opts.Logger.Warn("bin target missing", "package", n.ID(), "bin", cmd, "path", m.Bin[cmd])
			continue
		}
		dest := filepath.Join(binDir, cmd)
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		if err := os.Chmod(source, 0o755); err != nil {
			return errs.Wrap(errs.ErrCodeLink, err, "make %s executable", source)
		}
		rel, err := filepath.Rel(binDir, source)
		if err != nil {
			return errs.Wrap(errs.ErrCodeLink, err, "link bin %s", cmd)
		}
		if err := os.Symlink(rel, dest); err != nil && !errors.Is(err, fs.ErrExist) {
			return errs.Wrap(errs.ErrCodeLink, err, "link bin %s of %s", cmd, n.ID())
		}
	}
	return nil
}

// installDir returns <dir>/<modules>/<name>, refusing names that are not
// valid npm package names.
func (l *Linker) installDir(dir, name string) (string, error) {
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidPackage, err, "install %q", name)
	}
	return filepath.Join(dir, l.opts.ModulesDir, filepath.FromSlash(name)), nil
}

func (l *Linker) binDir(dir string) string {
	return filepath.Join(dir, l.opts.ModulesDir, BinDir)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
