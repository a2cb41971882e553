package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpm/pkg/cache"
	"github.com/matzehuels/stackpm/pkg/deps"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
	"github.com/matzehuels/stackpm/pkg/observability"
)

// Options configures a [Fetcher].
type Options struct {
	Cache  cache.Cache // Archive store (default: cache.NullCache)
	Keyer  cache.Keyer // Key scheme (default: cache.NewDefaultKeyer())
	Dir    string      // Base for relative local paths (default: working directory)
	Logger *log.Logger // Default: log.Default()
}

// Fetcher resolves archive bytes for pinned references.
// It is safe for concurrent use.
type Fetcher struct {
	client *npm.Client
	cache  cache.Cache
	keyer  cache.Keyer
	dir    string
	logger *log.Logger
}

// New creates a Fetcher downloading through client.
func New(client *npm.Client, opts Options) *Fetcher {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Fetcher{
		client: client,
		cache:  opts.Cache,
		keyer:  opts.Keyer,
		dir:    opts.Dir,
		logger: opts.Logger,
	}
}

// FetchPackageInfo returns registry metadata for name, memoized by the
// underlying client.
func (f *Fetcher) FetchPackageInfo(ctx context.Context, name string) (*npm.PackageInfo, error) {
	return f.client.FetchPackageInfo(ctx, name)
}

// Fetch returns the archive bytes of name at ref.
func (f *Fetcher) Fetch(ctx context.Context, name, ref string) ([]byte, error) {
	switch deps.Classify(ref) {
	case deps.KindPath:
		return f.readLocal(name, ref)
	case deps.KindURL:
		data, err := f.client.Download(ctx, ref)
		if err != nil {
			return nil, fetchError(err, "download %s from %s", name, ref)
		}
		return data, nil
	case deps.KindVersion:
		return f.fetchVersion(ctx, name, ref)
	default:
		return nil, errs.New(errs.ErrCodePrecondition,
			"must provide a pinned reference or local path to fetch %s, got %q", name, ref)
	}
}

func (f *Fetcher) readLocal(name, ref string) ([]byte, error) {
	path := ref
	if !filepath.IsAbs(path) && f.dir != "" {
		path = filepath.Join(f.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFetch, err, "read local archive for %s", name)
	}
	return data, nil
}

func (f *Fetcher) fetchVersion(ctx context.Context, name, version string) ([]byte, error) {
	key := f.keyer.ArchiveKey(name, version)
	hooks := observability.Cache()

	data, ok, err := f.cache.Get(ctx, key)
	switch {
	case err != nil:
		f.logger.Warn("cache read failed", "key", key, "error", err)
	case ok:
		hooks.OnCacheHit(ctx, key)
		f.logger.Debug("cache hit", "package", name, "version", version)
		return data, nil
	}
	hooks.OnCacheMiss(ctx, key)

	data, err = f.client.DownloadTarball(ctx, name, version)
	if err != nil {
		return nil, fetchError(err, "fetch %s@%s", name, version)
	}

	if err := f.cache.Set(ctx, key, data); err != nil {
		f.logger.Warn("cache write failed", "key", key, "error", err)
	} else {
		hooks.OnCacheSet(ctx, key, len(data))
	}
	return data, nil
}

func fetchError(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Wrap(errs.ErrCodeFetch, err, format, args...)
}
