package deps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/stackpm/pkg/archive"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/integrations"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
	"github.com/matzehuels/stackpm/pkg/manifest"
	"github.com/matzehuels/stackpm/pkg/tree"
)

// MetadataSource supplies registry documents.
type MetadataSource interface {
	FetchPackageInfo(ctx context.Context, name string) (*npm.PackageInfo, error)
}

// ArchiveSource supplies archive bytes for local path and URL references.
type ArchiveSource interface {
	Fetch(ctx context.Context, name, ref string) ([]byte, error)
}

// Progress receives resolution counters. Add grows the total when a request
// is discovered; Tick advances it when the request is pinned.
type Progress interface {
	Add(n int)
	Tick()
}

// Options configures a [Resolver].
type Options struct {
	Logger   *log.Logger   // Debug output for pins (default: log.Default())
	Progress Progress      // Optional counters
	Archives ArchiveSource // Reads path and URL archives; without it they resolve as leaves
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	return opts
}

type nopProgress struct{}

func (nopProgress) Add(int) {}
func (nopProgress) Tick()   {}

// Resolver builds dependency trees. It is safe for concurrent use; pin
// results are shared by every call on the same Resolver.
type Resolver struct {
	source MetadataSource
	opts   Options

	group singleflight.Group
	mu    sync.RWMutex
	pins  map[Request]string
	local map[Request][]Request
}

// NewResolver creates a Resolver reading metadata from source.
func NewResolver(source MetadataSource, opts Options) *Resolver {
	return &Resolver{
		source: source,
		opts:   opts.WithDefaults(),
		pins:   make(map[Request]string),
		local:  make(map[Request][]Request),
	}
}

// Resolve returns the tree rooted at a project called name whose direct
// dependencies are reqs. The root carries an empty reference.
func (r *Resolver) Resolve(ctx context.Context, name string, reqs []Request) (*tree.Node, error) {
	return r.ResolveScope(ctx, name, reqs, Scope{})
}

// ResolveScope is Resolve starting from an existing scope. Requests the
// scope already satisfies are omitted from the tree.
func (r *Resolver) ResolveScope(ctx context.Context, name string, reqs []Request, scope Scope) (*tree.Node, error) {
	children, err := r.resolveAll(ctx, reqs, scope)
	if err != nil {
		return nil, err
	}
	return &tree.Node{Name: name, Children: children}, nil
}

func (r *Resolver) resolveAll(ctx context.Context, reqs []Request, scope Scope) ([]*tree.Node, error) {
	var pending []Request
	for _, req := range reqs {
		if err := errs.ValidateNpmPackageName(req.Name); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidPackage, err, "dependency %s", req)
		}
		if !scope.Satisfies(req) {
			pending = append(pending, req)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	r.opts.Progress.Add(len(pending))
	children := make([]*tree.Node, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range pending {
		g.Go(func() error {
			node, err := r.resolveOne(ctx, req, scope)
			if err != nil {
				return err
			}
			children[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return children, nil
}

func (r *Resolver) resolveOne(ctx context.Context, req Request, scope Scope) (*tree.Node, error) {
	var pinned string
	var reqs []Request
	var err error
	switch Classify(req.Reference) {
	case KindPath, KindURL:
		pinned = req.Reference
		r.opts.Progress.Tick()
		reqs, err = r.archiveDependencies(ctx, req)
	default:
		pinned, err = r.pin(ctx, req)
		if err != nil {
			return nil, err
		}
		r.opts.Progress.Tick()
		reqs, err = r.dependencies(ctx, req.Name, pinned)
	}
	if err != nil {
		return nil, err
	}

	children, err := r.resolveAll(ctx, reqs, scope.With(req.Name, pinned))
	if err != nil {
		return nil, err
	}
	return &tree.Node{Name: req.Name, Reference: pinned, Children: children}, nil
}

// pin maps a request to an exact version.
func (r *Resolver) pin(ctx context.Context, req Request) (string, error) {
	kind := Classify(req.Reference)
	if kind == KindVersion {
		return req.Reference, nil
	}

	r.mu.RLock()
	v, ok := r.pins[req]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := r.group.Do(req.String(), func() (any, error) {
		info, err := r.info(ctx, req.Name)
		if err != nil {
			return "", err
		}

		var pinned string
		var found bool
		if kind == KindTag {
			pinned, found = info.Tag(req.Reference)
		} else {
			pinned, found = maxSatisfying(info.PublishedVersions(), req.Reference)
		}
		if !found {
			return "", errs.New(errs.ErrCodeResolution,
				"could not find a version matching %q for package %s", req.Reference, req.Name)
		}

		r.mu.Lock()
		r.pins[req] = pinned
		r.mu.Unlock()
		r.opts.Logger.Debug("pinned", "package", req.Name, "range", req.Reference, "version", pinned)
		return pinned, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// dependencies returns the requests declared by name@version in the
// registry document.
func (r *Resolver) dependencies(ctx context.Context, name, version string) ([]Request, error) {
	info, err := r.info(ctx, name)
	if err != nil {
		return nil, err
	}
	v, ok := info.Version(version)
	if !ok {
		return nil, errs.New(errs.ErrCodeResolution, "version %s of package %s is not published", version, name)
	}
	return FromMap(v.Dependencies), nil
}

// archiveDependencies returns the requests declared by the package.json
// inside the archive of a path or URL request.
func (r *Resolver) archiveDependencies(ctx context.Context, req Request) ([]Request, error) {
	if r.opts.Archives == nil {
		return nil, nil
	}

	r.mu.RLock()
	reqs, ok := r.local[req]
	r.mu.RUnlock()
	if ok {
		return reqs, nil
	}

	res, err, _ := r.group.Do("archive:"+req.String(), func() (any, error) {
		data, err := r.opts.Archives.Fetch(ctx, req.Name, req.Reference)
		if err != nil {
			return nil, err
		}
		raw, err := archive.ReadFile(data, manifest.FileName, 1)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeArchive, err, "read %s of %s", manifest.FileName, req)
		}
		m, err := manifest.ParseFor(raw, req.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}

		reqs := FromMap(m.Dependencies)
		r.mu.Lock()
		r.local[req] = reqs
		r.mu.Unlock()
		r.opts.Logger.Debug("read archive manifest", "package", req.Name, "reference", req.Reference, "dependencies", len(reqs))
		return reqs, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]Request), nil
}

func (r *Resolver) info(ctx context.Context, name string) (*npm.PackageInfo, error) {
	info, err := r.source.FetchPackageInfo(ctx, name)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, integrations.ErrNotFound):
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "package %s not found in registry", name)
	default:
		return nil, errs.Wrap(errs.ErrCodeFetch, err, "fetch metadata for %s", name)
	}
}
