package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/stackpm/pkg/cache"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/fetch"
	"github.com/matzehuels/stackpm/pkg/integrations"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
	"github.com/matzehuels/stackpm/pkg/registrytest"
)

func setup(t *testing.T, pkgs ...registrytest.Package) (*fetch.Fetcher, *registrytest.Registry, *cache.FileCache) {
	t.Helper()
	reg := registrytest.New(t)
	reg.Publish(pkgs...)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := npm.NewClient(integrations.NewClient(integrations.Options{}), reg.URL())
	return fetch.New(client, fetch.Options{Cache: fc}), reg, fc
}

func TestFetchCachesArchives(t *testing.T) {
	pkg := registrytest.Package{Name: "left-pad", Version: "1.3.0"}
	f, reg, _ := setup(t, pkg)
	ctx := context.Background()

	first, err := f.Fetch(ctx, "left-pad", "1.3.0")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	second, err := f.Fetch(ctx, "left-pad", "1.3.0")
	if err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("cached bytes differ from downloaded bytes")
	}
	if got := reg.TarballRequests(); got != 1 {
		t.Errorf("tarball requests = %d, want 1", got)
	}
}

func TestFetchCacheSurvivesFetcher(t *testing.T) {
	pkg := registrytest.Package{Name: "left-pad", Version: "1.3.0"}
	f, reg, fc := setup(t, pkg)
	if _, err := f.Fetch(context.Background(), "left-pad", "1.3.0"); err != nil {
		t.Fatal(err)
	}

	// A fresh fetcher over the same cache root models a second run.
	again := fetch.New(npm.NewClient(nil, reg.URL()), fetch.Options{Cache: fc})
	if _, err := again.Fetch(context.Background(), "left-pad", "1.3.0"); err != nil {
		t.Fatal(err)
	}
	if got := reg.TarballRequests(); got != 1 {
		t.Errorf("tarball requests = %d, want 1", got)
	}
}

func TestFetchScopedCacheLayout(t *testing.T) {
	f, _, fc := setup(t, registrytest.Package{Name: "@babel/core", Version: "7.0.0"})
	if _, err := f.Fetch(context.Background(), "@babel/core", "7.0.0"); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fc.Dir(), "@babel", "core", "7.0.0.tgz")); err != nil {
		t.Errorf("scoped archive not cached in nested directory: %v", err)
	}
}

func TestFetchRequiresPinnedReference(t *testing.T) {
	f, reg, _ := setup(t)
	for _, ref := range []string{"^1.0.0", "latest", "*"} {
		_, err := f.Fetch(context.Background(), "left-pad", ref)
		if !errs.Is(err, errs.ErrCodePrecondition) {
			t.Errorf("Fetch(%q) error = %v, want %s", ref, err, errs.ErrCodePrecondition)
		}
	}
	if reg.TarballRequests() != 0 {
		t.Error("unpinned fetch reached the registry")
	}
}

func TestFetchLocalPath(t *testing.T) {
	dir := t.TempDir()
	want := []byte("archive bytes")
	if err := os.WriteFile(filepath.Join(dir, "pkg.tgz"), want, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registrytest.New(t)
	f := fetch.New(npm.NewClient(nil, reg.URL()), fetch.Options{Dir: dir})

	for _, ref := range []string{"./pkg.tgz", filepath.Join(dir, "pkg.tgz")} {
		got, err := f.Fetch(context.Background(), "local", ref)
		if err != nil {
			t.Fatalf("Fetch(%q) error: %v", ref, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Fetch(%q) = %q", ref, got)
		}
	}

	if _, err := f.Fetch(context.Background(), "local", "./missing.tgz"); !errs.Is(err, errs.ErrCodeFetch) {
		t.Errorf("missing local archive error = %v, want %s", err, errs.ErrCodeFetch)
	}
	if reg.TarballRequests() != 0 {
		t.Error("local fetch reached the registry")
	}
}

func TestFetchURLIsNotCached(t *testing.T) {
	f, reg, fc := setup(t, registrytest.Package{Name: "remote", Version: "1.0.0"})
	url := reg.URL() + registrytest.TarballPath("remote", "1.0.0")

	for range 2 {
		if _, err := f.Fetch(context.Background(), "remote", url); err != nil {
			t.Fatalf("Fetch(url) error: %v", err)
		}
	}
	if got := reg.TarballRequests(); got != 2 {
		t.Errorf("tarball requests = %d, want 2", got)
	}
	entries, _ := os.ReadDir(fc.Dir())
	if len(entries) != 0 {
		t.Errorf("URL fetch wrote %d cache entries", len(entries))
	}
}

func TestFetchErrors(t *testing.T) {
	f, reg, _ := setup(t, registrytest.Package{Name: "flaky", Version: "1.0.0"})

	_, err := f.Fetch(context.Background(), "missing", "1.0.0")
	if !errs.Is(err, errs.ErrCodeFetch) || !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("missing tarball error = %v", err)
	}

	reg.FailNext(registrytest.TarballPath("flaky", "1.0.0"), 10)
	if _, err := f.Fetch(context.Background(), "flaky", "1.0.0"); !errs.Is(err, errs.ErrCodeFetch) {
		t.Errorf("exhausted retries error = %v, want %s", err, errs.ErrCodeFetch)
	}
	if got := reg.Requests(registrytest.TarballPath("flaky", "1.0.0")); got != integrations.DefaultRetries {
		t.Errorf("attempts = %d, want %d", got, integrations.DefaultRetries)
	}
}

type brokenCache struct{ cache.Cache }

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}
func (brokenCache) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestFetchToleratesCacheFailures(t *testing.T) {
	reg := registrytest.New(t)
	reg.Publish(registrytest.Package{Name: "left-pad", Version: "1.3.0"})
	f := fetch.New(npm.NewClient(nil, reg.URL()), fetch.Options{Cache: brokenCache{}})

	data, err := f.Fetch(context.Background(), "left-pad", "1.3.0")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty archive")
	}
}
