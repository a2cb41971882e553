package npm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/stackpm/pkg/integrations"
)

// DefaultRegistry is the registry used when none is configured.
const DefaultRegistry = "https://registry.yarnpkg.com"

// Client fetches package documents and tarballs from one registry.
// It is safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]*PackageInfo
}

// NewClient creates a registry client on top of http. An empty registry
// selects [DefaultRegistry].
func NewClient(http *integrations.Client, registry string) *Client {
	if registry == "" {
		registry = DefaultRegistry
	}
	if http == nil {
		http = integrations.NewClient(integrations.Options{})
	}
	return &Client{
		Client:  http,
		baseURL: strings.TrimRight(registry, "/"),
		memo:    make(map[string]*PackageInfo),
	}
}

// Registry returns the registry base URL without a trailing slash.
func (c *Client) Registry() string { return c.baseURL }

// FetchPackageInfo returns the registry document for name.
func (c *Client) FetchPackageInfo(ctx context.Context, name string) (*PackageInfo, error) {
	c.mu.RLock()
	info, ok := c.memo[name]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		info, ok := c.memo[name]
		c.mu.RUnlock()
		if ok {
			return info, nil
		}

		info, err := c.fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.memo[name] = info
		c.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PackageInfo), nil
}

func (c *Client) fetch(ctx context.Context, name string) (*PackageInfo, error) {
	var info PackageInfo
	if err := c.Get(ctx, c.baseURL+"/"+escapeName(name), &info); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: npm package %s", err, name)
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if info.Name == "" {
		info.Name = name
	}
	return &info, nil
}

// TarballURL returns the download URL of name@version.
func (c *Client) TarballURL(name, version string) string {
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", c.baseURL, name, Basename(name), version)
}

// DownloadTarball fetches the archive of name@version through the
// throttled, retried download path.
func (c *Client) DownloadTarball(ctx context.Context, name, version string) ([]byte, error) {
	data, err := c.Download(ctx, c.TarballURL(name, version))
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: tarball %s@%s", err, name, version)
		}
		return nil, fmt.Errorf("download %s@%s: %w", name, version, err)
	}
	return data, nil
}
