package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpm/pkg/observability"
)

// debugHooks logs registry traffic and cache lookups at debug level.
type debugHooks struct {
	logger *log.Logger
}

// installDebugHooks routes HTTP and cache events to logger.
func installDebugHooks(logger *log.Logger) {
	h := debugHooks{logger: logger}
	observability.SetHTTPHooks(h)
	observability.SetCacheHooks(h)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path,
		"status", status, "duration", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

func (h debugHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}

func (h debugHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", key)
}

func (h debugHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cache set", "key", key, "bytes", size)
}

var (
	_ observability.HTTPHooks  = debugHooks{}
	_ observability.CacheHooks = debugHooks{}
)
