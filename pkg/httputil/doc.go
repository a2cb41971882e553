// Package httputil provides the request policy shared by registry clients.
//
// # Overview
//
//   - [Retry]: bounded, immediate retry of transient failures
//   - [Throttle]: a global bound on simultaneous in-flight downloads
//
// # Retry
//
// [Retry] only re-runs errors wrapped in [RetryableError]. Registry clients
// wrap network errors, per-attempt timeouts and 5xx/408/429 responses; a 404
// is returned immediately. There is no backoff between attempts:
//
//	err := httputil.Retry(ctx, 3, func() error {
//	    return doRequest(ctx)
//	})
//
// # Throttle
//
// [Throttle] admits at most n concurrent callers. Callers beyond the bound
// wait in FIFO order for a released slot:
//
//	t := httputil.NewThrottle(8)
//	err := t.Do(ctx, func() error { return download(ctx) })
package httputil
