package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/stackpm/pkg/httputil"
	"github.com/matzehuels/stackpm/pkg/observability"
)

// Options configures a [Client]. Zero values select the package defaults.
type Options struct {
	Timeout     time.Duration     // Per-attempt timeout (default: 30s)
	Retries     int               // Total attempts per request (default: 3)
	Concurrency int               // Simultaneous downloads (default: 8)
	Headers     map[string]string // Applied to every request
	HTTPClient  *http.Client      // Defaults to NewHTTPClient()
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	return opts
}

// Client provides shared HTTP functionality for registry API clients.
// It is safe for concurrent use.
type Client struct {
	http     *http.Client
	headers  map[string]string
	timeout  time.Duration
	retries  int
	throttle *httputil.Throttle
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	opts = opts.WithDefaults()
	return &Client{
		http:     opts.HTTPClient,
		headers:  opts.Headers,
		timeout:  opts.Timeout,
		retries:  opts.Retries,
		throttle: httputil.NewThrottle(opts.Concurrency),
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// Transient failures are retried; the download throttle is not used.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// Download performs an HTTP GET and returns the full response body.
// The call first waits for a download slot, then retries transient
// failures while holding it.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := c.throttle.Do(ctx, func() error {
		var err error
		body, err = c.fetch(ctx, rawURL)
		return err
	})
	return body, err
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := httputil.Retry(ctx, c.retries, func() error {
		var err error
		body, err = c.attempt(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, unwrapRetryable(err)
	}
	return body, nil
}

// attempt issues a single request bounded by the per-attempt timeout.
// The body is read inside the deadline so a stalled transfer also times out.
func (c *Client) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, path, err)
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		hooks.OnError(ctx, http.MethodGet, host, path, err)
		return nil, c.transportError(ctx, err)
	}
	return buf.Bytes(), nil
}

// transportError classifies a failed attempt. Cancellation of the caller's
// context is final; everything else, including the attempt's own deadline,
// is retryable.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return httputil.Retryable(fmt.Errorf("%w: timeout after %s", ErrNetwork, c.timeout))
	}
	return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500, code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func unwrapRetryable(err error) error {
	var re *httputil.RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}

func splitURL(u *url.URL) (host, path string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.EscapedPath()
}
