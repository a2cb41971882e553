package integrations

import (
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is the total number of attempts per request.
	DefaultRetries = 3
	// DefaultConcurrency bounds simultaneous in-flight downloads.
	DefaultConcurrency = 8
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-success responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates the HTTP client used for registry requests.
// It carries no overall timeout; [Client] bounds each attempt with a context
// deadline instead, so a retried request gets a fresh budget.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
}
