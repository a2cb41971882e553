// Package integrations provides the shared HTTP client for registry APIs.
//
// # Overview
//
// [Client] applies one request policy to every registry call:
//
//   - a fixed per-attempt timeout; timing out cancels only that attempt
//   - immediate retry of transient failures via [httputil.Retry]
//   - a global download bound via [httputil.Throttle] ([Client.Download] only)
//   - status mapping to [ErrNotFound] and [ErrNetwork]
//   - [observability.HTTPHooks] events for every attempt
//
// The npm registry client lives in the [npm] subpackage.
//
// [npm]: github.com/matzehuels/stackpm/pkg/integrations/npm
// [httputil.Retry]: github.com/matzehuels/stackpm/pkg/httputil.Retry
// [httputil.Throttle]: github.com/matzehuels/stackpm/pkg/httputil.Throttle
// [observability.HTTPHooks]: github.com/matzehuels/stackpm/pkg/observability.HTTPHooks
package integrations
