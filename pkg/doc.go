// Package pkg provides the libraries behind stackpm, a small npm-compatible
// package manager.
//
// # Overview
//
// An install runs four stages over a project's package.json:
//
//	package.json
//	     ↓
//	[deps] Resolver: pin every request, build the dependency tree
//	     ↓
//	[tree/transform] Hoist: move packages up to share installs
//	     ↓
//	[fetch] Fetcher: archive bytes from cache, registry, path or URL
//	     ↓
//	[link] Linker: extract into node_modules, link bins, run scripts
//
// [pipeline] wires the stages together and is what the CLI calls.
//
// # Quick Start
//
//	archives, _ := cache.NewFileCache(dir)
//	runner := pipeline.NewRunner(archives, nil, logger)
//	result, err := runner.Install(ctx, pipeline.Options{Dir: "./app"})
//	fmt.Println(tree.Format(result.Tree))
//
// # Main Packages
//
// ## Domain
//
// [deps] - Request classification (version, range, tag, path, URL), the
// ancestor scope and the concurrent resolver.
//
// [tree] - The dependency tree, text and DOT rendering, SVG via Graphviz.
//
// [tree/transform] - Pure tree rewrites; [transform.Hoist] deduplicates.
//
// [manifest] - package.json parsing with bin normalization.
//
// [archive] - Safe extraction of npm tarballs.
//
// [fetch] - Archive retrieval behind the archive cache.
//
// [link] - node_modules layout, executables and lifecycle scripts.
//
// ## Infrastructure
//
// [integrations] - Shared HTTP client with retries, per-attempt timeouts and
// a concurrency limit; [integrations/npm] speaks the registry protocol.
//
// [cache] - Archive cache backends: file, redis and null.
//
// [config] - Layered settings from defaults, TOML and the environment.
//
// [io] - Node-link JSON import and export of trees.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Coded errors (RESOLUTION_FAILED, FETCH_FAILED, ...).
//
// [httputil] - Retry and throttling primitives.
//
// [registrytest] - An in-process fake registry for tests.
//
// # Testing
//
//	go test ./...
//	go test -run Example ./pkg/...
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/deps
// [tree]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/tree
// [tree/transform]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/tree/transform
// [transform.Hoist]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/tree/transform#Hoist
// [manifest]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/manifest
// [archive]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/archive
// [fetch]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/fetch
// [link]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/link
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/pipeline
// [integrations]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/integrations
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/integrations/npm
// [cache]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/config
// [io]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/io
// [observability]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/httputil
// [registrytest]: https://pkg.go.dev/github.com/matzehuels/stackpm/pkg/registrytest
package pkg
