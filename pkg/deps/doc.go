// Package deps resolves dependency requests into a dependency tree.
//
// # Overview
//
// A [Request] names a package and a reference. [Classify] sorts references
// into exact versions, semver ranges, dist-tags, local paths and URLs.
// [Resolver] walks requests recursively:
//
//  1. A request already satisfied by the branch's [Scope] is skipped.
//  2. Ranges and dist-tags are pinned to a published version using registry
//     metadata; exact versions are used as-is.
//  3. The pinned version's dependencies come from the same metadata, so
//     no tarball is downloaded during resolution.
//  4. Children resolve with the scope extended by the new pin.
//
// Local paths and URLs are not pinned. When [Options.Archives] is set their
// archive is read for its package.json and the declared dependencies
// resolve like any other; otherwise they become leaf nodes. Every request
// name must be a valid npm package name.
//
// # Scopes
//
// A [Scope] is persistent: [Scope.With] returns an extended scope and leaves
// the receiver untouched. Each branch sees only the pins of its ancestors,
// so siblings may pin different versions of the same name.
//
// # Concurrency
//
// Sibling requests resolve concurrently and children keep the request
// order. The first error cancels the remaining siblings and is returned.
// Pin lookups are memoized per (name, reference) for the lifetime of the
// Resolver.
//
//	resolver := deps.NewResolver(npmClient, deps.Options{Logger: logger})
//	root, err := resolver.Resolve(ctx, "my-app", deps.FromMap(m.Dependencies))
package deps
