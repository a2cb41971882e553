// Package fetch retrieves package archives.
//
// [Fetcher.Fetch] accepts three kinds of reference:
//
//   - a local path ("/", "./" or "../" prefix), read from disk
//   - an http(s) URL, downloaded directly and never cached
//   - an exact version, served from the archive cache or downloaded from
//     the registry and written to the cache
//
// Any other reference is a PRECONDITION_FAILED error: ranges and tags must
// be pinned by the resolver first.
//
// Cached archives are immutable; a hit issues no network request. A failed
// cache write is logged and the downloaded bytes are still returned.
package fetch
