// Package cache stores downloaded package archives across runs.
//
// Registry versions are immutable once published, so an entry written for a
// key is never revalidated and never expires. Concurrent writers for the same
// key are expected to write identical bytes; the last writer wins.
//
// # Backends
//
//   - [FileCache]: one file per key under a fixed root (the default)
//   - [RedisCache]: a shared cache for machines that install the same trees
//   - [NullCache]: caching disabled (--no-cache)
//
// # Keys
//
// A [Keyer] maps (name, version) to a key. [DefaultKeyer] yields
// "<name>/<version>.tgz", so the file backend nests scoped names
// ("@babel/core/7.24.0.tgz") in subdirectories. [ScopedKeyer] prefixes
// every key, which the redis backend uses to share one database.
package cache

import "context"

// Cache is a byte store for package archives.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes data under key, replacing any previous entry.
	Set(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for archives.
type Keyer interface {
	ArchiveKey(name, version string) string
}

// DefaultKeyer generates "<name>/<version>.tgz" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArchiveKey returns the key for an archive of name at version.
func (DefaultKeyer) ArchiveKey(name, version string) string {
	return name + "/" + version + ".tgz"
}
