package cache

// ScopedKeyer wraps a Keyer with a prefix so several tools (or several
// registries) can share one backend without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "stackpm:archive:")
//	keyer.ArchiveKey("left-pad", "1.3.0") // "stackpm:archive:left-pad/1.3.0.tgz"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// If inner is nil, a DefaultKeyer is used.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ArchiveKey generates a prefixed archive key.
func (k *ScopedKeyer) ArchiveKey(name, version string) string {
	return k.prefix + k.inner.ArchiveKey(name, version)
}
