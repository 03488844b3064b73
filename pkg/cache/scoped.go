package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DatasetKey generates a prefixed dataset key.
func (k *ScopedKeyer) DatasetKey(ref string) string {
	return k.prefix + k.inner.DatasetKey(ref)
}

// RenderKey generates a prefixed render model key.
func (k *ScopedKeyer) RenderKey(datasetDigest string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(datasetDigest, opts)
}
