// Package cache provides the layout cache used by the generation
// runner. Generation is deterministic, so a layout is fully determined
// by its request options: the cache key is a hash of the canonical
// options encoding and a hit skips the whole pipeline.
//
// Three backends exist: NullCache (disabled), FileCache (local CLI
// runs), and RedisCache (shared server deployments). All are safe for
// concurrent use.
package cache

import (
	"context"
	"time"
)

// TTLs per entry kind. Layouts are immutable for a given key, so the
// TTL only bounds disk/memory growth, not staleness.
const (
	// TTLLayout applies to serialized layout payloads.
	TTLLayout = 30 * 24 * time.Hour
)

// Cache stores binary payloads by key with optional expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys. Implementations must be deterministic:
// equal inputs yield equal keys across processes.
type Keyer interface {
	// LayoutKey returns the key for a generated layout, given the hash
	// of its canonical request options.
	LayoutKey(optionsHash string) string
}

// DefaultKeyer is the standard key scheme: a kind prefix plus the
// options hash.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(optionsHash string) string {
	return hashKey("layout", optionsHash)
}

// ScopedKeyer wraps a Keyer with a prefix so several deployments can
// share one Redis instance without key collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(optionsHash string) string {
	return k.prefix + k.inner.LayoutKey(optionsHash)
}
