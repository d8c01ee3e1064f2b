package cache

import "time"

// Cache is a key-value store whose entries may expire.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. A ttl <= 0 falls back to the cache default.
	Set(key K, value V, ttl time.Duration)

	// SetIfAbsent stores the value only when no live entry exists and
	// reports whether it did.
	SetIfAbsent(key K, value V, ttl time.Duration) bool

	// Delete removes a key if present.
	Delete(key K)

	// Len returns the number of live entries.
	Len() int

	// Clear removes all entries.
	Clear()
}
