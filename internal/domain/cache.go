package domain

import "time"

// CacheEntry is a value read back from the freshness cache.
type CacheEntry struct {
	Key   string
	Value []byte

	// TTL is the remaining validity. It is only meaningful when Expires is true.
	TTL     time.Duration
	Expires bool
}

// FreshFor reports whether the entry stays valid for longer than d.
// An entry without expiry has no known validity and is never fresh.
func (e CacheEntry) FreshFor(d time.Duration) bool {
	return e.Expires && e.TTL > d
}
