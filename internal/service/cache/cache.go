// Package cache provides the byte-level response caches backing the
// read-side regime endpoint.
package cache

import "time"

// BytesCache stores opaque response payloads under string keys with a TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
