package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrCacheMiss is returned by helpers that turn a miss into an error.
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownBackend is returned by [New] for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)
