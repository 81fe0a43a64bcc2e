package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [New].
const (
	BackendNull   = "null"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Options configure [New].
type Options struct {
	Backend   string
	Dir       string // file backend
	RedisAddr string // redis backend
}

// New opens the configured backend. An empty backend means memory.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendNull:
		return NewNullCache(), nil
	case "", BackendMemory:
		return NewMemoryCache(), nil
	case BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.RedisAddr)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
