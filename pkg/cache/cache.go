// Package cache provides the byte-oriented key/value stores used for
// transient state: rendered artifacts, parsed templates, sessions and the
// short-lived download handles of the HTTP service.
//
// Backends:
//   - [NullCache]: stores nothing; caching disabled
//   - [MemoryCache]: in-process map with TTLs, for the CLI and tests
//   - [FileCache]: JSON files on disk, for repeated CLI runs
//   - [RedisCache]: Redis, for service deployments with several instances
//
// Keys are produced by a [Keyer] so that every backend sees the same
// namespacing.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry TTL. A zero TTL means no expiry.
// Get reports a miss with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Preset     string  `json:"preset"`
	Backend    string  `json:"backend"`
	Density    float64 `json:"density"`
	Background string  `json:"background"`
	Template   string  `json:"template"` // template hash
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey identifies a rendered PNG by its inputs.
	ArtifactKey(themeKey string, texts []string, opts ArtifactKeyOpts) string
	// TemplateKey identifies a parsed template by content hash.
	TemplateKey(hash string) string
	// SessionKey identifies the answers of an HTTP session.
	SessionKey(id string) string
	// HandleKey identifies a transient download handle.
	HandleKey(id string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the theme, the overlay texts and the render options.
func (DefaultKeyer) ArtifactKey(themeKey string, texts []string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", themeKey, texts, opts)
}

// TemplateKey returns "template:<hash>".
func (DefaultKeyer) TemplateKey(hash string) string {
	return fmt.Sprintf("template:%s", hash)
}

// SessionKey returns "session:<id>".
func (DefaultKeyer) SessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// HandleKey returns "handle:<id>".
func (DefaultKeyer) HandleKey(id string) string {
	return fmt.Sprintf("handle:%s", id)
}

// ScopedKeyer wraps a Keyer with a prefix, so several deployments can share
// one Redis without colliding.
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

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(themeKey string, texts []string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(themeKey, texts, opts)
}

// TemplateKey generates a prefixed template key.
func (k *ScopedKeyer) TemplateKey(hash string) string {
	return k.prefix + k.inner.TemplateKey(hash)
}

// SessionKey generates a prefixed session key.
func (k *ScopedKeyer) SessionKey(id string) string {
	return k.prefix + k.inner.SessionKey(id)
}

// HandleKey generates a prefixed handle key.
func (k *ScopedKeyer) HandleKey(id string) string {
	return k.prefix + k.inner.HandleKey(id)
}
