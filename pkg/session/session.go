// Package session keeps the answers a guest submitted for the lifetime of
// a short session.
//
// Answers are immutable once a session is created: a changed form is a new
// session. Implementations:
//   - [CacheStore]: any [cache.Cache] (memory for a single instance, Redis
//     for several), used by the HTTP service
//   - [FileStore]: JSON files, used by the CLI to remember the last answers
//
// # Usage
//
//	store := session.NewCacheStore(cache.NewMemoryCache(), nil)
//	sess, err := session.New(answers, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	err = store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/theme"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("session expired")
)

// DefaultTTL is the default session duration.
const DefaultTTL = 2 * time.Hour

// Session stores the answers of one guest.
type Session struct {
	ID        string         `json:"id"`
	Answers   invite.Answers `json:"answers"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Theme derives the theme of the session's note.
func (s *Session) Theme() theme.Theme {
	return theme.Build(s.Answers.Note)
}

// TTL returns the remaining lifetime, never negative.
func (s *Session) TTL() time.Duration {
	return max(time.Until(s.ExpiresAt), 0)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. It returns ErrNotFound for unknown
	// ids and ErrExpired for sessions past their expiry that the backend
	// has not dropped yet.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session until it expires.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions (may be a no-op).
	Cleanup(ctx context.Context) error
}

// GenerateID returns a random session id.
func GenerateID() string {
	return uuid.NewString()
}

// New validates answers and creates a session for them.
func New(answers invite.Answers, ttl time.Duration) (*Session, error) {
	if err := answers.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        GenerateID(),
		Answers:   answers.Normalized(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
