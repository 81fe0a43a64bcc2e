package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/render"
)

// =============================================================================
// Temp files
// =============================================================================

// TempFileHandles keeps each handle as a file in Dir.
type TempFileHandles struct {
	Dir string

	mu    sync.Mutex
	paths map[string]string
}

// Register writes a to a fresh temp file.
func (t *TempFileHandles) Register(_ context.Context, a *render.Artifact, ttl time.Duration) (Handle, error) {
	dir := t.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	id := uuid.NewString()
	name := a.FileName
	if name == "" {
		name = "artifact.png"
	}
	path := filepath.Join(dir, "trikot-"+id[:8]+"-"+filepath.Base(name))
	if err := os.WriteFile(path, a.Data, 0o600); err != nil {
		return Handle{}, fmt.Errorf("handle: %w", err)
	}

	t.mu.Lock()
	if t.paths == nil {
		t.paths = make(map[string]string)
	}
	t.paths[id] = path
	t.mu.Unlock()

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Handle{ID: id, URL: u.String(), Path: path, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Revoke deletes the handle's file. Unknown ids are ignored.
func (t *TempFileHandles) Revoke(_ context.Context, id string) error {
	t.mu.Lock()
	path, ok := t.paths[id]
	delete(t.paths, id)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var _ HandleStore = (*TempFileHandles)(nil)

// =============================================================================
// Cache
// =============================================================================

// CacheHandles keeps handle bytes in a cache with the grace window as TTL,
// served under BaseURL + "/artifacts/" + id.
type CacheHandles struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	BaseURL string
}

type storedArtifact struct {
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

func (c *CacheHandles) keyer() cache.Keyer {
	if c.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return c.Keyer
}

func (c *CacheHandles) Register(ctx context.Context, a *render.Artifact, ttl time.Duration) (Handle, error) {
	id := uuid.NewString()
	data, err := json.Marshal(storedArtifact{FileName: a.FileName, MediaType: a.MediaType, Data: a.Data})
	if err != nil {
		return Handle{}, err
	}
	if err := c.Cache.Set(ctx, c.keyer().HandleKey(id), data, ttl); err != nil {
		return Handle{}, fmt.Errorf("handle: %w", err)
	}
	return Handle{
		ID:        id,
		URL:       c.URL(id),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// URL is where the server publishes handle id.
func (c *CacheHandles) URL(id string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/artifacts/" + id
}

func (c *CacheHandles) Revoke(ctx context.Context, id string) error {
	return c.Cache.Delete(ctx, c.keyer().HandleKey(id))
}

// Fetch returns the artifact behind a live handle.
func (c *CacheHandles) Fetch(ctx context.Context, id string) (*render.Artifact, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "artifact %q not found", id)
	}
	data, ok, err := c.Cache.Get(ctx, c.keyer().HandleKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "artifact %q not found", id)
	}
	var s storedArtifact
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode artifact %s", id)
	}
	return &render.Artifact{Data: s.Data, FileName: s.FileName, MediaType: s.MediaType}, nil
}

var _ HandleStore = (*CacheHandles)(nil)
