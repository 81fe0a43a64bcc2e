package fonts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownFamily is returned for a family no source was registered for.
var ErrUnknownFamily = errors.New("unknown font family")

// Registry loads font sources once and serves faces from memory.
// It is safe for concurrent use.
type Registry struct {
	Logger *log.Logger

	sources map[string]Source
	group   singleflight.Group

	mu     sync.RWMutex
	faces  map[string]*Face
	parsed map[string]*opentype.Font

	loads atomic.Int64
}

// NewRegistry creates a registry over sources. A later source replaces an
// earlier one with the same family and style.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{
		Logger:  log.New(io.Discard),
		sources: make(map[string]Source, len(sources)),
		faces:   make(map[string]*Face),
		parsed:  make(map[string]*opentype.Font),
	}
	for _, s := range sources {
		if s.Style == "" {
			s.Style = StyleNormal
		}
		r.sources[s.key()] = s
	}
	return r
}

// NewDefaultRegistry creates a registry backed only by embedded fonts.
func NewDefaultRegistry() *Registry {
	return NewRegistry(Sources("", "", "")...)
}

// Families returns the registered family/style keys.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.sources))
	for k := range r.sources {
		out = append(out, k)
	}
	return out
}

// Loads returns how many sources have been read so far.
func (r *Registry) Loads() int {
	return int(r.loads.Load())
}

func (r *Registry) source(family, style string) (Source, error) {
	if style == "" {
		style = StyleNormal
	}
	if s, ok := r.sources[family+"/"+style]; ok {
		return s, nil
	}
	// Renderers synthesize a slanted face when a family has no italic.
	if s, ok := r.sources[family+"/"+StyleNormal]; ok {
		return s, nil
	}
	return Source{}, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
}

// Load returns the face for family and style, reading its source on first
// use. Concurrent first calls share one read.
func (r *Registry) Load(ctx context.Context, family, style string) (*Face, error) {
	src, err := r.source(family, style)
	if err != nil {
		return nil, err
	}
	key := src.key()

	r.mu.RLock()
	face, ok := r.faces[key]
	r.mu.RUnlock()
	if ok {
		return face, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		r.mu.RLock()
		face, ok := r.faces[key]
		r.mu.RUnlock()
		if ok {
			return face, nil
		}
		face, err := readSource(src)
		if err != nil {
			return nil, err
		}
		r.loads.Add(1)
		r.mu.Lock()
		r.faces[key] = face
		r.mu.Unlock()
		r.Logger.Debug("loaded font", "family", src.Family, "style", src.Style, "embedded", face.Embedded, "bytes", len(face.Data))
		return face, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Face), nil
	}
}

// Ensure loads the face a request needs.
func (r *Registry) Ensure(ctx context.Context, req Request) (*Face, error) {
	return r.Load(ctx, req.Family, req.Style)
}

func (r *Registry) opentypeFont(ctx context.Context, req Request) (*opentype.Font, error) {
	face, err := r.Ensure(ctx, req)
	if err != nil {
		return nil, err
	}
	key := face.Family + "/" + face.Style

	r.mu.RLock()
	f, ok := r.parsed[key]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}

	f, err = opentype.Parse(face.Data)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", key, err)
	}
	r.mu.Lock()
	r.parsed[key] = f
	r.mu.Unlock()
	return f, nil
}

// Face returns a drawable face sized for req. Faces are not safe for
// concurrent use; callers get a fresh one each time.
func (r *Registry) Face(ctx context.Context, req Request) (font.Face, error) {
	f, err := r.opentypeFont(ctx, req)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    req.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Measure returns the advance width of text in pixels.
func (r *Registry) Measure(ctx context.Context, req Request, text string) (float64, error) {
	face, err := r.Face(ctx, req)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return float64(font.MeasureString(face, text)) / 64, nil
}

// Wrap breaks text into lines no wider than maxWidth. Words longer than
// maxWidth get a line of their own. A non-positive maxWidth disables
// wrapping.
func (r *Registry) Wrap(ctx context.Context, req Request, text string, maxWidth float64) ([]string, error) {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return []string{text}, nil
	}
	face, err := r.Face(ctx, req)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	width := func(s string) float64 { return float64(font.MeasureString(face, s)) / 64 }

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if width(candidate) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line), nil
}

// VMetrics returns the ascent and descent of the face for req in pixels.
func (r *Registry) VMetrics(ctx context.Context, req Request) (ascent, descent float64, err error) {
	face, err := r.Face(ctx, req)
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()
	m := face.Metrics()
	return float64(m.Ascent) / 64, float64(m.Descent) / 64, nil
}
