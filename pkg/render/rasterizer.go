package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/svgtree"
)

// DefaultDensity is the device pixel ratio of every export. It is fixed so
// an artifact has the same pixel size on every backend and host.
const DefaultDensity = 3

// Rasterizer converts a scene into a PNG artifact on a surface.
type Rasterizer struct {
	Background string
	// CacheBust appends a fresh nonce to external sub-resource URLs of
	// the template before every mount.
	CacheBust bool
	Sync      *Synchronizer
	Logger    *log.Logger
}

// NewRasterizer returns a rasterizer with the export defaults.
func NewRasterizer(logger *log.Logger) *Rasterizer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Rasterizer{
		Background: scene.DefaultBackground,
		CacheBust:  true,
		Sync:       NewSynchronizer(logger),
		Logger:     logger,
	}
}

// Rasterize mounts a copy of in on surface, waits for it to settle and
// captures it at DefaultDensity. The copy takes the rasterizer's background
// and, with CacheBust, a cache-busted template; in itself is not modified.
// The returned artifact has no file name; callers name it.
func (r *Rasterizer) Rasterize(ctx context.Context, surface Surface, in *scene.Scene) (*Artifact, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	syncer := r.Sync
	if syncer == nil {
		syncer = NewSynchronizer(logger)
	}

	bg := r.Background
	if bg == "" {
		bg = scene.DefaultBackground
	}
	mounted := *in
	sc := &mounted
	sc.Background = bg

	var nonce string
	if r.CacheBust {
		nonce = uuid.NewString()
		sc.Template = svgtree.BustCache(sc.Template, nonce)
	}

	if err := surface.Mount(ctx, sc); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	rep, err := syncer.Settle(ctx, surface, sc)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	opts := CaptureOptions{
		Width:      sc.Preset.Width,
		Height:     sc.Preset.Height,
		Density:    DefaultDensity,
		Background: bg,
		Nonce:      nonce,
	}

	start := time.Now()
	observability.Export().OnCaptureStart(ctx, sc.Preset.Name)
	data, err := surface.Capture(ctx, opts)
	if err == nil && len(data) == 0 {
		err = errors.New(errors.ErrCodeCaptureFailed, "capture returned no data")
	} else if err != nil && !errors.Is(err, errors.ErrCodeCaptureFailed) && ctx.Err() == nil {
		err = errors.Wrap(errors.ErrCodeCaptureFailed, err, "capture")
	}
	observability.Export().OnCaptureComplete(ctx, sc.Preset.Name, len(data), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logger.Debug("rasterized artifact",
		"preset", sc.Preset.Name,
		"bytes", len(data),
		"frames", rep.Frames(),
		"duration", time.Since(start))

	return &Artifact{
		Data:       data,
		Width:      sc.Preset.Width,
		Height:     sc.Preset.Height,
		Density:    opts.Density,
		Background: bg,
		MediaType:  MediaTypePNG,
	}, nil
}
