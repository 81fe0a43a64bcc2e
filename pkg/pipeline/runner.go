package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/trikot/pkg/assets"
	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/render/browser"
	"github.com/matzehuels/trikot/pkg/render/raster"
	"github.com/matzehuels/trikot/pkg/render/rsvg"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/svgtree"
	"github.com/matzehuels/trikot/pkg/theme"
)

// SurfaceFactory opens a render surface for a backend.
type SurfaceFactory func(ctx context.Context, backend string) (render.Surface, error)

// Runner encapsulates export execution with caching.
// Both CLI and API use it to avoid duplicating the export logic.
//
// A Runner runs at most one export at a time. A concurrent [Runner.Export]
// fails with [errors.ErrCodeBusy] instead of interleaving; the HTTP service
// keeps one runner per session.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	Fonts *fonts.Registry
	// TemplatePath overrides the embedded template.
	TemplatePath string
	// ChromeURL is the DevTools endpoint for the browser backend.
	ChromeURL string
	// AttachFrames and SettleFrames override the synchronizer budgets.
	AttachFrames int
	SettleFrames int

	Surfaces   SurfaceFactory
	Dispatcher *dispatch.Dispatcher

	busy atomic.Bool

	tplGroup singleflight.Group
	tplMu    sync.RWMutex
	tpl      *svgtree.Node
	tplHash  string
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Fonts:  fonts.NewDefaultRegistry(),
	}
	r.Fonts.Logger = logger
	return r
}

// Busy reports whether an export is in flight.
func (r *Runner) Busy() bool { return r.busy.Load() }

// Export runs the complete theme → compose → render → dispatch pipeline.
// A failed export leaves no state behind and can simply be run again.
func (r *Runner) Export(ctx context.Context, opts Options) (*Result, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, errors.New(errors.ErrCodeBusy, "an export is already running")
	}
	defer r.busy.Store(false)

	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{}

	// Stage 1: Theme
	themeStart := time.Now()
	result.Theme = theme.Build(opts.Answers.Note)
	result.Stats.ThemeTime = time.Since(themeStart)
	pattern, _ := result.Theme.ActivePattern()
	r.Logger.Debug("built theme", "key", result.Theme.Key(), "pattern", pattern)

	// Stage 2: Compose
	composeStart := time.Now()
	sc, tplHit, err := r.ComposeWithCacheInfo(ctx, opts, result.Theme)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	result.Scene = sc
	result.Stats.ComposeTime = time.Since(composeStart)
	result.CacheInfo.TemplateHit = tplHit

	r.Logger.Debug("composed scene",
		"recolored", len(sc.Report.Recolored),
		"missing", len(sc.Report.Missing),
		"removed", len(sc.Report.Removed))

	// Stage 3: Render
	renderStart := time.Now()
	artifact, renderHit, err := r.RenderWithCacheInfo(ctx, sc, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifact = artifact
	result.Stats.RenderTime = time.Since(renderStart)
	result.Stats.Bytes = artifact.Size()
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rasterized artifact",
		"file", artifact.FileName,
		"bytes", artifact.Size(),
		"backend", opts.Backend,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	// Stage 4: Dispatch
	if opts.Dispatch && r.Dispatcher != nil {
		dispatchStart := time.Now()
		rec, err := r.Dispatcher.Dispatch(ctx, artifact)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		result.Receipt = rec
		result.Stats.DispatchTime = time.Since(dispatchStart)
	}

	return result, nil
}

// Template returns the parsed template and its content hash, loading it
// once per runner.
func (r *Runner) Template(ctx context.Context) (*svgtree.Node, string, bool, error) {
	r.tplMu.RLock()
	tpl, hash := r.tpl, r.tplHash
	r.tplMu.RUnlock()
	if tpl != nil {
		return tpl, hash, true, nil
	}

	ch := r.tplGroup.DoChan("template", func() (any, error) {
		data := assets.Template()
		if r.TemplatePath != "" {
			var err error
			if data, err = assets.LoadTemplate(r.TemplatePath); err != nil {
				return nil, errors.Wrap(errors.ErrCodeAssetLoad, err, "load template")
			}
		}
		tpl, err := svgtree.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeAssetLoad, err, "parse template")
		}
		r.tplMu.Lock()
		r.tpl, r.tplHash = tpl, cache.Hash(data)
		r.tplMu.Unlock()
		r.Logger.Debug("loaded template", "ids", len(tpl.IDs()))
		return tpl, nil
	})
	select {
	case <-ctx.Done():
		return nil, "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", false, res.Err
		}
		r.tplMu.RLock()
		defer r.tplMu.RUnlock()
		return r.tpl, r.tplHash, false, nil
	}
}

// ComposeWithCacheInfo builds the scene for opts and reports whether the
// template was already loaded.
func (r *Runner) ComposeWithCacheInfo(ctx context.Context, opts Options, th theme.Theme) (*scene.Scene, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	tpl, _, hit, err := r.Template(ctx)
	if err != nil {
		return nil, false, err
	}
	sc := scene.Compose(tpl, opts.Answers, opts.preset, th)
	sc.Background = opts.Background
	return sc, hit, nil
}

// Compose is a convenience wrapper that calls ComposeWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Compose(ctx context.Context, opts Options) (*scene.Scene, error) {
	sc, _, err := r.ComposeWithCacheInfo(ctx, opts, theme.Build(opts.Answers.Note))
	return sc, err
}

// RenderWithCacheInfo rasterizes sc with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, sc *scene.Scene, opts Options) (*render.Artifact, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	_, hash, _, err := r.Template(ctx)
	if err != nil {
		return nil, false, err
	}

	texts := make([]string, len(sc.Texts))
	for i, t := range sc.Texts {
		texts[i] = t.Content
	}
	cacheKey := r.Keyer.ArtifactKey(sc.Theme.Key(), texts, opts.ArtifactKeyOpts(hash))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit && len(data) > 0 {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return r.artifact(data, opts), true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	surfaces := r.Surfaces
	if surfaces == nil {
		surfaces = r.DefaultSurfaces
	}
	surface, err := surfaces(ctx, opts.Backend)
	if err != nil {
		return nil, false, err
	}
	defer surface.Close()

	rz := render.NewRasterizer(opts.Logger)
	rz.Background = opts.Background
	if r.AttachFrames > 0 {
		rz.Sync.MaxAttachFrames = r.AttachFrames
	}
	if r.SettleFrames > 0 {
		rz.Sync.SettleFrames = r.SettleFrames
	}

	a, err := rz.Rasterize(ctx, surface, sc)
	if err != nil {
		return nil, false, err
	}
	a.FileName = opts.Answers.FileName()

	if err := r.Cache.Set(ctx, cacheKey, a.Data, TTLArtifact); err != nil {
		r.Logger.Warn("cache artifact failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "artifact", a.Size())
	}
	return a, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, sc *scene.Scene, opts Options) (*render.Artifact, error) {
	a, _, err := r.RenderWithCacheInfo(ctx, sc, opts)
	return a, err
}

func (r *Runner) artifact(data []byte, opts Options) *render.Artifact {
	return &render.Artifact{
		Data:       data,
		Width:      opts.preset.Width,
		Height:     opts.preset.Height,
		Density:    render.DefaultDensity,
		Background: opts.Background,
		MediaType:  render.MediaTypePNG,
		FileName:   opts.Answers.FileName(),
	}
}

// DefaultSurfaces opens the built-in backends.
func (r *Runner) DefaultSurfaces(ctx context.Context, backend string) (render.Surface, error) {
	switch backend {
	case BackendRaster:
		return raster.New(r.Fonts, r.Logger), nil
	case BackendRSVG:
		return rsvg.New(r.Fonts, r.Logger)
	case BackendBrowser:
		return browser.New(ctx, browser.Options{
			ControlURL: r.ChromeURL,
			Density:    render.DefaultDensity,
			Fonts:      r.Fonts,
			Logger:     r.Logger,
		})
	}
	return nil, ValidateBackend(backend)
}

// Close releases resources held by the runner (the cache and pending
// dispatch handles).
func (r *Runner) Close() error {
	if r.Dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Dispatcher.Close(ctx); err != nil {
			r.Logger.Warn("close dispatcher", "err", err)
		}
	}
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
