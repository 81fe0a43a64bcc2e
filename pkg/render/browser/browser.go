// Package browser implements a render surface on a headless Chrome page.
//
// The scene is mounted as an HTML document ([scene.Scene.HTML]) so the
// engine lays out text exactly as a phone browser would. Fonts are
// registered from data URLs, which keeps the page free of network loads.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
)

// Options configure a browser surface.
type Options struct {
	// ControlURL is the DevTools websocket of a running Chrome. Empty
	// launches a local headless Chrome.
	ControlURL string
	Density    float64
	Fonts      *fonts.Registry
	Logger     *log.Logger
}

// Surface is one headless page.
type Surface struct {
	fonts  *fonts.Registry
	logger *log.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	density  float64
	width    int
	height   int
}

var _ render.Surface = (*Surface)(nil)

// New connects to (or launches) Chrome and opens a blank page.
func New(ctx context.Context, opts Options) (*Surface, error) {
	if opts.Fonts == nil {
		opts.Fonts = fonts.NewDefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Density <= 0 {
		opts.Density = render.DefaultDensity
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Surface{fonts: opts.Fonts, logger: opts.Logger, density: opts.Density}

	wsURL := opts.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("hide-scrollbars")
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "launch chrome")
		}
		wsURL = u
		s.launcher = l
		s.logger.Debug("launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page
	return s, nil
}

func (s *Surface) Mount(ctx context.Context, sc *scene.Scene) error {
	html, err := sc.HTML()
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width, s.height = sc.Preset.Width, sc.Preset.Height
	if err := s.viewport(ctx, s.density); err != nil {
		return err
	}
	if err := s.page.Context(ctx).SetDocumentContent(html); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	return nil
}

func (s *Surface) viewport(ctx context.Context, density float64) error {
	err := s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.width,
		Height:            s.height,
		DeviceScaleFactor: density,
		Mobile:            false,
	})
	if err != nil {
		return fmt.Errorf("viewport: %w", err)
	}
	s.density = density
	return nil
}

const attachedJS = `(id) => document.querySelector('#' + id + ' svg') !== null`

func (s *Surface) Attached(ctx context.Context) (bool, error) {
	res, err := s.page.Context(ctx).Eval(attachedJS, scene.StageID)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// loadFontJS registers a face once per document and waits until the exact
// request is usable.
const loadFontJS = `async (family, url, style, weight, css) => {
	const have = [...document.fonts].some(f =>
		f.family.replace(/"/g, '') === family && f.style === style && f.status === 'loaded');
	if (!have) {
		const face = new FontFace(family, 'url(' + url + ')', {style: style, weight: weight});
		document.fonts.add(await face.load());
	}
	await document.fonts.load(css);
	return document.fonts.check(css);
}`

func (s *Surface) LoadFont(ctx context.Context, req fonts.Request) error {
	face, err := s.fonts.Ensure(ctx, req)
	if err != nil {
		return err
	}
	res, err := s.page.Context(ctx).Eval(loadFontJS, req.Family, face.DataURL(), face.Style, face.Weight, req.CSS())
	if err != nil {
		return fmt.Errorf("font %s: %w", req.CSS(), err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("font %s: not available after load", req.CSS())
	}
	return nil
}

const layoutJS = `(id) => document.getElementById(id).getBoundingClientRect().height`

func (s *Surface) Layout(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(layoutJS, scene.StageID)
	return err
}

const frameJS = `() => new Promise(resolve => requestAnimationFrame(() => resolve(true)))`

func (s *Surface) NextFrame(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(frameJS)
	return err
}

func (s *Surface) Capture(ctx context.Context, opts render.CaptureOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Density > 0 && opts.Density != s.density {
		if err := s.viewport(ctx, opts.Density); err != nil {
			return nil, err
		}
		if _, err := s.page.Context(ctx).Eval(frameJS); err != nil {
			return nil, err
		}
	}
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      0,
			Y:      0,
			Width:  float64(opts.Width),
			Height: float64(opts.Height),
			Scale:  1,
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCaptureFailed, err, "screenshot")
	}
	return data, nil
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanup()
}

func (s *Surface) cleanup() error {
	var err error
	if s.page != nil {
		err = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		if cerr := s.browser.Close(); err == nil {
			err = cerr
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return err
}
