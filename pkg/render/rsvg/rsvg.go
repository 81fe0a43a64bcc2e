// Package rsvg implements a render surface on top of rsvg-convert.
//
// The scene is serialized to a single SVG with text elements and converted
// in one process call. Requires librsvg: brew install librsvg (macOS),
// apt install librsvg2-bin (Linux). Text is drawn with whatever fontconfig
// resolves for the family names, so install the fonts to match other
// backends.
package rsvg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
)

// Binary is the converter looked up on PATH.
const Binary = "rsvg-convert"

// Surface renders through rsvg-convert.
type Surface struct {
	// Fonts measures text for line wrapping.
	Fonts  *fonts.Registry
	Binary string
	Logger *log.Logger

	scene *scene.Scene
	lines []scene.Line
}

var _ render.Surface = (*Surface)(nil)

// New returns a surface, failing with an unsupported error when the
// converter is not installed.
func New(reg *fonts.Registry, logger *log.Logger) (*Surface, error) {
	if _, err := exec.LookPath(Binary); err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"png export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}
	if reg == nil {
		reg = fonts.NewDefaultRegistry()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Surface{Fonts: reg, Binary: Binary, Logger: logger}, nil
}

func (s *Surface) Mount(_ context.Context, sc *scene.Scene) error {
	if sc == nil || sc.Template == nil {
		return fmt.Errorf("mount: empty scene")
	}
	s.scene, s.lines = sc, nil
	return nil
}

func (s *Surface) Attached(context.Context) (bool, error) { return s.scene != nil, nil }

func (s *Surface) LoadFont(ctx context.Context, req fonts.Request) error {
	_, err := s.Fonts.Ensure(ctx, req)
	return err
}

func (s *Surface) Layout(ctx context.Context) error {
	if s.scene == nil {
		return fmt.Errorf("layout: nothing mounted")
	}
	lines, err := s.scene.Layout(ctx, s.Fonts)
	if err != nil {
		return err
	}
	s.lines = lines
	return nil
}

func (s *Surface) NextFrame(ctx context.Context) error { return ctx.Err() }

func (s *Surface) Capture(ctx context.Context, opts render.CaptureOptions) ([]byte, error) {
	if s.scene == nil {
		return nil, errors.New(errors.ErrCodeCaptureFailed, "nothing mounted")
	}
	if s.lines == nil {
		if err := s.Layout(ctx); err != nil {
			return nil, err
		}
	}
	doc := s.scene.SVG(s.lines)
	var svg bytes.Buffer
	if err := doc.Render(&svg); err != nil {
		return nil, err
	}
	return s.convert(ctx, svg.Bytes(), opts)
}

func (s *Surface) Close() error {
	s.scene, s.lines = nil, nil
	return nil
}

// Args returns the converter arguments for opts.
func Args(opts render.CaptureOptions) []string {
	args := []string{"-f", "png", "-z", fmt.Sprintf("%.2f", opts.Density)}
	if opts.Background != "" {
		args = append(args, "-b", opts.Background)
	}
	return args
}

func (s *Surface) convert(ctx context.Context, svg []byte, opts render.CaptureOptions) ([]byte, error) {
	bin := s.Binary
	if bin == "" {
		bin = Binary
	}
	cmd := exec.CommandContext(ctx, bin, Args(opts)...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCaptureFailed, err, "rsvg-convert: %s", errBuf.String())
	}
	s.Logger.Debug("converted svg", "in", len(svg), "out", out.Len())
	return out.Bytes(), nil
}
