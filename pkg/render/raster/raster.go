// Package raster implements a pure Go render surface.
//
// The themed template is drawn with oksvg and rasterx at capture density,
// overlay text with faces from a [fonts.Registry], and both are composed on
// an opaque canvas with imaging. No browser or external tool is needed, so
// this is the backend for CI and servers.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/svgtree"
)

// Surface draws scenes into memory.
type Surface struct {
	Fonts *fonts.Registry
	// Ticker is called once per NextFrame; nil means frames are immediate.
	Ticker func(ctx context.Context) error
	Logger *log.Logger

	scene *scene.Scene
	lines []scene.Line
}

var _ render.Surface = (*Surface)(nil)

// New returns a surface drawing text with reg. A nil reg uses the embedded
// fonts.
func New(reg *fonts.Registry, logger *log.Logger) *Surface {
	if reg == nil {
		reg = fonts.NewDefaultRegistry()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Surface{Fonts: reg, Logger: logger}
}

func (s *Surface) Mount(_ context.Context, sc *scene.Scene) error {
	if sc == nil || sc.Template == nil {
		return fmt.Errorf("mount: empty scene")
	}
	s.scene = sc
	s.lines = nil
	return nil
}

func (s *Surface) Attached(context.Context) (bool, error) {
	return s.scene != nil, nil
}

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

func (s *Surface) NextFrame(ctx context.Context) error {
	if s.Ticker != nil {
		return s.Ticker(ctx)
	}
	return ctx.Err()
}

func (s *Surface) Capture(ctx context.Context, opts render.CaptureOptions) ([]byte, error) {
	if s.scene == nil {
		return nil, errors.New(errors.ErrCodeCaptureFailed, "nothing mounted")
	}
	if s.lines == nil {
		if err := s.Layout(ctx); err != nil {
			return nil, err
		}
	}
	w, h := opts.PixelSize()
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeCaptureFailed, "empty capture area %dx%d", w, h)
	}

	bg, err := scene.ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}
	bg.A = 255
	canvas := imaging.New(w, h, bg)

	layer, err := drawTemplate(s.scene.Template, w, h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCaptureFailed, err, "draw template")
	}
	canvas = imaging.Overlay(canvas, layer, image.Pt(0, 0), 1.0)

	ink, err := scene.ParseColor(scene.TextColor)
	if err != nil {
		return nil, err
	}
	for _, l := range s.lines {
		if err := s.drawLine(ctx, canvas, l, opts.Density, ink); err != nil {
			return nil, fmt.Errorf("draw %s: %w", l.ID, err)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCaptureFailed, err, "encode png")
	}
	s.Logger.Debug("captured raster", "width", w, "height", h, "lines", len(s.lines))
	return buf.Bytes(), nil
}

func (s *Surface) Close() error {
	s.scene = nil
	s.lines = nil
	return nil
}

func (s *Surface) drawLine(ctx context.Context, dst *image.NRGBA, l scene.Line, density float64, ink color.NRGBA) error {
	req := l.Font
	req.Size *= density
	face, err := s.Fonts.Face(ctx, req)
	if err != nil {
		return err
	}
	defer face.Close()

	x := l.X * density
	if l.Anchor == scene.AnchorMiddle {
		x -= float64(font.MeasureString(face, l.Text)) / 64 / 2
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(l.Baseline * density)},
	}
	d.DrawString(l.Text)
	return nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

// drawTemplate rasterizes tpl into a transparent w×h layer, fitted and
// centered like preserveAspectRatio="xMidYMid meet".
func drawTemplate(tpl *svgtree.Node, w, h int) (*image.NRGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(Prepare(tpl).String()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, err
	}
	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		vw, vh = float64(w), float64(h)
	}
	scale := math.Min(float64(w)/vw, float64(h)/vh)
	tw, th := vw*scale, vh*scale
	icon.SetTarget((float64(w)-tw)/2, (float64(h)-th)/2, tw, th)

	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, layer, layer.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return layer, nil
}

var paintProps = []string{"fill", "stroke"}

// Prepare returns a copy of tpl whose paint colors are plain hex with a
// separate opacity, the only color form oksvg reads reliably.
func Prepare(tpl *svgtree.Node) *svgtree.Node {
	out := tpl.Clone()
	out.Walk(func(n *svgtree.Node) bool {
		for _, prop := range paintProps {
			if v, ok := n.Attr(prop); ok {
				splitPaint(n, prop, v)
			}
		}
		if style, ok := n.Attr("style"); ok {
			n.SetAttr("style", splitStyle(style))
		}
		return true
	})
	return out
}

func splitPaint(n *svgtree.Node, prop, value string) {
	if !strings.HasPrefix(strings.TrimSpace(value), "rgb") {
		return
	}
	hex, opacity, err := scene.SplitColor(value)
	if err != nil {
		return
	}
	n.SetAttr(prop, hex)
	n.SetAttr(prop+"-opacity", strconv.FormatFloat(opacity, 'f', -1, 64))
}

func splitStyle(style string) string {
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return style
	}
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		if (d.Property == "fill" || d.Property == "stroke") && strings.HasPrefix(d.Value, "rgb") {
			if hex, opacity, err := scene.SplitColor(d.Value); err == nil {
				out = append(out, d.Property+": "+hex, d.Property+"-opacity: "+strconv.FormatFloat(opacity, 'f', -1, 64))
				continue
			}
		}
		out = append(out, d.Property+": "+d.Value)
	}
	return strings.Join(out, "; ")
}
