package scene

import (
	"context"
	"fmt"

	"github.com/matzehuels/trikot/pkg/fonts"
)

// Measurer supplies the font metrics needed to place text without a layout
// engine. [fonts.Registry] implements it.
type Measurer interface {
	Measure(ctx context.Context, req fonts.Request, text string) (float64, error)
	Wrap(ctx context.Context, req fonts.Request, text string, maxWidth float64) ([]string, error)
	VMetrics(ctx context.Context, req fonts.Request) (ascent, descent float64, err error)
}

// Anchor is the horizontal alignment of a line relative to its X.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
)

// Line is a single positioned line of text.
type Line struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	X        float64       `json:"x"`
	Baseline float64       `json:"baseline"`
	Anchor   Anchor        `json:"anchor"`
	Font     fonts.Request `json:"font"`
}

// Layout places every overlay text in canvas coordinates. Line boxes follow
// the CSS model: the leading around a face's ascent and descent is split
// evenly above and below.
func (s *Scene) Layout(ctx context.Context, m Measurer) ([]Line, error) {
	var lines []Line
	h, b := s.Preset.Header, s.Preset.Back
	w := float64(s.Preset.Width)

	hello, _ := s.Text(TextHello)
	name, _ := s.Text(TextHeaderName)

	helloBase, err := baselineOffset(ctx, m, hello.Font, h.LineHeight)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", hello.ID, err)
	}
	nameBase, err := baselineOffset(ctx, m, name.Font, h.LineHeight)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", name.ID, err)
	}
	base := h.Top + max(helloBase, nameBase)

	helloWidth, err := m.Measure(ctx, hello.Font, hello.Content)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", hello.ID, err)
	}
	lines = append(lines, Line{ID: hello.ID, Text: hello.Content, X: h.Left, Baseline: base, Anchor: AnchorStart, Font: hello.Font})
	if name.Content != "" {
		lines = append(lines, Line{ID: name.ID, Text: name.Content, X: h.Left + helloWidth + h.Gap, Baseline: base, Anchor: AnchorStart, Font: name.Font})
	}

	sub, _ := s.Text(TextSubline)
	top := h.Top + max(h.LineHeight*hello.Font.Size, h.LineHeight*name.Font.Size) + h.LineGap
	subLines, err := s.block(ctx, m, sub, h.Left, top, w-h.Left, h.LineHeight, AnchorStart)
	if err != nil {
		return nil, err
	}
	lines = append(lines, subLines...)

	number, _ := s.Text(TextNumber)
	left := w/2 - b.Width/2
	numLines, err := s.block(ctx, m, number, left+b.NumberOffset, b.Top, 0, b.NumberLineHeight, AnchorStart)
	if err != nil {
		return nil, err
	}
	lines = append(lines, numLines...)

	back, _ := s.Text(TextBackName)
	top = b.Top + b.NumberSize*b.NumberLineHeight + b.NameGap
	nameLines, err := s.block(ctx, m, back, w/2, top, b.Width, b.NameLineHeight, AnchorMiddle)
	if err != nil {
		return nil, err
	}
	return append(lines, nameLines...), nil
}

func (s *Scene) block(ctx context.Context, m Measurer, t Text, x, top, maxWidth, lineHeight float64, anchor Anchor) ([]Line, error) {
	if t.Content == "" {
		return nil, nil
	}
	wrapped, err := m.Wrap(ctx, t.Font, t.Content, maxWidth)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", t.ID, err)
	}
	offset, err := baselineOffset(ctx, m, t.Font, lineHeight)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", t.ID, err)
	}
	step := lineHeight * t.Font.Size
	out := make([]Line, len(wrapped))
	for i, l := range wrapped {
		out[i] = Line{ID: t.ID, Text: l, X: x, Baseline: top + float64(i)*step + offset, Anchor: anchor, Font: t.Font}
	}
	return out, nil
}

func baselineOffset(ctx context.Context, m Measurer, req fonts.Request, lineHeight float64) (float64, error) {
	asc, desc, err := m.VMetrics(ctx, req)
	if err != nil {
		return 0, err
	}
	return (lineHeight*req.Size-(asc+desc))/2 + asc, nil
}
