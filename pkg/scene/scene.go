// Package scene assembles the composited visual tree of one export: the
// themed template plus the overlay text, on a fixed canvas preset.
//
// A Scene is rebuilt for every export and owned by the render call that
// consumes it. Backends that draw text themselves resolve concrete lines
// with [Scene.Layout]; browser surfaces mount [Scene.HTML] and let the
// engine lay text out.
package scene

import (
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/svgtree"
	"github.com/matzehuels/trikot/pkg/theme"
)

// Overlay text ids.
const (
	TextHello      = "header-hello"
	TextHeaderName = "header-name"
	TextSubline    = "header-subline"
	TextNumber     = "back-number"
	TextBackName   = "back-name"
)

// Greeting and Subline are the fixed header texts.
const (
	Greeting = "Hello"
	Subline  = "Here is your personalised Invitation Shirt"
)

// TextColor is the ink of every overlay text.
const TextColor = "#000000"

// Text is one overlay text node.
type Text struct {
	ID      string        `json:"id"`
	Content string        `json:"content"`
	Font    fonts.Request `json:"font"`
}

// Scene is the composite: a baked template, overlay texts and the canvas.
type Scene struct {
	Preset     Preset         `json:"preset"`
	Template   *svgtree.Node  `json:"-"`
	Texts      []Text         `json:"texts"`
	Background string         `json:"background"`
	Theme      theme.Theme    `json:"theme"`
	Report     svgtree.Report `json:"report"`
}

// Compose bakes th into a copy of tpl and attaches the overlay texts for
// answers. tpl is not modified.
func Compose(tpl *svgtree.Node, answers invite.Answers, preset Preset, th theme.Theme) *Scene {
	baked, report := svgtree.Apply(tpl, th)
	a := answers.Normalized()
	h, b := preset.Header, preset.Back

	return &Scene{
		Preset:     preset,
		Template:   baked,
		Background: DefaultBackground,
		Theme:      th,
		Report:     report,
		Texts: []Text{
			{ID: TextHello, Content: Greeting, Font: fonts.Request{Family: fonts.FamilyUI, Weight: h.Weight, Style: fonts.StyleNormal, Size: h.Size}},
			{ID: TextHeaderName, Content: a.Name, Font: fonts.Request{Family: fonts.FamilyUI, Weight: 700, Style: fonts.StyleItalic, Size: h.NameSize}},
			{ID: TextSubline, Content: Subline, Font: fonts.Request{Family: fonts.FamilyUI, Weight: h.Weight, Style: fonts.StyleNormal, Size: h.Size}},
			{ID: TextNumber, Content: a.Age, Font: fonts.Request{Family: fonts.FamilyDisplay, Weight: 700, Style: fonts.StyleNormal, Size: b.NumberSize}},
			{ID: TextBackName, Content: a.Name, Font: fonts.Request{Family: fonts.FamilyUI, Weight: b.NameWeight, Style: fonts.StyleItalic, Size: b.NameSize}},
		},
	}
}

// Text returns the overlay text with the given id.
func (s *Scene) Text(id string) (Text, bool) {
	for _, t := range s.Texts {
		if t.ID == id {
			return t, true
		}
	}
	return Text{}, false
}

// FontRequests returns the distinct font requests of the overlay texts.
func (s *Scene) FontRequests() []fonts.Request {
	reqs := make([]fonts.Request, 0, len(s.Texts))
	for _, t := range s.Texts {
		reqs = append(reqs, t.Font)
	}
	return fonts.Dedupe(reqs)
}
