package scene

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/matzehuels/trikot/pkg/svgtree"
)

// StageID is the element id of the staging area in [Scene.HTML].
const StageID = "stage"

// FittedTemplate returns a copy of the baked template sized to the canvas.
func (s *Scene) FittedTemplate() *svgtree.Node {
	n := s.Template.Clone()
	n.SetAttr("x", "0")
	n.SetAttr("y", "0")
	n.SetAttr("width", strconv.Itoa(s.Preset.Width))
	n.SetAttr("height", strconv.Itoa(s.Preset.Height))
	n.SetAttr("preserveAspectRatio", "xMidYMid meet")
	return n
}

var stageHTML = template.Must(template.New("stage").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
html,body{margin:0;padding:0;background:{{.BG}}}
#{{.Stage}}{position:relative;width:{{.W}}px;height:{{.Height}}px;overflow:hidden;background:{{.BG}};color:{{.Ink}}}
#{{.Stage}} .tpl{position:absolute;inset:0}
#{{.Stage}} .txt{position:absolute;inset:0}
</style></head><body>
<div id="{{.Stage}}">
<div class="tpl">{{.SVG}}</div>
<div class="txt">
<div style="position:absolute;top:{{.H.Top}}px;left:{{.H.Left}}px;font-family:Satoshi;font-weight:{{.H.Weight}};line-height:{{.H.LineHeight}}">
<div style="display:flex;align-items:baseline;gap:{{.H.Gap}}px;white-space:nowrap">
<span style="font-size:{{.H.Size}}px">{{.Greeting}}</span>
<span style="font-size:{{.H.NameSize}}px;font-weight:700;font-style:italic">{{.Name}}</span>
</div>
<div style="font-size:{{.H.Size}}px;margin-top:{{.H.LineGap}}px">{{.Subline}}</div>
</div>
<div style="position:absolute;left:50%;top:{{.B.Top}}px;transform:translateX(-50%);width:{{.B.Width}}px">
<div style="font-family:Saint;font-size:{{.B.NumberSize}}px;font-weight:700;line-height:{{.B.NumberLineHeight}};transform:translateX({{.B.NumberOffset}}px)">{{.Number}}</div>
<div style="font-family:Satoshi;font-size:{{.B.NameSize}}px;font-style:italic;font-weight:{{.B.NameWeight}};text-align:center;line-height:{{.B.NameLineHeight}};margin-top:{{.B.NameGap}}px">{{.Name}}</div>
</div>
</div>
</div>
</body></html>
`))

// HTML renders the scene as a standalone document whose #stage element is
// the capture area. Fonts are not embedded; surfaces register them.
func (s *Scene) HTML() (string, error) {
	name, _ := s.Text(TextHeaderName)
	number, _ := s.Text(TextNumber)

	var buf bytes.Buffer
	err := stageHTML.Execute(&buf, map[string]any{
		"Stage":    StageID,
		"W":        s.Preset.Width,
		"Height":   s.Preset.Height,
		"H":        s.Preset.Header,
		"B":        s.Preset.Back,
		"BG":       template.CSS(s.Background),
		"Ink":      template.CSS(TextColor),
		"SVG":      template.HTML(s.FittedTemplate().String()),
		"Greeting": Greeting,
		"Subline":  Subline,
		"Name":     name.Content,
		"Number":   number.Content,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SVG returns a single SVG document holding the background, the fitted
// template and lines as text elements.
func (s *Scene) SVG(lines []Line) *svgtree.Node {
	w, h := strconv.Itoa(s.Preset.Width), strconv.Itoa(s.Preset.Height)
	root := &svgtree.Node{
		Tag: "svg",
		Attrs: []svgtree.Attr{
			{Name: "xmlns", Value: "http://www.w3.org/2000/svg"},
			{Name: "width", Value: w},
			{Name: "height", Value: h},
			{Name: "viewBox", Value: "0 0 " + w + " " + h},
		},
	}
	root.Children = append(root.Children,
		&svgtree.Node{Tag: "rect", Attrs: []svgtree.Attr{
			{Name: "width", Value: w}, {Name: "height", Value: h}, {Name: "fill", Value: s.Background},
		}},
		s.FittedTemplate(),
	)
	for _, l := range lines {
		root.Children = append(root.Children, &svgtree.Node{
			Tag: "text",
			Attrs: []svgtree.Attr{
				{Name: "id", Value: l.ID},
				{Name: "x", Value: ftoa(l.X)},
				{Name: "y", Value: ftoa(l.Baseline)},
				{Name: "font-family", Value: l.Font.Family},
				{Name: "font-size", Value: ftoa(l.Font.Size)},
				{Name: "font-weight", Value: strconv.Itoa(l.Font.Weight)},
				{Name: "font-style", Value: l.Font.Style},
				{Name: "text-anchor", Value: string(l.Anchor)},
				{Name: "fill", Value: TextColor},
			},
			Children: []*svgtree.Node{svgtree.NewText(l.Text)},
		})
	}
	return root
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
