package svgtree

import (
	"strings"

	"github.com/aymerick/douceur/parser"

	"github.com/matzehuels/trikot/pkg/theme"
)

// IDSeparator joins a layer base id and the suffix design tools add to
// duplicated layers ("layer-muster-2_000001").
const IDSeparator = "_"

var shapeTags = map[string]bool{
	"path":    true,
	"rect":    true,
	"circle":  true,
	"polygon": true,
	"ellipse": true,
}

// IsShape reports whether n paints a fill.
func IsShape(n *Node) bool {
	return shapeTags[n.LocalTag()]
}

// MatchesBase reports whether id is base itself or a suffixed duplicate.
func MatchesBase(id, base string) bool {
	return id == base || strings.HasPrefix(id, base+IDSeparator)
}

// Report lists what a transform touched.
type Report struct {
	Recolored []string `json:"recolored"`
	Missing   []string `json:"missing"`
	Removed   []string `json:"removed"`
}

// Recolor returns a copy of root in which every shape inside each layer
// named in fills is painted with that layer's color, both as a fill
// attribute and as an inline style declaration. It returns the ids that
// were found and those that were not.
func Recolor(root *Node, fills map[string]string) (out *Node, recolored, missing []string) {
	out = root.Clone()
	for _, id := range sortedKeys(fills) {
		layer := out.Find(id)
		if layer == nil {
			missing = append(missing, id)
			continue
		}
		color := fills[id]
		layer.Walk(func(n *Node) bool {
			if IsShape(n) {
				paint(n, color)
			}
			return true
		})
		recolored = append(recolored, id)
	}
	return out, recolored, missing
}

func paint(n *Node, color string) {
	n.SetAttr("fill", color)
	style, _ := n.Attr("style")
	n.SetAttr("style", MergeStyle(style, "fill", color))
}

// MergeStyle sets property to value in an inline style declaration list,
// keeping every other declaration in order.
func MergeStyle(style, property, value string) string {
	decl := property + ": " + value
	if strings.TrimSpace(style) == "" {
		return decl
	}
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return strings.TrimRight(strings.TrimSpace(style), ";") + "; " + decl
	}
	parts := make([]string, 0, len(decls)+1)
	for _, d := range decls {
		if strings.EqualFold(d.Property, property) {
			continue
		}
		s := d.Property + ": " + d.Value
		if d.Important {
			s += " !important"
		}
		parts = append(parts, s)
	}
	parts = append(parts, decl)
	return strings.Join(parts, "; ")
}

// Prune returns a copy of root without the layers of family, keeping only
// those matching active. An empty active removes the whole family.
func Prune(root *Node, family []string, active string) (out *Node, removed []string) {
	out = root.Clone()
	drop := func(id string) bool {
		if id == "" {
			return false
		}
		if active != "" && MatchesBase(id, active) {
			return false
		}
		for _, base := range family {
			if MatchesBase(id, base) {
				return true
			}
		}
		return false
	}
	var prune func(n *Node)
	prune = func(n *Node) {
		kept := n.Children[:0]
		for _, ch := range n.Children {
			if id := ch.ID(); drop(id) {
				removed = append(removed, id)
				continue
			}
			prune(ch)
			kept = append(kept, ch)
		}
		n.Children = kept
	}
	prune(out)
	return out, removed
}

// Apply bakes th into root: layers are recolored, then every pattern layer
// except the active one is removed.
func Apply(root *Node, th theme.Theme) (*Node, Report) {
	var r Report
	out, recolored, missing := Recolor(root, th.Fills)
	r.Recolored, r.Missing = recolored, missing

	active, _ := th.ActivePattern()
	out, r.Removed = Prune(out, theme.PatternLayers(), active)
	return out, r
}

// BustCache returns a copy of root in which every external href carries a
// v=nonce query parameter. Fragment and data references are left alone.
func BustCache(root *Node, nonce string) *Node {
	out := root.Clone()
	out.Walk(func(n *Node) bool {
		for i, a := range n.Attrs {
			if a.Name != "href" && !strings.HasSuffix(a.Name, ":href") {
				continue
			}
			v := a.Value
			if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "data:") {
				continue
			}
			sep := "?"
			if strings.Contains(v, "?") {
				sep = "&"
			}
			n.Attrs[i].Value = v + sep + "v=" + nonce
		}
		return true
	})
	return out
}
