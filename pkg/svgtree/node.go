package svgtree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Attr is a single attribute. Name keeps its written prefix ("xlink:href").
type Attr struct {
	Name  string
	Value string
}

// Node is an element of the tree, or a run of character data when Tag is
// empty. Character data sits among the children in document order so mixed
// content like <text>a <tspan>b</tspan> c</text> keeps its shape.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// NewText returns a character data node.
func NewText(s string) *Node {
	return &Node{Text: s}
}

// IsText reports whether n is character data.
func (n *Node) IsText() bool {
	return n.Tag == ""
}

// InnerText concatenates the character data below n in document order.
func (n *Node) InnerText() string {
	var b strings.Builder
	n.Walk(func(x *Node) bool {
		if x.IsText() {
			b.WriteString(x.Text)
		}
		return true
	})
	return b.String()
}

// Elements returns the children of n that are elements.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, ch := range n.Children {
		if !ch.IsText() {
			out = append(out, ch)
		}
	}
	return out
}

// Parse reads markup from r. The decoder is non-strict and honors the
// declared encoding of the document.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: qualified(t.Name)}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("parse svg: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse svg: unexpected </%s>", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			if k := len(parent.Children); k > 0 && parent.Children[k-1].IsText() {
				parent.Children[k-1].Text += string(t)
				continue
			}
			parent.Children = append(parent.Children, NewText(string(t)))
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parse svg: empty document")
	}
	return root, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// LocalTag returns the tag without its prefix.
func (n *Node) LocalTag() string {
	if i := strings.LastIndexByte(n.Tag, ':'); i >= 0 {
		return n.Tag[i+1:]
	}
	return n.Tag
}

// ID returns the id attribute, or "".
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or appends the named attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Tag: n.Tag, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, ch := range n.Children {
		ch.Walk(fn)
	}
}

// Find returns the first node with the given id.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}
		if x.ID() == id {
			found = x
			return false
		}
		return true
	})
	return found
}

// IDs returns every id in document order.
func (n *Node) IDs() []string {
	var ids []string
	n.Walk(func(x *Node) bool {
		if id := x.ID(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// Render writes n as markup.
func (n *Node) Render(w io.Writer) error {
	var buf bytes.Buffer
	n.render(&buf)
	_, err := w.Write(buf.Bytes())
	return err
}

// String renders n into a string.
func (n *Node) String() string {
	var buf bytes.Buffer
	n.render(&buf)
	return buf.String()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (n *Node) render(buf *bytes.Buffer) {
	if n.IsText() {
		textEscaper.WriteString(buf, n.Text)
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, ch := range n.Children {
		ch.render(buf)
	}
	buf.WriteString("</")
	buf.WriteString(n.Tag)
	buf.WriteByte('>')
}
