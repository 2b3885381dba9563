package dom

import (
	"strings"
)

// Renderable is one item of component output. The core never looks
// inside a Renderable; the renderer collaborator turns it into markup.
type Renderable interface {
	// WriteHTML appends the item's markup to b.
	WriteHTML(b *strings.Builder)
}

// HTML renders a sequence of items into a single markup string.
func HTML(items []Renderable) string {
	var b strings.Builder
	for _, item := range items {
		if item != nil {
			item.WriteHTML(&b)
		}
	}
	return b.String()
}

// NodeKind is the node type discriminator.
type NodeKind uint8

const (
	KindElement NodeKind = iota // <div>, <button>, etc.
	KindText                    // Plain text node
	KindRaw                     // Raw HTML (dangerous)
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Attribute is a single element attribute. Attributes keep their
// insertion order so output is deterministic.
type Attribute struct {
	Key   string
	Value string
}

// Node is the stock Renderable: an element, a text node, or raw HTML.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    []Attribute
	Children []*Node
	Text     string
}

var _ Renderable = (*Node)(nil)

// El creates an element node. Arguments may be Attribute values, *Node
// children, or strings (which become text children).
func El(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Attribute:
			if v.Key != "" {
				n.Attrs = append(n.Attrs, v)
			}
		case []Attribute:
			for _, a := range v {
				if a.Key != "" {
					n.Attrs = append(n.Attrs, a)
				}
			}
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		}
	}
	return n
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Raw creates a node whose content is emitted without escaping.
// The content must be trusted.
func Raw(html string) *Node {
	return &Node{Kind: KindRaw, Text: html}
}

// Attr creates an attribute.
func Attr(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Class creates a class attribute.
func Class(value string) Attribute {
	return Attribute{Key: "class", Value: value}
}

// ID creates an id attribute.
func ID(value string) Attribute {
	return Attribute{Key: "id", Value: value}
}

// Items converts nodes into a Renderable slice.
func Items(nodes ...*Node) []Renderable {
	items := make([]Renderable, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			items = append(items, n)
		}
	}
	return items
}

// WriteHTML implements Renderable.
func (n *Node) WriteHTML(b *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText:
		b.WriteString(escapeHTML(n.Text))
	case KindRaw:
		b.WriteString(n.Text)
	case KindElement:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(escapeAttr(a.Value))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if voidElements[n.Tag] {
			return
		}
		for _, c := range n.Children {
			c.WriteHTML(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

// String returns the node's markup.
func (n *Node) String() string {
	var b strings.Builder
	n.WriteHTML(&b)
	return b.String()
}

// voidElements are elements that cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for safe inclusion in HTML attribute values.
// Whitespace that could break attribute parsing is escaped too.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}
