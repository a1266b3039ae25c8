package memdom

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gowade/loom/vdom"
)

// HTML renders the root container's contents as markup. Placeholders render
// as comments so server output round-trips through a parser with positions
// intact.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for _, c := range d.root.children {
		html.Render(&buf, toHTMLNode(c))
	}
	return buf.String()
}

// OuterHTML renders one node and its subtree.
func (d *Document) OuterHTML(id vdom.ElementID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.byID[id]
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	html.Render(&buf, toHTMLNode(n))
	return buf.String()
}

func toHTMLNode(n *node) *html.Node {
	switch n.kind {
	case textNode:
		return &html.Node{Type: html.TextNode, Data: n.text}
	case placeholderNode:
		return &html.Node{Type: html.CommentNode, Data: "placeholder"}
	}

	out := &html.Node{
		Type:      html.ElementNode,
		Data:      n.tag,
		DataAtom:  atom.Lookup([]byte(n.tag)),
		Namespace: n.namespace,
	}
	for _, a := range n.attrs {
		switch a.name {
		case "value", "checked", "selected", dangerousInnerHTML:
			// Rendered from live state below.
			continue
		}
		out.Attr = append(out.Attr, html.Attribute{
			Key:       a.name,
			Namespace: a.namespace,
			Val:       attrString(a.value),
		})
	}
	if n.liveValue != "" {
		out.Attr = append(out.Attr, html.Attribute{Key: "value", Val: n.liveValue})
	}
	if n.liveChecked {
		out.Attr = append(out.Attr, html.Attribute{Key: "checked", Val: ""})
	}
	if n.liveSelected {
		out.Attr = append(out.Attr, html.Attribute{Key: "selected", Val: ""})
	}

	if n.rawInner != "" {
		out.AppendChild(&html.Node{Type: html.RawNode, Data: n.rawInner})
		return out
	}
	for _, c := range n.children {
		out.AppendChild(toHTMLNode(c))
	}
	return out
}
