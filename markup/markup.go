// Package markup compiles HTML fragments into virtual DOM templates.
// Dynamic content is marked with {N}: inside text the marker claims dynamic
// node slot N, as an attribute value it claims dynamic attribute slot N.
// Node and attribute slots are numbered independently, each table dense
// from zero. The compiled template has the same shape components declare in
// Go, so markup files and code-built skeletons are interchangeable.
package markup

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gowade/loom/vdom"
)

var slotRegex = regexp.MustCompile(`\{(\d+)\}`)

// Compile parses one markup fragment into a template named name. Slot
// indices must be dense from zero and claimed exactly once per table; a
// violation is a compile error, not a render-time surprise.
func Compile(name string, r io.Reader) (*vdom.Template, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading markup for %s", name)
	}

	nodes, err := html.ParseFragment(bytes.NewReader(bytes.TrimSpace(src)), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parsing markup for %s", name)
	}

	c := &compiler{name: name}
	var roots []vdom.TemplateNode
	for _, n := range nodes {
		roots = append(roots, c.convert(n)...)
	}
	if c.err != nil {
		return nil, c.err
	}
	if len(roots) == 0 {
		return nil, errors.Errorf("%s: markup has no content", name)
	}
	if err := checkDense(name, "node", c.nodeSlots); err != nil {
		return nil, err
	}
	if err := checkDense(name, "attribute", c.attrSlots); err != nil {
		return nil, err
	}
	return vdom.NewTemplate(name, roots...), nil
}

// CompileString is Compile over an in-memory fragment.
func CompileString(name, src string) (*vdom.Template, error) {
	return Compile(name, strings.NewReader(src))
}

type compiler struct {
	name      string
	nodeSlots []int
	attrSlots []int
	err       error
}

func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = errors.Errorf(c.name+": "+format, args...)
	}
}

func (c *compiler) convert(n *html.Node) []vdom.TemplateNode {
	switch n.Type {
	case html.TextNode:
		return c.splitText(n.Data)
	case html.ElementNode:
		return []vdom.TemplateNode{c.element(n)}
	case html.CommentNode:
		return nil
	default:
		return nil
	}
}

func (c *compiler) element(n *html.Node) vdom.TemplateNode {
	var attrs []vdom.TemplateAttribute
	for _, a := range n.Attr {
		if m := slotRegex.FindStringSubmatch(a.Val); m != nil && m[0] == a.Val {
			idx, _ := strconv.Atoi(m[1])
			c.attrSlots = append(c.attrSlots, idx)
			attrs = append(attrs, vdom.TemplateAttribute{
				Name:      a.Key,
				Namespace: a.Namespace,
				Dynamic:   true,
				Index:     idx,
			})
			continue
		}
		if slotRegex.MatchString(a.Val) {
			c.fail("attribute %s of <%s> mixes a slot marker with literal text", a.Key, n.Data)
		}
		attrs = append(attrs, vdom.TemplateAttribute{
			Name:      a.Key,
			Namespace: a.Namespace,
			Value:     a.Val,
		})
	}

	var children []vdom.TemplateNode
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		children = append(children, c.convert(child)...)
	}

	if n.Namespace != "" {
		return vdom.ElNS(n.Data, n.Namespace, attrs, children...)
	}
	return vdom.El(n.Data, attrs, children...)
}

// splitText breaks mixed static text and {N} markers into separate template
// nodes, the way the mustache splitter breaks binding expressions out of
// literal text.
func (c *compiler) splitText(text string) []vdom.TemplateNode {
	matches := slotRegex.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []vdom.TemplateNode{vdom.StaticText(text)}
	}

	var out []vdom.TemplateNode
	last := 0
	for _, m := range matches {
		if lit := text[last:m[0]]; lit != "" {
			out = append(out, vdom.StaticText(lit))
		}
		idx, _ := strconv.Atoi(text[m[2]:m[3]])
		c.nodeSlots = append(c.nodeSlots, idx)
		out = append(out, vdom.DynNode(idx))
		last = m[1]
	}
	if lit := text[last:]; lit != "" {
		out = append(out, vdom.StaticText(lit))
	}
	return out
}

func checkDense(name, kind string, slots []int) error {
	sorted := slices.Clone(slots)
	slices.Sort(sorted)
	for i, v := range sorted {
		if v != i {
			if i > 0 && v == sorted[i-1] {
				return errors.Errorf("%s: %s slot %d claimed more than once", name, kind, v)
			}
			return errors.Errorf("%s: %s slots are not dense, missing %d", name, kind, i)
		}
	}
	return nil
}
