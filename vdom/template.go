package vdom

import (
	"fmt"
	"sort"
)

// TemplateNodeKind discriminates the static node descriptors of a template.
type TemplateNodeKind uint8

const (
	// TplElement is a static element with a tag, attributes and children.
	TplElement TemplateNodeKind = iota
	// TplText is static text that never changes between renders.
	TplText
	// TplDynamic is a slot filled with a DynamicNode at render time.
	TplDynamic
	// TplDynamicText is a slot filled with text at render time. The
	// template carries a real text node that is hydrated in place.
	TplDynamicText
)

// TemplateNode is one node of a template's static skeleton.
type TemplateNode struct {
	Kind      TemplateNodeKind
	Tag       string
	Namespace string
	Attrs     []TemplateAttribute
	Children  []TemplateNode
	Text      string
	// Index is the dynamic slot number for TplDynamic/TplDynamicText.
	Index int
}

// TemplateAttribute is either a static attribute baked into the skeleton or
// a marker claiming a dynamic attribute slot on its element.
type TemplateAttribute struct {
	Name      string
	Value     string
	Namespace string
	Dynamic   bool
	Index     int
}

// Template is the immutable static skeleton shared by every render of one
// call site. The path tables map dynamic slot index to the child-index path
// from the template root, so renders can find slot locations without
// walking the whole tree.
type Template struct {
	// Name is the call-site key. Two templates with the same name are the
	// same template; registration with a backend happens once per name.
	Name  string
	Roots []TemplateNode

	NodePaths [][]uint8
	AttrPaths [][]uint8

	// Dynamic node indices sorted depth-first by path, grouped under the
	// root given by the path head. Computed once at construction.
	nodeOrder []int
	attrOrder []int

	// Per-node-slot flag: true when the skeleton carries a real text node
	// (TplDynamicText) that hydrates in place. TplDynamic slots carry a
	// placeholder and get their content created off-stack instead.
	textSlot []bool
}

// NewTemplate builds a template and derives its path tables. Slot indices
// must be dense starting from zero; a malformed skeleton is a programmer
// error and panics.
func NewTemplate(name string, roots ...TemplateNode) *Template {
	t := &Template{Name: name, Roots: roots}

	nodePaths := map[int][]uint8{}
	attrPaths := map[int][]uint8{}
	textSlots := map[int]bool{}
	var walk func(n *TemplateNode, path []uint8)
	walk = func(n *TemplateNode, path []uint8) {
		switch n.Kind {
		case TplDynamic, TplDynamicText:
			if _, dup := nodePaths[n.Index]; dup {
				panicf("template %s: dynamic node slot %d used twice", name, n.Index)
			}
			nodePaths[n.Index] = append([]uint8(nil), path...)
			textSlots[n.Index] = n.Kind == TplDynamicText
		case TplElement:
			for _, a := range n.Attrs {
				if !a.Dynamic {
					continue
				}
				if _, dup := attrPaths[a.Index]; dup {
					panicf("template %s: dynamic attr slot %d used twice", name, a.Index)
				}
				attrPaths[a.Index] = append([]uint8(nil), path...)
			}
			for i := range n.Children {
				walk(&n.Children[i], append(path, uint8(i)))
			}
		}
	}
	for i := range roots {
		walk(&roots[i], []uint8{uint8(i)})
	}

	t.NodePaths = densePaths(name, "node", nodePaths)
	t.AttrPaths = densePaths(name, "attr", attrPaths)
	t.nodeOrder = pathOrder(t.NodePaths)
	t.attrOrder = pathOrder(t.AttrPaths)
	t.textSlot = make([]bool, len(t.NodePaths))
	for idx, isText := range textSlots {
		t.textSlot[idx] = isText
	}
	return t
}

func densePaths(name, kind string, m map[int][]uint8) [][]uint8 {
	out := make([][]uint8, len(m))
	for idx, p := range m {
		if idx < 0 || idx >= len(m) {
			panicf("template %s: %s slot indices not dense (got %d of %d)", name, kind, idx, len(m))
		}
		out[idx] = p
	}
	return out
}

// pathOrder yields slot indices sorted by path, so creation can walk slots
// in document order while the owning root element sits on the stack.
// EachAttrSlot visits every dynamic attribute slot in document path order,
// the order ids are assigned during mounting.
func (t *Template) EachAttrSlot(fn func(idx int, path []uint8)) {
	for _, idx := range t.attrOrder {
		fn(idx, t.AttrPaths[idx])
	}
}

func pathOrder(paths [][]uint8) []int {
	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pathLess(paths[order[a]], paths[order[b]])
	})
	return order
}

func pathLess(a, b []uint8) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// slotsUnder iterates the sorted slot indices whose path starts at root.
func slotsUnder(order []int, paths [][]uint8, root uint8, deepOnly bool, fn func(idx int, path []uint8)) {
	for _, idx := range order {
		p := paths[idx]
		if len(p) == 0 || p[0] != root {
			continue
		}
		if deepOnly && len(p) == 1 {
			continue
		}
		fn(idx, p)
	}
}

// El builds a static element descriptor.
func El(tag string, attrs []TemplateAttribute, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TplElement, Tag: tag, Attrs: attrs, Children: children}
}

// ElNS builds a namespaced static element descriptor.
func ElNS(tag, ns string, attrs []TemplateAttribute, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TplElement, Tag: tag, Namespace: ns, Attrs: attrs, Children: children}
}

// StaticText builds static text.
func StaticText(text string) TemplateNode {
	return TemplateNode{Kind: TplText, Text: text}
}

// DynNode marks a dynamic node slot.
func DynNode(index int) TemplateNode {
	return TemplateNode{Kind: TplDynamic, Index: index}
}

// DynText marks a dynamic text slot.
func DynText(index int) TemplateNode {
	return TemplateNode{Kind: TplDynamicText, Index: index}
}

// StaticAttr builds a static attribute.
func StaticAttr(name, value string) TemplateAttribute {
	return TemplateAttribute{Name: name, Value: value}
}

// DynAttr claims dynamic attribute slot index on the enclosing element.
func DynAttr(index int) TemplateAttribute {
	return TemplateAttribute{Dynamic: true, Index: index}
}

// placeholderTemplate hosts the render of a component that produced no
// content: a single placeholder root.
var placeholderTemplate = NewTemplate("loom:placeholder", DynNode(0))

func placeholderNode() *VNode {
	return placeholderTemplate.Render([]DynamicNode{&VPlaceholder{}}, nil)
}

func panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
