package vdom

import (
	"reflect"
	"sort"
)

// ElementID identifies one concrete backend-visible node. IDs are allocated
// from a slot table and reused after reclamation; id 0 is the root container
// and is never reclaimed.
type ElementID uint32

// ScopeID identifies one mounted component instance.
type ScopeID uint32

// MountID identifies one instantiation of a template inside the live tree.
type MountID int32

const mountNone MountID = -1

// DynamicNode is the content of one dynamic slot in a rendered node.
// It is a closed set: VText, VPlaceholder, Fragment and VComponent.
type DynamicNode interface {
	dynamicNode()
}

// VText is dynamic text content.
type VText struct {
	Value string
}

// VPlaceholder marks a slot that currently renders nothing.
type VPlaceholder struct{}

// Fragment is a sequence of nodes with no single host element, typically
// produced by iteration. An empty Fragment handed to Render is normalized
// to a placeholder; Frag does the same at construction.
type Fragment []*VNode

// VComponent mounts a child component into a dynamic slot.
type VComponent struct {
	Name  string
	Props any
	Key   string

	// Memo overrides the default props comparison (reflect.DeepEqual).
	// It receives the retained old props and the new props and reports
	// whether the render can be skipped.
	Memo func(prev, next any) bool

	fn   ComponentFunc
	fnID uintptr
}

func (*VText) dynamicNode()        {}
func (*VPlaceholder) dynamicNode() {}
func (Fragment) dynamicNode()      {}
func (*VComponent) dynamicNode()   {}

// ComponentFunc is a component body: it is re-invoked on every render of its
// scope and returns the scope's new node tree. Returning nil renders a
// placeholder.
type ComponentFunc func(ctx *Ctx) *VNode

// Component builds a component dynamic node. Identity for diffing purposes is
// the function pointer: two VComponents diff in place only when built from
// the same function.
func Component(name string, fn ComponentFunc, props any) *VComponent {
	return &VComponent{
		Name:  name,
		Props: props,
		fn:    fn,
		fnID:  reflect.ValueOf(fn).Pointer(),
	}
}

// WithKey sets the reconciliation key, for components rendered in lists.
func (c *VComponent) WithKey(key string) *VComponent {
	c.Key = key
	return c
}

// WithMemo installs a custom props comparator.
func (c *VComponent) WithMemo(memo func(prev, next any) bool) *VComponent {
	c.Memo = memo
	return c
}

// Handler is an event listener attached via a listener attribute.
type Handler func(*Event)

// Attribute is one dynamic attribute value. A nil Value means the attribute
// is absent; a Handler value makes it a listener. Attribute slices attached
// to a slot must be sorted by name (see Attrs).
type Attribute struct {
	Name      string
	Namespace string
	Value     any
	// Volatile attributes may be overridden by the backend (live input
	// value, checked state) and are rewritten on every diff.
	Volatile bool
}

// IsListener reports whether the attribute carries an event handler.
func (a *Attribute) IsListener() bool {
	_, ok := a.Value.(Handler)
	return ok
}

// EventName strips the "on" prefix from a listener attribute name.
func (a *Attribute) EventName() string {
	if len(a.Name) > 2 && a.Name[:2] == "on" {
		return a.Name[2:]
	}
	return a.Name
}

// Attrs sorts a slot's attribute list by name, the order the differ expects.
func Attrs(attrs ...Attribute) []Attribute {
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	return attrs
}

// Attr builds a plain attribute.
func Attr(name string, value any) Attribute {
	return Attribute{Name: name, Value: value}
}

// VolatileAttr builds an attribute the backend may override out from under
// the runtime (live input value, checked state). It is rewritten on every
// diff regardless of the rendered value.
func VolatileAttr(name string, value any) Attribute {
	return Attribute{Name: name, Value: value, Volatile: true}
}

// Listener builds a listener attribute for an event like "click".
func Listener(event string, h Handler) Attribute {
	return Attribute{Name: "on" + event, Value: h}
}

// VNode is one render's output for a template: the shared static skeleton
// plus the values for its dynamic slots. A fresh VNode is produced on every
// render; the previous render is retained until it has been diffed against.
type VNode struct {
	Key      string
	Template *Template

	// One entry per dynamic node slot, same length as Template.NodePaths.
	DynamicNodes []DynamicNode
	// One list per dynamic attribute slot, same length as
	// Template.AttrPaths. Lists are sorted by attribute name.
	DynamicAttrs [][]Attribute

	mount MountID
}

// Render instantiates the template with slot values. Counts must match the
// template's path tables; a mismatch is a programmer error and panics rather
// than desynchronizing the backend.
func (t *Template) Render(nodes []DynamicNode, attrs [][]Attribute) *VNode {
	if len(nodes) != len(t.NodePaths) {
		panicf("template %s: %d dynamic nodes, want %d", t.Name, len(nodes), len(t.NodePaths))
	}
	if len(attrs) != len(t.AttrPaths) {
		panicf("template %s: %d dynamic attr slots, want %d", t.Name, len(attrs), len(t.AttrPaths))
	}
	for _, slot := range attrs {
		if !sort.SliceIsSorted(slot, func(i, j int) bool { return slot[i].Name < slot[j].Name }) {
			Attrs(slot...)
		}
	}
	for i, dn := range nodes {
		if f, ok := dn.(Fragment); ok && len(f) == 0 {
			nodes[i] = &VPlaceholder{}
		}
	}
	return &VNode{Template: t, DynamicNodes: nodes, DynamicAttrs: attrs, mount: mountNone}
}

// WithKey sets the reconciliation key on a rendered node.
func (n *VNode) WithKey(key string) *VNode {
	n.Key = key
	return n
}

// Frag normalizes a child list into a dynamic node. Iteration that produces
// nothing becomes a placeholder so the slot always has a mountable occupant.
func Frag(children ...*VNode) DynamicNode {
	if len(children) == 0 {
		return &VPlaceholder{}
	}
	return Fragment(children)
}

// Text builds dynamic text content.
func Text(value string) DynamicNode {
	return &VText{Value: value}
}
