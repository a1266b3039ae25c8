// Package memdom is an in-memory host tree for the virtual DOM runtime. It
// interprets the full mutation opcode set against real nodes addressed by
// element id, models the live-state semantics of form controls, and renders
// the tree to HTML. It is the reference backend: server-side rendering and
// tests run against it.
package memdom

import (
	"sync"

	"github.com/gowade/loom/vdom"
)

type nodeKind uint8

const (
	elementNode nodeKind = iota
	textNode
	placeholderNode
)

type attr struct {
	name      string
	namespace string
	value     any
}

// node is one host node. Placeholders render as comments; they hold a
// position for dynamic content that is currently empty.
type node struct {
	kind      nodeKind
	tag       string
	namespace string
	text      string

	attrs    []attr
	children []*node
	parent   *node

	// Live form-control state. Diverges from the content attributes once
	// the user interacts; removing the attribute resets it.
	liveValue    string
	liveChecked  bool
	liveSelected bool

	// Raw markup installed via the dangerous-inner-html attribute.
	rawInner string

	listeners map[string]bool

	id vdom.ElementID
}

func (n *node) setAttr(name, namespace string, value any) {
	for i := range n.attrs {
		if n.attrs[i].name == name && n.attrs[i].namespace == namespace {
			n.attrs[i].value = value
			return
		}
	}
	n.attrs = append(n.attrs, attr{name: name, namespace: namespace, value: value})
}

func (n *node) removeAttr(name, namespace string) {
	for i := range n.attrs {
		if n.attrs[i].name == name && n.attrs[i].namespace == namespace {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

func (n *node) attrValue(name string) (any, bool) {
	for i := range n.attrs {
		if n.attrs[i].name == name {
			return n.attrs[i].value, true
		}
	}
	return nil, false
}

func (n *node) childIndex() int {
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Document is a complete in-memory host tree. The root container node holds
// element id 0 and is never removed. Document implements driver.Backend.
type Document struct {
	mu sync.Mutex

	root      *node
	byID      map[vdom.ElementID]*node
	templates map[string]*vdom.Template
	stack     []*node

	events chan *vdom.Event
	closed bool
}

// New returns an empty document whose root container is element id 0.
func New() *Document {
	root := &node{kind: elementNode, tag: "body"}
	return &Document{
		root:      root,
		byID:      map[vdom.ElementID]*node{0: root},
		templates: map[string]*vdom.Template{},
		events:    make(chan *vdom.Event, 16),
	}
}

// Events yields events fired against the document. Part of the backend
// contract.
func (d *Document) Events() <-chan *vdom.Event { return d.events }

// Close closes the event channel, ending any driver loop attached to the
// document.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
}

// FireEvent simulates an input occurrence on the node holding id. It
// delivers nothing unless the node or one of its ancestors has a matching
// listener registered, mirroring how a real event surface only forwards
// what was subscribed to.
func (d *Document) FireEvent(name string, id vdom.ElementID, data any) bool {
	d.mu.Lock()
	n, ok := d.byID[id]
	if ok {
		ok = false
		for cur := n; cur != nil; cur = cur.parent {
			if cur.listeners[name] {
				ok = true
				break
			}
		}
	}
	closed := d.closed
	d.mu.Unlock()

	if !ok || closed {
		return false
	}
	d.events <- &vdom.Event{Name: name, Target: id, Bubbles: true, Data: data}
	return true
}

// NumNodes counts every node in the tree, the root container included.
func (d *Document) NumNodes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return countNodes(d.root)
}

func countNodes(n *node) int {
	total := 1
	for _, c := range n.children {
		total += countNodes(c)
	}
	return total
}

// Tag returns the element's tag name.
func (d *Document) Tag(id vdom.ElementID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		return n.tag
	}
	return ""
}

// Text returns the node's text content when it is a text node.
func (d *Document) Text(id vdom.ElementID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		return n.text
	}
	return ""
}

// Attr returns a content attribute's value and whether it is present.
func (d *Document) Attr(id vdom.ElementID, name string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		return n.attrValue(name)
	}
	return nil, false
}

// HasListener reports whether an event listener is registered on the node.
func (d *Document) HasListener(id vdom.ElementID, event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.byID[id]
	return n != nil && n.listeners[event]
}

// Value returns a form control's live value.
func (d *Document) Value(id vdom.ElementID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		return n.liveValue
	}
	return ""
}

// Checked returns a form control's live checked state.
func (d *Document) Checked(id vdom.ElementID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.byID[id]
	return n != nil && n.liveChecked
}

// Selected returns an option's live selected state.
func (d *Document) Selected(id vdom.ElementID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.byID[id]
	return n != nil && n.liveSelected
}

// SetLiveValue overrides the live value the way user input would, without
// touching the content attribute.
func (d *Document) SetLiveValue(id vdom.ElementID, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		n.liveValue = value
	}
}

// SetLiveChecked overrides the live checked state the way a user click
// would, without touching the content attribute.
func (d *Document) SetLiveChecked(id vdom.ElementID, checked bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.byID[id]; n != nil {
		n.liveChecked = checked
	}
}
