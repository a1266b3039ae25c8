package vdom

// removeNodes tears down a run of sibling trees left to right. A
// non-negative replaceWith hands that many stack nodes to the final root of
// the final tree, which emits ReplaceWith instead of Remove.
func (d *Dom) removeNodes(nodes []*VNode, to Sink, replaceWith int) {
	d.removeNodesInner(nodes, to, true, replaceWith)
}

func (d *Dom) removeNodesInner(nodes []*VNode, to Sink, destroyState bool, replaceWith int) {
	for i, n := range nodes {
		rw := -1
		if i == len(nodes)-1 {
			rw = replaceWith
		}
		d.removeNodeInner(n, to, destroyState, rw)
	}
}

func (d *Dom) removeNode(n *VNode, to Sink, replaceWith int) {
	d.removeNodeInner(n, to, true, replaceWith)
}

// removeNodeInner unmounts one tree. Listener removals go out first, then
// attribute ids and nested dynamic content are reclaimed silently since
// removing the roots takes the whole subtree with them; only the roots
// themselves emit node mutations. With destroyState false the mount and
// every scope under it survive, which is how a suspense boundary moves
// resolved content offscreen without losing its state.
func (d *Dom) removeNodeInner(n *VNode, to Sink, destroyState bool, replaceWith int) {
	if n.mount == mountNone {
		return
	}
	m := d.mounts.get(n.mount)

	d.removeListeners(n, m, to)
	d.reclaimAttributes(m)
	d.removeNestedDynNodes(n, m, to, destroyState)
	d.reclaimRoots(n, m, to, destroyState, replaceWith)

	if destroyState {
		d.mounts.remove(n.mount)
		n.mount = mountNone
	}
}

// removeListeners deregisters every listener attribute of a mount before
// the mutations that delete its nodes.
func (d *Dom) removeListeners(n *VNode, m *vnodeMount, to Sink) {
	if to == nil {
		return
	}
	for idx := range m.template.AttrPaths {
		id := m.mountedAttrs[idx]
		if id == 0 {
			// Never materialized (built against a nil sink).
			continue
		}
		for i := range n.DynamicAttrs[idx] {
			a := &n.DynamicAttrs[idx][i]
			if a.IsListener() {
				to.RemoveEventListener(a.EventName(), id, true)
			}
		}
	}
}

// reclaimAttributes returns the ids claimed by deep dynamic-attribute
// slots. Root-level slots borrow the root's id, which reclaimRoots owns.
func (d *Dom) reclaimAttributes(m *vnodeMount) {
	var prev ElementID
	m.template.EachAttrSlot(func(idx int, path []uint8) {
		if len(path) <= 1 {
			return
		}
		id := m.mountedAttrs[idx]
		// Path-adjacent slots on the same node share one id.
		if id != 0 && id != prev {
			d.elements.reclaim(id)
			prev = id
		}
	})
}

// removeNestedDynNodes reclaims dynamic content buried under a static root.
// The backend drops these nodes when the root goes, so node mutations are
// suppressed; listener removals still cross the wire.
func (d *Dom) removeNestedDynNodes(n *VNode, m *vnodeMount, to Sink, destroyState bool) {
	nested := listenersOf(to)
	for idx := range n.DynamicNodes {
		if len(m.template.NodePaths[idx]) >= 2 {
			d.removeDynamicNode(m, idx, n.DynamicNodes[idx], nested, destroyState, -1)
		}
	}
}

// nopSink discards everything. Embed it to override a subset of Sink.
type nopSink struct{}

func (nopSink) RegisterTemplate(*Template)                  {}
func (nopSink) LoadTemplate(string, int, ElementID)         {}
func (nopSink) AssignID([]uint8, ElementID)                 {}
func (nopSink) CreateText(string, ElementID)                {}
func (nopSink) CreatePlaceholder(ElementID)                 {}
func (nopSink) HydrateText([]uint8, string, ElementID)      {}
func (nopSink) ReplacePlaceholder([]uint8, int)             {}
func (nopSink) AppendChildren(ElementID, int)               {}
func (nopSink) ReplaceWith(ElementID, int)                  {}
func (nopSink) InsertAfter(ElementID, int)                  {}
func (nopSink) InsertBefore(ElementID, int)                 {}
func (nopSink) Remove(ElementID)                            {}
func (nopSink) SetText(string, ElementID)                   {}
func (nopSink) SetAttribute(string, string, any, ElementID) {}
func (nopSink) RemoveAttribute(string, string, ElementID)   {}
func (nopSink) NewEventListener(string, ElementID, bool)    {}
func (nopSink) RemoveEventListener(string, ElementID, bool) {}
func (nopSink) PushRoot(ElementID)                          {}

// listenerSink forwards only listener removals, for teardown of content
// whose nodes disappear with an enclosing root.
type listenerSink struct {
	nopSink
	to Sink
}

func (l listenerSink) RemoveEventListener(event string, id ElementID, bubbles bool) {
	l.to.RemoveEventListener(event, id, bubbles)
}

func listenersOf(to Sink) Sink {
	if to == nil {
		return nil
	}
	if l, ok := to.(listenerSink); ok {
		return l
	}
	return listenerSink{to: to}
}

// reclaimRoots removes the template's root nodes in order. Ids are
// reclaimed in reverse order of allocation across the whole teardown, last
// so the free list stays stack-shaped.
func (d *Dom) reclaimRoots(n *VNode, m *vnodeMount, to Sink, destroyState bool, replaceWith int) {
	roots := m.template.Roots
	for idx := range roots {
		lastRoot := idx == len(roots)-1
		rw := -1
		if lastRoot {
			rw = replaceWith
		}
		root := &roots[idx]
		if root.Kind == TplDynamic || root.Kind == TplDynamicText {
			d.removeDynamicNode(m, root.Index, n.DynamicNodes[root.Index], to, destroyState, rw)
			continue
		}
		id := m.rootIDs[idx]
		if id == 0 {
			// Never materialized (built against a nil sink).
			continue
		}
		if to != nil {
			if rw >= 0 {
				to.ReplaceWith(id, rw)
			} else {
				to.Remove(id)
			}
		}
		d.elements.reclaim(id)
	}
}

// removeDynamicNode tears down one dynamic slot's content. A nil sink
// reclaims bookkeeping without emitting anything.
func (d *Dom) removeDynamicNode(m *vnodeMount, idx int, node DynamicNode, to Sink, destroyState bool, replaceWith int) {
	switch node := node.(type) {
	case *VText, *VPlaceholder:
		slot := m.mountedNodes[idx]
		if slot == slotUnassigned {
			return
		}
		id := ElementID(slot)
		if to != nil {
			if replaceWith >= 0 {
				to.ReplaceWith(id, replaceWith)
			} else {
				to.Remove(id)
			}
		}
		d.elements.reclaim(id)
		m.mountedNodes[idx] = slotUnassigned
	case Fragment:
		d.removeNodesInner(node, to, destroyState, replaceWith)
	case *VComponent:
		slot := m.mountedNodes[idx]
		if slot == slotUnassigned {
			return
		}
		d.removeComponentInner(ScopeID(slot), to, destroyState, replaceWith)
		if destroyState {
			m.mountedNodes[idx] = slotUnassigned
		}
	default:
		panicf("unknown dynamic node kind %T", node)
	}
}

// removeComponent unmounts a component instance: its rendered tree, then
// recursively every scope under it, then its own state.
func (d *Dom) removeComponent(id ScopeID, to Sink, replaceWith int) {
	d.removeComponentInner(id, to, true, replaceWith)
}

func (d *Dom) removeComponentInner(id ScopeID, to Sink, destroyState bool, replaceWith int) {
	s := d.scopes.get(id)
	if s == nil {
		return
	}
	if s.last != nil {
		d.removeNodeInner(s.last, to, destroyState, replaceWith)
	}
	if s.background != nil {
		// Background content never reached the backend; reclaim quietly.
		d.removeNodeInner(s.background, nil, destroyState, -1)
		s.background = nil
	}
	if destroyState {
		d.dropScope(s)
	}
}
