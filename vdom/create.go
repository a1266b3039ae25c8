package vdom

// createNode walks a freshly rendered node with no prior counterpart and
// emits, depth-first, everything needed to build it: template registration,
// skeleton loads, dynamic slot content, attributes. The return value is the
// number of host nodes left on the backend's stack for the caller to append,
// replace or insert.
//
// With a nil sink the walk still mounts component scopes (their state must
// exist for later diffs) but allocates no element ids and emits nothing.
func (d *Dom) createNode(n *VNode, parent *elementRef, to Sink) int {
	tpl := d.currentTemplate(n)

	if n.mount == mountNone {
		mounted := make([]uint32, len(tpl.NodePaths))
		for i := range mounted {
			mounted[i] = slotUnassigned
		}
		m := &vnodeMount{
			node:         n,
			parent:       parent,
			template:     tpl,
			rootIDs:      make([]ElementID, len(tpl.Roots)),
			mountedNodes: mounted,
			mountedAttrs: make([]ElementID, len(tpl.AttrPaths)),
		}
		if s := d.currentScope(); s != nil {
			m.owner = s.id
		}
		n.mount = d.mounts.insert(m)
	} else if parent != nil {
		// A retained tree coming onscreen picks up its real position.
		d.mounts.get(n.mount).parent = parent
	}
	d.registerTemplate(tpl, to)

	mount := d.mounts.get(n.mount)
	total := 0
	for rootIdx := range tpl.Roots {
		root := &tpl.Roots[rootIdx]
		switch root.Kind {
		case TplDynamic, TplDynamicText:
			total += d.createDynamicNode(n, mount, root.Index, to)
		default:
			if to != nil {
				id := d.elements.allocate(&elementRef{mount: n.mount, path: []uint8{uint8(rootIdx)}})
				mount.rootIDs[rootIdx] = id
				to.LoadTemplate(tpl.Name, rootIdx, id)
			}
			if root.Kind == TplElement {
				d.loadPlaceholders(n, mount, uint8(rootIdx), to)
				if to != nil {
					d.writeRootAttrs(n, mount, uint8(rootIdx), to)
				}
			}
			// One host node regardless of sink: the count describes the
			// tree shape, not what was emitted.
			total++
		}
	}
	return total
}

func (d *Dom) createChildren(children []*VNode, parent *elementRef, to Sink) int {
	total := 0
	for _, child := range children {
		total += d.createNode(child, parent, to)
	}
	return total
}

// loadPlaceholders fills every dynamic node slot nested under the root
// element that was just loaded onto the stack. Slots that materialize real
// host nodes replace the skeleton's placeholder at their path.
func (d *Dom) loadPlaceholders(n *VNode, mount *vnodeMount, rootIdx uint8, to Sink) {
	tpl := mount.template
	slotsUnder(tpl.nodeOrder, tpl.NodePaths, rootIdx, true, func(idx int, path []uint8) {
		m := d.createDynamicNode(n, mount, idx, to)
		if to != nil && m > 0 {
			to.ReplacePlaceholder(path[1:], m)
		}
	})
}

// createDynamicNode materializes one dynamic slot. Text and placeholders at
// a template root create a free node on the stack; nested ones hydrate or
// claim the skeleton node already in place. Fragments and components
// contribute their own root count.
func (d *Dom) createDynamicNode(n *VNode, mount *vnodeMount, idx int, to Sink) int {
	tpl := mount.template
	path := tpl.NodePaths[idx]
	switch node := n.DynamicNodes[idx].(type) {
	case *VText:
		if to == nil {
			return 0
		}
		id := d.mountSlotElement(n, mount, idx)
		if len(path) == 1 {
			to.CreateText(node.Value, id)
			return 1
		}
		if tpl.textSlot[idx] {
			to.HydrateText(path[1:], node.Value, id)
			return 0
		}
		// The skeleton holds a placeholder here, not a text node; the
		// caller replaces it with this freshly created one.
		to.CreateText(node.Value, id)
		return 1
	case *VPlaceholder:
		if to == nil {
			return 0
		}
		id := d.mountSlotElement(n, mount, idx)
		if len(path) == 1 {
			to.CreatePlaceholder(id)
			return 1
		}
		to.AssignID(path[1:], id)
		return 0
	case Fragment:
		return d.createChildren(node, &elementRef{mount: n.mount, path: path}, to)
	case *VComponent:
		return d.createComponentNode(n, mount, idx, node, to)
	default:
		panicf("unknown dynamic node kind %T at slot %d of %s", node, idx, tpl.Name)
		return 0
	}
}

// createDetachedDynamicNode builds slot content off-tree for a replacement:
// text and placeholders become free nodes even at nested paths, because the
// skeleton position they would hydrate is occupied by the content being
// replaced.
func (d *Dom) createDetachedDynamicNode(n *VNode, mount *vnodeMount, idx int, to Sink) int {
	switch node := n.DynamicNodes[idx].(type) {
	case *VText:
		if to == nil {
			return 0
		}
		id := d.mountSlotElement(n, mount, idx)
		to.CreateText(node.Value, id)
		return 1
	case *VPlaceholder:
		if to == nil {
			return 0
		}
		id := d.mountSlotElement(n, mount, idx)
		to.CreatePlaceholder(id)
		return 1
	default:
		return d.createDynamicNode(n, mount, idx, to)
	}
}

// mountSlotElement allocates the element id occupying a dynamic slot. Slots
// sitting directly at a template root also record the id in rootIDs so
// sibling walks treat static and dynamic roots alike.
func (d *Dom) mountSlotElement(n *VNode, mount *vnodeMount, idx int) ElementID {
	path := mount.template.NodePaths[idx]
	id := d.elements.allocate(&elementRef{mount: n.mount, path: path})
	mount.mountedNodes[idx] = uint32(id)
	if len(path) == 1 {
		mount.rootIDs[path[0]] = id
	}
	return id
}

// createComponentNode mounts (or re-uses) the scope occupying a component
// slot and creates its rendered tree. Re-use happens when suspense brings a
// background-mounted tree onscreen: the scope and its state survive, only
// the host nodes are new.
func (d *Dom) createComponentNode(n *VNode, mount *vnodeMount, idx int, c *VComponent, to Sink) int {
	var s *Scope
	if mount.mountedNodes[idx] != slotUnassigned {
		s = d.scopes.get(ScopeID(mount.mountedNodes[idx]))
	}
	if s == nil {
		s = d.newScope(c, d.currentScope())
		mount.mountedNodes[idx] = uint32(s.id)
		s.last = d.runScope(s)
	}
	parent := &elementRef{mount: n.mount, path: mount.template.NodePaths[idx]}
	d.scopeStack = append(d.scopeStack, s.id)
	m := d.createNode(s.last, parent, to)
	d.scopeStack = d.scopeStack[:len(d.scopeStack)-1]
	return m
}

// writeRootAttrs assigns ids to any skeleton nodes claimed by dynamic
// attribute slots under the loaded root and writes the attribute values.
func (d *Dom) writeRootAttrs(n *VNode, mount *vnodeMount, rootIdx uint8, to Sink) {
	tpl := mount.template
	var lastPath []uint8
	var lastID ElementID
	slotsUnder(tpl.attrOrder, tpl.AttrPaths, rootIdx, false, func(idx int, path []uint8) {
		var id ElementID
		switch {
		case lastPath != nil && pathEqual(lastPath, path):
			id = lastID
		case len(path) == 1:
			id = mount.rootIDs[path[0]]
		default:
			id = d.elements.allocate(&elementRef{mount: n.mount, path: path})
			to.AssignID(path[1:], id)
		}
		lastPath, lastID = path, id
		mount.mountedAttrs[idx] = id
		for i := range n.DynamicAttrs[idx] {
			d.writeAttribute(&n.DynamicAttrs[idx][i], id, to)
		}
	})
}

func (d *Dom) writeAttribute(a *Attribute, id ElementID, to Sink) {
	if a.IsListener() {
		to.NewEventListener(a.EventName(), id, true)
		return
	}
	to.SetAttribute(a.Name, a.Namespace, a.Value, id)
}

func pathEqual(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
