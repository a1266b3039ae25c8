package vdom

import (
	"reflect"
)

// diffNode reconciles two renders of the same position in the tree. When
// the templates match, the static skeleton is untouched and only the
// dynamic slots are compared. When they differ the subtree is torn down and
// rebuilt, except for the single-component-root case where the component
// instance survives the swap.
func (d *Dom) diffNode(old, new *VNode, to Sink) {
	if old == new {
		return
	}
	m := d.mounts.get(old.mount)
	if old.Template.Name != new.Template.Name {
		d.lightDiffTemplates(old, new, to)
		return
	}
	if d.currentTemplate(new) != m.template {
		// A patched skeleton is live; rebuild against it.
		d.replaceNode(old, new, to)
		return
	}

	new.mount = old.mount
	m.node = new

	for idx := range m.template.AttrPaths {
		d.diffAttributes(old.DynamicAttrs[idx], new.DynamicAttrs[idx], m.mountedAttrs[idx], to)
	}
	for idx := range m.template.NodePaths {
		d.diffDynamicNode(old.DynamicNodes[idx], new, m, idx, to)
	}
}

// diffAttributes merges two name-sorted attribute lists for one element.
// Matching names compare values, volatile attributes are always rewritten,
// names present on only one side are written or removed. Listener slots
// swap their handler without touching the backend: dispatch reads the
// current render's handler at delivery time.
func (d *Dom) diffAttributes(old, new []Attribute, id ElementID, to Sink) {
	if to == nil {
		return
	}
	i, j := 0, 0
	for i < len(old) && j < len(new) {
		o, n := &old[i], &new[j]
		switch {
		case o.Name == n.Name && o.Namespace == n.Namespace:
			switch {
			case o.IsListener() && n.IsListener():
				// handler swap only
			case o.IsListener() != n.IsListener():
				// A listener turning into a content attribute (or back)
				// must clear the old registration, not just overwrite.
				d.removeAttribute(o, id, to)
				d.writeAttribute(n, id, to)
			case n.Volatile || !attrValuesEqual(o.Value, n.Value):
				d.writeAttribute(n, id, to)
			}
			i++
			j++
		case attrBefore(o, n):
			d.removeAttribute(o, id, to)
			i++
		default:
			d.writeAttribute(n, id, to)
			j++
		}
	}
	for ; i < len(old); i++ {
		d.removeAttribute(&old[i], id, to)
	}
	for ; j < len(new); j++ {
		d.writeAttribute(&new[j], id, to)
	}
}

func (d *Dom) removeAttribute(a *Attribute, id ElementID, to Sink) {
	if a.IsListener() {
		to.RemoveEventListener(a.EventName(), id, true)
		return
	}
	to.RemoveAttribute(a.Name, a.Namespace, id)
}

func attrBefore(a, b *Attribute) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Namespace < b.Namespace
}

func attrValuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// diffDynamicNode reconciles one dynamic slot. Same-kind pairs diff in
// place; any kind change replaces the slot's host nodes wholesale.
func (d *Dom) diffDynamicNode(old DynamicNode, newOwner *VNode, m *vnodeMount, idx int, to Sink) {
	switch o := old.(type) {
	case *VText:
		if n, ok := newOwner.DynamicNodes[idx].(*VText); ok {
			if to != nil && o.Value != n.Value {
				to.SetText(n.Value, ElementID(m.mountedNodes[idx]))
			}
			return
		}
	case *VPlaceholder:
		if _, ok := newOwner.DynamicNodes[idx].(*VPlaceholder); ok {
			return
		}
	case Fragment:
		if n, ok := newOwner.DynamicNodes[idx].(Fragment); ok {
			parent := &elementRef{mount: newOwner.mount, path: m.template.NodePaths[idx]}
			d.diffChildren(o, n, parent, to)
			return
		}
	case *VComponent:
		if n, ok := newOwner.DynamicNodes[idx].(*VComponent); ok {
			d.diffComponent(m, idx, o, n, to)
			return
		}
	}
	d.replaceDynamicNode(m, idx, old, newOwner, to)
}

// diffComponent reconciles a component slot across renders. A different
// component function replaces the instance outright. Equal props short out
// with zero work; otherwise the scope re-runs with the new props and its
// two trees are diffed.
func (d *Dom) diffComponent(m *vnodeMount, idx int, old, new *VComponent, to Sink) {
	if old.fnID != new.fnID {
		d.replaceDynamicNode(m, idx, old, m.node, to)
		return
	}
	s := d.scopes.get(ScopeID(m.mountedNodes[idx]))
	if s == nil {
		panicf("component slot %d of %s has no live scope", idx, m.template.Name)
	}
	if propsEqual(new.Memo, s.props, new.Props) {
		return
	}
	s.props = new.Props
	s.memo = new.Memo
	d.diffScope(s, to)
}

// lightDiffTemplates handles a template swap. When both templates are bare
// component roots over the same functions pairwise, the component instances
// survive with new props instead of remounting. This keeps state alive when
// one branch of a conditional renders the same component as the other.
// Anything else is a full replace.
func (d *Dom) lightDiffTemplates(old, new *VNode, to Sink) {
	pairs := matchingComponents(old, new)
	if pairs == nil {
		d.replaceNode(old, new, to)
		return
	}
	m := d.mounts.get(old.mount)
	new.mount = old.mount
	m.node = new

	// Re-template the mount: carry each scope over into the slot layout of
	// the new template before diffing.
	tpl := d.currentTemplate(new)
	remapped := make([]uint32, len(tpl.NodePaths))
	for i := range remapped {
		remapped[i] = slotUnassigned
	}
	for _, p := range pairs {
		remapped[p.newSlot] = m.mountedNodes[p.oldSlot]
	}
	m.template = tpl
	m.mountedNodes = remapped
	m.rootIDs = make([]ElementID, len(tpl.Roots))
	m.mountedAttrs = make([]ElementID, len(tpl.AttrPaths))

	for _, p := range pairs {
		d.diffComponent(m, p.newSlot, p.old, p.new, to)
	}
}

type componentPair struct {
	oldSlot, newSlot int
	old, new         *VComponent
}

// matchingComponents pairs up the root components of two templates, or
// returns nil when the roots are not an identical component list.
func matchingComponents(old, new *VNode) []componentPair {
	ot, nt := old.Template, new.Template
	if len(ot.Roots) != len(nt.Roots) {
		return nil
	}
	pairs := make([]componentPair, 0, len(ot.Roots))
	for i := range ot.Roots {
		if ot.Roots[i].Kind != TplDynamic || nt.Roots[i].Kind != TplDynamic {
			return nil
		}
		oc, ok1 := old.DynamicNodes[ot.Roots[i].Index].(*VComponent)
		nc, ok2 := new.DynamicNodes[nt.Roots[i].Index].(*VComponent)
		if !ok1 || !ok2 || oc.fnID != nc.fnID {
			return nil
		}
		pairs = append(pairs, componentPair{
			oldSlot: ot.Roots[i].Index,
			newSlot: nt.Roots[i].Index,
			old:     oc,
			new:     nc,
		})
	}
	return pairs
}

// replaceNode tears down old and builds new in its place. The new tree is
// created first so its host nodes sit on the stack for the final
// ReplaceWith against old's last root.
func (d *Dom) replaceNode(old, new *VNode, to Sink) {
	parent := d.mounts.get(old.mount).parent
	count := d.createNode(new, parent, to)
	d.removeNode(old, to, count)
}

// replaceDynamicNode swaps the host nodes of one dynamic slot for freshly
// created content of a different kind. Old anchors are captured before the
// slot's bookkeeping is overwritten by the create.
func (d *Dom) replaceDynamicNode(m *vnodeMount, idx int, old DynamicNode, newOwner *VNode, to Sink) {
	var removeOld func(count int)
	switch o := old.(type) {
	case *VText, *VPlaceholder:
		oldSlot := m.mountedNodes[idx]
		removeOld = func(count int) {
			if oldSlot == slotUnassigned {
				return
			}
			id := ElementID(oldSlot)
			if to != nil {
				to.ReplaceWith(id, count)
			}
			d.elements.reclaim(id)
		}
	case Fragment:
		removeOld = func(count int) {
			d.removeNodes(o, to, count)
		}
	case *VComponent:
		sid := ScopeID(m.mountedNodes[idx])
		// Clear the slot so the create mounts a fresh scope instead of
		// adopting the one being replaced.
		m.mountedNodes[idx] = slotUnassigned
		removeOld = func(count int) {
			d.removeComponent(sid, to, count)
		}
	default:
		panicf("unknown dynamic node kind %T", old)
	}
	count := d.createDetachedDynamicNode(newOwner, m, idx, to)
	removeOld(count)
}
