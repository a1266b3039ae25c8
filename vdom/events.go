package vdom

import (
	"sort"

	"github.com/golang/glog"
)

// Event is one input occurrence delivered by a backend, addressed to the
// element id the backend resolved it against.
type Event struct {
	Name    string
	Target  ElementID
	Bubbles bool
	Data    any

	stopped bool
}

// StopPropagation prevents listeners further up the tree from running.
func (e *Event) StopPropagation() { e.stopped = true }

// HandleEvent dispatches an event to the listeners along the target's
// ancestor chain, innermost first. Handlers run on the update loop, so they
// may set state and mark scopes dirty freely. Loop-thread only; backends
// hand events over with DeliverEvent.
func (d *Dom) HandleEvent(ev *Event) {
	ref := d.elements.ref(ev.Target)
	if ref == nil {
		// The element was unmounted while the event was in flight.
		glog.V(1).Infof("dropping %q event for stale element %d", ev.Name, ev.Target)
		return
	}
	if !ev.Bubbles {
		d.dispatchAt(ev, ref, true)
		return
	}
	for ref != nil && !ev.stopped {
		m := d.dispatchAt(ev, ref, false)
		if m == nil {
			return
		}
		ref = m.parent
	}
}

// dispatchAt runs the listeners of one mounted template that apply to the
// target path: the exact element for non-bubbling events, every enclosing
// element for bubbling ones. Returns the mount so the caller can continue
// up the tree.
func (d *Dom) dispatchAt(ev *Event, ref *elementRef, exact bool) *vnodeMount {
	m := d.mounts.get(ref.mount)
	if m == nil {
		return nil
	}
	node := m.node
	tpl := m.template

	type hit struct {
		slot int
		path []uint8
	}
	var hits []hit
	for idx, path := range tpl.AttrPaths {
		if exact && !pathEqual(path, ref.path) {
			continue
		}
		if !exact && !pathEncloses(path, ref.path) {
			continue
		}
		hits = append(hits, hit{slot: idx, path: path})
	}
	// Innermost listeners fire first.
	sort.SliceStable(hits, func(i, j int) bool { return len(hits[i].path) > len(hits[j].path) })

	for _, h := range hits {
		for i := range node.DynamicAttrs[h.slot] {
			a := &node.DynamicAttrs[h.slot][i]
			if !a.IsListener() || a.EventName() != ev.Name {
				continue
			}
			a.Value.(Handler)(ev)
			if ev.stopped {
				return m
			}
		}
	}
	return m
}

// pathEncloses reports whether an element at path p contains the element at
// target, itself included. Both paths are within the same template.
func pathEncloses(p, target []uint8) bool {
	if len(p) > len(target) {
		return false
	}
	for i := range p {
		if p[i] != target[i] {
			return false
		}
	}
	return true
}
