package vdom

import (
	"reflect"

	"github.com/golang/glog"
)

// SuspenseProps configures a suspense boundary. Content is the real
// subtree; while any future started under it is unresolved, Fallback shows
// in its place. ErrorView, when set, takes over if any of those futures
// fail.
type SuspenseProps struct {
	Content   func() *VNode
	Fallback  func() *VNode
	ErrorView func(errs []error) *VNode
}

// Suspense builds a boundary component around asynchronous content.
func Suspense(props SuspenseProps) *VComponent {
	return Component("Suspense", suspenseBody, props)
}

var suspenseFnID uintptr

func init() {
	suspenseFnID = reflect.ValueOf(ComponentFunc(suspenseBody)).Pointer()
}

type suspensePhase int

const (
	suspenseInitial suspensePhase = iota
	suspensePending
	suspenseResolved
)

// suspenseBody drives the boundary. The content tree is first mounted
// against a nil sink so its components run, start their futures and retain
// state without anything reaching the backend. While futures are pending
// the boundary shows its fallback and keeps the offscreen tree current; on
// resolution the retained tree itself becomes the boundary's output, and
// re-creating an already-mounted tree emits the full batch that swaps the
// fallback out.
func suspenseBody(c *Ctx) *VNode {
	props, ok := c.Props().(SuspenseProps)
	if !ok || props.Content == nil {
		return renderOptional(props.Fallback)
	}
	s, d := c.scope, c.dom
	content := props.Content()
	phase := UseRef(c, suspenseInitial)

	switch *phase {
	case suspenseInitial:
		wasOffscreen := s.offscreen
		s.offscreen = true
		d.createNode(content, nil, nil)
		s.offscreen = wasOffscreen
		if s.pending == 0 && len(s.errs) == 0 {
			*phase = suspenseResolved
			return content
		}
		s.background = content
		*phase = suspensePending
		return renderOptional(props.Fallback)

	case suspensePending:
		// Keep the offscreen tree tracking the latest props.
		d.diffNode(s.background, content, nil)
		s.background = content
		if s.pending > 0 {
			return renderOptional(props.Fallback)
		}
		bg := s.background
		s.background = nil
		*phase = suspenseResolved
		if len(s.errs) > 0 {
			glog.Errorf("suspense boundary %d resolved with %d error(s): %v", s.id, len(s.errs), s.errs)
			if props.ErrorView != nil {
				d.removeNodeInner(bg, nil, true, -1)
				return props.ErrorView(s.errs)
			}
		}
		d.clearOffscreen(bg)
		return bg

	default:
		if len(s.errs) > 0 && props.ErrorView != nil {
			return props.ErrorView(s.errs)
		}
		return content
	}
}

func renderOptional(fn func() *VNode) *VNode {
	if fn == nil {
		return nil
	}
	return fn()
}

// suspendScope records one unresolved future. The nearest enclosing
// boundary, the suspending scope included, holds its fallback until the
// count drains.
func (d *Dom) suspendScope(s *Scope) {
	s.suspended++
	if b := d.nearestBoundary(s); b != nil {
		b.pending++
		glog.V(2).Infof("scope %d suspended under boundary %d (%d pending)", s.id, b.id, b.pending)
	}
}

// resumeScope retires one future, recording its error with the boundary if
// it failed, and wakes both the scope and the boundary.
func (d *Dom) resumeScope(s *Scope, err error) {
	if s.suspended > 0 {
		s.suspended--
	}
	if b := d.nearestBoundary(s); b != nil {
		b.pending--
		if err != nil {
			b.errs = append(b.errs, err)
		}
		d.markDirty(b.id)
	}
	d.markDirty(s.id)
}

// nearestBoundary walks toward the root looking for a suspense boundary,
// starting at the scope itself.
func (d *Dom) nearestBoundary(s *Scope) *Scope {
	for cur := s; cur != nil; {
		if cur.boundary {
			return cur
		}
		if !cur.hasParent {
			return nil
		}
		cur = d.scopes.get(cur.parent)
	}
	return nil
}

// clearOffscreen flips every scope in a revealed background tree back to
// onscreen rendering.
func (d *Dom) clearOffscreen(n *VNode) {
	if n == nil || n.mount == mountNone {
		return
	}
	m := d.mounts.get(n.mount)
	for idx, dyn := range n.DynamicNodes {
		switch node := dyn.(type) {
		case Fragment:
			for _, child := range node {
				d.clearOffscreen(child)
			}
		case *VComponent:
			if m.mountedNodes[idx] == slotUnassigned {
				continue
			}
			s := d.scopes.get(ScopeID(m.mountedNodes[idx]))
			if s == nil {
				continue
			}
			s.offscreen = false
			d.clearOffscreen(s.last)
		}
	}
}
