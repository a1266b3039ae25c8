// Package vdom is a retained-mode UI core: components render into virtual
// node trees, successive renders are diffed, and the differences come out as
// an ordered log of primitive mutations a backend replays against the real
// UI surface.
package vdom

import (
	"context"
	"sort"

	"github.com/golang/glog"
)

// Dom owns every live component instance, the element and mount tables, and
// the dirty set. All of its state belongs to the single goroutine driving
// the update loop; other goroutines interact only through channels
// (DeliverEvent, ApplyTemplatePatch, task completion).
type Dom struct {
	scopes   *scopeArena
	elements *elementArena
	mounts   *mountArena

	// Latest template per call-site name. Hot-reload patches land here and
	// win over the template compiled into a component.
	templates  map[string]*Template
	registered map[string]bool

	dirty []scopeOrder

	events  chan *Event
	tasks   chan taskDone
	patches chan *Template

	scopeStack []ScopeID

	baseCtx    context.Context
	baseCancel context.CancelFunc

	root ScopeID
}

type scopeOrder struct {
	height uint32
	id     ScopeID
}

type taskDone struct {
	scope *Scope
	apply func()
}

// New builds a runtime around a root component. The Dom is inert until
// Rebuild produces the initial mutation batch.
func New(name string, fn ComponentFunc, props any) *Dom {
	d := &Dom{
		scopes:     newScopeArena(),
		elements:   newElementArena(),
		mounts:     newMountArena(),
		templates:  map[string]*Template{},
		registered: map[string]bool{},
		events:     make(chan *Event, 64),
		tasks:      make(chan taskDone, 64),
		patches:    make(chan *Template, 8),
	}
	d.baseCtx, d.baseCancel = context.WithCancel(context.Background())
	root := d.newScope(Component(name, fn, props), nil)
	d.root = root.id
	return d
}

// Close cancels every outstanding future and shuts the runtime down.
func (d *Dom) Close() {
	d.baseCancel()
}

// RootScope returns the root component's scope id.
func (d *Dom) RootScope() ScopeID { return d.root }

// GetScope looks up a live scope.
func (d *Dom) GetScope(id ScopeID) *Scope { return d.scopes.get(id) }

// LiveElements reports the number of allocated element ids, root included.
// Useful for leak assertions in tests and devtools.
func (d *Dom) LiveElements() int { return d.elements.liveCount() }

// LiveScopes reports the number of mounted component instances.
func (d *Dom) LiveScopes() int { return d.scopes.liveCount() }

// Rebuild runs the root component once and emits the mutations that build
// the entire initial tree under the root container (element id 0).
func (d *Dom) Rebuild(to Sink) {
	s := d.scopes.get(d.root)
	s.last = d.runScope(s)
	m := d.createNode(s.last, nil, to)
	if to != nil {
		to.AppendChildren(0, m)
	}
}

// markDirty queues a scope for re-render. Ordering is ancestor-first by
// height so a parent's prop changes are visible before its children run.
func (d *Dom) markDirty(id ScopeID) {
	s := d.scopes.get(id)
	if s == nil {
		return
	}
	entry := scopeOrder{height: s.height, id: id}
	i := sort.Search(len(d.dirty), func(i int) bool {
		if d.dirty[i].height != entry.height {
			return d.dirty[i].height >= entry.height
		}
		return d.dirty[i].id >= entry.id
	})
	if i < len(d.dirty) && d.dirty[i] == entry {
		return
	}
	d.dirty = append(d.dirty, scopeOrder{})
	copy(d.dirty[i+1:], d.dirty[i:])
	d.dirty[i] = entry
}

// MarkDirty schedules a re-render of the given scope. Loop-thread only;
// foreign goroutines use Ctx.Schedule.
func (d *Dom) MarkDirty(id ScopeID) { d.markDirty(id) }

// HasWork reports whether any scope is waiting to re-render.
func (d *Dom) HasWork() bool { return len(d.dirty) > 0 }

// RenderImmediate drains the dirty set, re-rendering and diffing each scope
// in ancestor-first order and emitting the resulting mutations into to.
// Scopes that were unmounted by an ancestor's re-render are skipped.
func (d *Dom) RenderImmediate(to Sink) {
	for len(d.dirty) > 0 {
		next := d.dirty[0]
		d.dirty = d.dirty[1:]
		s := d.scopes.get(next.id)
		if s == nil || s.height != next.height {
			continue
		}
		d.diffScope(s, to)
	}
}

// diffScope re-runs one component and reconciles its new tree against the
// previous one. Offscreen scopes (under a pending suspense boundary) are
// diffed with a nil sink: state advances, nothing visible changes.
func (d *Dom) diffScope(s *Scope, to Sink) {
	if s.offscreen {
		to = nil
	}
	old := s.last
	next := d.runScope(s)
	d.scopeStack = append(d.scopeStack, s.id)
	d.diffNode(old, next, to)
	d.scopeStack = d.scopeStack[:len(d.scopeStack)-1]
	s.last = next
}

// WaitForWork blocks until something made a scope dirty: an input event with
// a matching listener, a completed future, a schedule wake, or a template
// patch. Returns ctx.Err on cancellation.
func (d *Dom) WaitForWork(ctx context.Context) error {
	for {
		if len(d.dirty) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			d.HandleEvent(ev)
		case t := <-d.tasks:
			d.applyTask(t)
		case tpl := <-d.patches:
			d.applyTemplatePatch(tpl)
		}
	}
}

func (d *Dom) applyTask(t taskDone) {
	if t.scope != nil && t.scope.dead {
		glog.V(2).Infof("ignoring completion for dead scope %d", t.scope.id)
		return
	}
	t.apply()
}

// DeliverEvent enqueues a backend event for the update loop. Safe to call
// from any goroutine.
func (d *Dom) DeliverEvent(ev *Event) {
	d.events <- ev
}

// DeliverEventContext is DeliverEvent with a bail-out: when the queue is
// full and ctx ends before space frees up, the event is dropped and ctx.Err
// is returned. Backend pumps use this so shutdown never strands them.
func (d *Dom) DeliverEventContext(ctx context.Context, ev *Event) error {
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyTemplatePatch swaps in a new version of a template (hot reload,
// devtools). Safe to call from any goroutine; the patch is applied between
// render passes and flows out through the ordinary mutation vocabulary.
func (d *Dom) ApplyTemplatePatch(t *Template) {
	d.patches <- t
}

// TryApplyTemplatePatch is ApplyTemplatePatch without blocking: it reports
// false when the patch queue is full, which means the runtime stopped
// draining it. Fan-out patchers use this so one stalled session cannot hold
// up the rest.
func (d *Dom) TryApplyTemplatePatch(t *Template) bool {
	select {
	case d.patches <- t:
		return true
	default:
		return false
	}
}

func (d *Dom) applyTemplatePatch(t *Template) {
	d.templates[t.Name] = t
	// The next batch must carry the new skeleton.
	delete(d.registered, t.Name)
	for _, m := range d.mounts.slots {
		if m == nil || m.node.Template.Name != t.Name {
			continue
		}
		d.markDirty(m.owner)
	}
	glog.V(1).Infof("applied template patch for %q", t.Name)
}

// currentTemplate resolves the template to instantiate for a node: the
// hot-reload override when one is live and structurally compatible,
// otherwise the template the render was built with.
func (d *Dom) currentTemplate(n *VNode) *Template {
	latest, ok := d.templates[n.Template.Name]
	if !ok || latest == n.Template {
		return n.Template
	}
	if len(latest.NodePaths) != len(n.Template.NodePaths) ||
		len(latest.AttrPaths) != len(n.Template.AttrPaths) {
		glog.Errorf("template patch for %q changes dynamic slot shape; ignoring", n.Template.Name)
		return n.Template
	}
	return latest
}

func (d *Dom) registerTemplate(t *Template, to Sink) {
	if to == nil || d.registered[t.Name] {
		return
	}
	d.registered[t.Name] = true
	if d.templates[t.Name] == nil {
		d.templates[t.Name] = t
	}
	to.RegisterTemplate(t)
}
