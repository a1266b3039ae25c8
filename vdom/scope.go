package vdom

import (
	"context"
	"reflect"

	"github.com/golang/glog"
)

// Scope is one mounted occurrence of a component function: its identity,
// position in the tree, retained props and hook state, and the node tree it
// rendered last.
type Scope struct {
	id        ScopeID
	parent    ScopeID
	hasParent bool

	// height orders re-renders ancestor-first: parents re-render before
	// any child that consumes their props.
	height uint32

	name string
	fn   ComponentFunc
	fnID uintptr

	props any
	memo  func(prev, next any) bool

	last *VNode

	hooks    []any
	hookIdx  int
	cleanups []func()

	ctx    context.Context
	cancel context.CancelFunc

	// Set once the scope has been torn down; late task completions for a
	// dead scope are dropped.
	dead bool

	// Suspense bookkeeping. suspended counts this scope's own unresolved
	// futures. Boundary scopes additionally track the unresolved count and
	// errors of their whole subtree, and retain the offscreen content tree
	// while it is pending.
	suspended  int
	boundary   bool
	pending    int
	errs       []error
	background *VNode
	// offscreen scopes belong to a pending boundary's background tree:
	// they are diffed with a nil sink so nothing visible changes.
	offscreen bool
}

// ID returns the scope's identity.
func (s *Scope) ID() ScopeID { return s.id }

// Height returns the scope's depth in the component tree.
func (s *Scope) Height() uint32 { return s.height }

type scopeArena struct {
	slots []*Scope
	free  []ScopeID
}

func newScopeArena() *scopeArena {
	return &scopeArena{}
}

func (a *scopeArena) insert(s *Scope) ScopeID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[id] = s
		s.id = id
		return id
	}
	a.slots = append(a.slots, s)
	s.id = ScopeID(len(a.slots) - 1)
	return s.id
}

func (a *scopeArena) get(id ScopeID) *Scope {
	if int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id]
}

func (a *scopeArena) remove(id ScopeID) {
	if a.get(id) == nil {
		panicf("remove of invalid scope id %d", id)
	}
	a.slots[id] = nil
	a.free = append(a.free, id)
}

func (a *scopeArena) liveCount() int {
	n := 0
	for _, s := range a.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// newScope mounts a component instance. The parent relationship is an id
// back-reference only; destroying a parent tears children down through the
// rendered tree, never through this link.
func (d *Dom) newScope(c *VComponent, parent *Scope) *Scope {
	s := &Scope{
		name:  c.Name,
		fn:    c.fn,
		fnID:  c.fnID,
		props: c.Props,
		memo:  c.Memo,
	}
	if parent != nil {
		s.parent = parent.id
		s.hasParent = true
		s.height = parent.height + 1
		s.offscreen = parent.offscreen
	}
	s.ctx, s.cancel = context.WithCancel(d.baseCtx)
	s.boundary = c.fnID == suspenseFnID
	d.scopes.insert(s)
	glog.V(2).Infof("mounted scope %d (%s) at height %d", s.id, s.name, s.height)
	return s
}

// runScope re-invokes the component function under the scope's identity.
// A panic inside the component is recovered and rendered as a placeholder;
// the scope is retried on its next trigger. A nil return is a placeholder.
func (d *Dom) runScope(s *Scope) (node *VNode) {
	s.hookIdx = 0
	d.scopeStack = append(d.scopeStack, s.id)
	defer func() {
		d.scopeStack = d.scopeStack[:len(d.scopeStack)-1]
		if r := recover(); r != nil {
			glog.Errorf("component %s (scope %d) panicked during render: %v", s.name, s.id, r)
			node = placeholderNode()
		}
		if node == nil {
			node = placeholderNode()
		}
	}()
	node = s.fn(&Ctx{dom: d, scope: s})
	return node
}

// currentScope is the scope whose render or diff is in progress.
func (d *Dom) currentScope() *Scope {
	if len(d.scopeStack) == 0 {
		return nil
	}
	return d.scopes.get(d.scopeStack[len(d.scopeStack)-1])
}

// dropScope destroys a scope's state after its rendered tree has been
// removed: cleanups run in reverse registration order, in-flight futures
// are cancelled, and the id is reclaimed.
func (d *Dom) dropScope(s *Scope) {
	s.dead = true
	s.cancel()
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
	s.hooks = nil
	d.scopes.remove(s.id)
	glog.V(2).Infof("dropped scope %d (%s)", s.id, s.name)
}

// propsEqual decides memoization: a caller-supplied comparator wins,
// otherwise structural equality.
func propsEqual(memo func(prev, next any) bool, prev, next any) bool {
	if memo != nil {
		return memo(prev, next)
	}
	return reflect.DeepEqual(prev, next)
}

// Ctx is handed to a component function for the duration of one render.
type Ctx struct {
	dom   *Dom
	scope *Scope
}

// Props returns the props the component was rendered with.
func (c *Ctx) Props() any { return c.scope.props }

// ScopeID identifies the component instance across renders.
func (c *Ctx) ScopeID() ScopeID { return c.scope.id }

// Context is cancelled when the component is unmounted. Futures spawned for
// this scope must respect it.
func (c *Ctx) Context() context.Context { return c.scope.ctx }

// Schedule returns a wake function that marks this scope dirty. Unlike state
// setters it is safe to call from any goroutine.
func (c *Ctx) Schedule() func() {
	d, s := c.dom, c.scope
	return func() {
		d.tasks <- taskDone{scope: s, apply: func() { d.markDirty(s.id) }}
	}
}

// OnCleanup registers fn to run when the component is unmounted. Cleanups
// run child-scope-first, in reverse registration order within a scope.
func (c *Ctx) OnCleanup(fn func()) {
	c.scope.cleanups = append(c.scope.cleanups, fn)
}
