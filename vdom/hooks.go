package vdom

import (
	"context"

	"github.com/golang/glog"
)

// nextHook returns the hook slot for the current render position, creating
// it on first render. Hook order must be stable across renders of a scope;
// a type mismatch means the component body called hooks conditionally, which
// is a programmer error.
func nextHook[T any](c *Ctx, init func() *T) *T {
	s := c.scope
	if s.hookIdx == len(s.hooks) {
		s.hooks = append(s.hooks, init())
	}
	h, ok := s.hooks[s.hookIdx].(*T)
	if !ok {
		panicf("scope %d (%s): hook %d changed type between renders", s.id, s.name, s.hookIdx)
	}
	s.hookIdx++
	return h
}

type stateHook[T any] struct {
	value T
}

// UseState retains a value across renders and returns it with a setter.
// The setter marks the scope dirty; it must be called from the update loop
// (an event handler or task application), never from a foreign goroutine.
func UseState[T any](c *Ctx, initial T) (T, func(T)) {
	h := nextHook(c, func() *stateHook[T] { return &stateHook[T]{value: initial} })
	d, s := c.dom, c.scope
	set := func(v T) {
		h.value = v
		d.markDirty(s.id)
	}
	return h.value, set
}

// UseRef retains a mutable value across renders without triggering renders
// on change.
func UseRef[T any](c *Ctx, initial T) *T {
	h := nextHook(c, func() *T {
		v := initial
		return &v
	})
	return h
}

// Future is the handle to an async computation started by UseFuture.
type Future[T any] struct {
	done  bool
	value T
	err   error
}

// Done reports whether the computation has resolved (with value or error).
func (f *Future[T]) Done() bool { return f.done }

// Value returns the resolved value; zero until Done.
func (f *Future[T]) Value() T { return f.value }

// Err returns the resolution error, if any.
func (f *Future[T]) Err() error { return f.err }

// UseFuture starts fn on its own goroutine on first render and suspends
// the calling scope until it resolves. The scheduler re-renders just this
// scope on completion. If the component is unmounted first the future's
// context is cancelled and its result is dropped.
func UseFuture[T any](c *Ctx, fn func(ctx context.Context) (T, error)) *Future[T] {
	d, s := c.dom, c.scope
	h := nextHook(c, func() *Future[T] {
		f := &Future[T]{}
		d.suspendScope(s)
		go func() {
			v, err := fn(s.ctx)
			if s.ctx.Err() != nil {
				glog.V(2).Infof("scope %d: dropping future result after cancellation", s.id)
				return
			}
			d.tasks <- taskDone{scope: s, apply: func() {
				f.value, f.err, f.done = v, err, true
				d.resumeScope(s, err)
			}}
		}()
		return f
	})
	return h
}
