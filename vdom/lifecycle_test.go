package vdom_test

import (
	"context"
	"testing"

	. "github.com/gowade/loom/vdom"

	"github.com/stretchr/testify/suite"
)

type LifecycleTestSuite struct {
	suite.Suite
}

var (
	teardownLog []string
	setShowTree func(bool)
)

func teardownOuter(c *Ctx) *VNode {
	show, set := UseState(c, true)
	setShowTree = set
	slot := DynamicNode(&VPlaceholder{})
	if show {
		slot = Component("mid", teardownMid, nil)
	}
	return wrapTpl.Render([]DynamicNode{slot}, nil)
}

func teardownMid(c *Ctx) *VNode {
	c.OnCleanup(func() { teardownLog = append(teardownLog, "mid-first") })
	c.OnCleanup(func() { teardownLog = append(teardownLog, "mid-second") })
	return wrapTpl.Render([]DynamicNode{Component("leaf", teardownLeaf, nil)}, nil)
}

func teardownLeaf(c *Ctx) *VNode {
	c.OnCleanup(func() { teardownLog = append(teardownLog, "leaf") })
	return labelTpl.Render([]DynamicNode{Text("leaf")}, nil)
}

func (s *LifecycleTestSuite) TestCleanupRunsLeafFirst() {
	teardownLog = nil
	d := New("outer", teardownOuter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.Equal(d.LiveScopes(), 3)

	setShowTree(false)
	d.RenderImmediate(NewMutationList())

	// The leaf's cleanup fires before its parent's; within one scope,
	// cleanups run in reverse registration order.
	s.Equal(teardownLog, []string{"leaf", "mid-second", "mid-first"})
	s.Equal(d.LiveScopes(), 1)
}

var leafCtx context.Context

func ctxLeaf(c *Ctx) *VNode {
	leafCtx = c.Context()
	return labelTpl.Render([]DynamicNode{Text("leaf")}, nil)
}

var setShowCtxLeaf func(bool)

func ctxOuter(c *Ctx) *VNode {
	show, set := UseState(c, true)
	setShowCtxLeaf = set
	slot := DynamicNode(&VPlaceholder{})
	if show {
		slot = Component("leaf", ctxLeaf, nil)
	}
	return wrapTpl.Render([]DynamicNode{slot}, nil)
}

func (s *LifecycleTestSuite) TestContextCancelledOnUnmount() {
	d := New("outer", ctxOuter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.NoError(leafCtx.Err())

	setShowCtxLeaf(false)
	d.RenderImmediate(NewMutationList())
	s.Equal(leafCtx.Err(), context.Canceled)
}

func (s *LifecycleTestSuite) TestElementReclamation() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	full := d.LiveElements()

	setListKeys(nil)
	d.RenderImmediate(NewMutationList())
	cleared := d.LiveElements()
	s.True(cleared < full)

	// Refilling reuses reclaimed ids instead of growing the arena.
	setListKeys([]string{"1", "2", "3"})
	d.RenderImmediate(NewMutationList())
	s.Equal(d.LiveElements(), full)
}

func (s *LifecycleTestSuite) TestScopeHeights() {
	d := New("outer", teardownOuter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	root := d.GetScope(d.RootScope())
	s.Equal(root.Height(), uint32(0))
	s.Equal(d.GetScope(1).Height(), uint32(1))
	s.Equal(d.GetScope(2).Height(), uint32(2))
}

var setShowButton func(bool)

func buttonHost(c *Ctx) *VNode {
	show, set := UseState(c, true)
	setShowButton = set
	slot := DynamicNode(&VPlaceholder{})
	if show {
		slot = Component("btn", button, nil)
	}
	return wrapTpl.Render([]DynamicNode{slot}, nil)
}

func (s *LifecycleTestSuite) TestUnmountDeregistersListeners() {
	d := New("outer", buttonHost, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	setShowButton(false)
	ml := NewMutationList()
	d.RenderImmediate(ml)

	// The listener is deregistered before the node carrying it goes away.
	s.Equal(opsOf(ml), []Op{OpCreatePlaceholder, OpRemoveEventListener, OpReplaceWith})
	rm := ml.Edits[1]
	s.Equal(rm.Name, "click")
	s.True(rm.Bubbles)
}

func TestLifecycle(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}
