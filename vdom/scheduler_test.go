package vdom_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	. "github.com/gowade/loom/vdom"

	"github.com/stretchr/testify/suite"
)

type SchedulerTestSuite struct {
	suite.Suite
}

var (
	renderOrder  []string
	setParentGen func(int)
	setChildGen  func(int)
)

type ordChildProps struct {
	Gen int
}

func ordParent(c *Ctx) *VNode {
	gen, set := UseState(c, 0)
	setParentGen = set
	renderOrder = append(renderOrder, "parent")
	return wrapTpl.Render([]DynamicNode{Component("child", ordChild, ordChildProps{Gen: gen})}, nil)
}

func ordChild(c *Ctx) *VNode {
	p := c.Props().(ordChildProps)
	n, set := UseState(c, 0)
	setChildGen = set
	renderOrder = append(renderOrder, "child")
	return labelTpl.Render([]DynamicNode{Text(strconv.Itoa(p.Gen*100 + n))}, nil)
}

func (s *SchedulerTestSuite) TestAncestorsRenderFirst() {
	renderOrder = nil
	d := New("parent", ordParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	renderOrder = nil

	// Dirty the child before the parent; height order must still put the
	// parent first so the child sees fresh props.
	setChildGen(1)
	setParentGen(1)

	ml := NewMutationList()
	d.RenderImmediate(ml)

	s.Equal(renderOrder[0], "parent")
	s.Equal(renderOrder[1], "child")
	s.Equal(ml.Edits[len(ml.Edits)-1].Value, "101")
}

func (s *SchedulerTestSuite) TestDirtySetDeduplicates() {
	renderOrder = nil
	d := New("parent", ordParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	renderOrder = nil

	setParentGen(1)
	setParentGen(2)
	setParentGen(3)
	d.RenderImmediate(NewMutationList())

	s.Equal(renderOrder[0], "parent")
	s.Equal(countString(renderOrder, "parent"), 1)
}

func countString(xs []string, want string) int {
	n := 0
	for _, x := range xs {
		if x == want {
			n++
		}
	}
	return n
}

var scheduleHandle func()

func schedComp(c *Ctx) *VNode {
	scheduleHandle = c.Schedule()
	return plainTextTpl.Render([]DynamicNode{Text("x")}, nil)
}

func (s *SchedulerTestSuite) TestWaitForWorkWakesOnSchedule() {
	d := New("sched", schedComp, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.NotNil(scheduleHandle)

	// A wake from a foreign goroutine must flow through the task channel.
	go scheduleHandle()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(d.WaitForWork(ctx))
	s.True(d.HasWork())
}

func (s *SchedulerTestSuite) TestWaitForWorkHonorsCancellation() {
	d := New("counter", counter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Equal(d.WaitForWork(ctx), context.DeadlineExceeded)
}

func (s *SchedulerTestSuite) TestDeliveredEventWakesLoop() {
	clickCount = 0
	d := New("button", button, nil)
	defer d.Close()

	ml := NewMutationList()
	d.Rebuild(ml)
	listen := findOp(ml, OpNewEventListener)
	s.NotNil(listen)

	go d.DeliverEvent(&Event{Name: "click", Target: listen.ID, Bubbles: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(d.WaitForWork(ctx))
	s.Equal(clickCount, 1)

	ml = NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(opsOf(ml), []Op{OpSetText})
}

func (s *SchedulerTestSuite) TestTemplatePatch() {
	d := New("counter", counter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// Same name and slot shape, different skeleton.
	patched := NewTemplate("test.PlainText",
		El("strong", nil, DynText(0)),
	)
	go d.ApplyTemplatePatch(patched)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(d.WaitForWork(ctx))

	ml := NewMutationList()
	d.RenderImmediate(ml)

	// The patched skeleton re-registers and replaces the mounted tree.
	s.NotNil(findTemplate(ml, "test.PlainText"))
	s.Equal(countOp(ml, OpLoadTemplate), 1)
	s.Equal(countOp(ml, OpReplaceWith), 1)
}

func (s *SchedulerTestSuite) TestIncompatiblePatchIgnored() {
	d := New("counter", counter, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// Two text slots where the live template has one.
	bad := NewTemplate("test.PlainText",
		El("p", nil, DynText(0), DynText(1)),
	)
	go d.ApplyTemplatePatch(bad)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(d.WaitForWork(ctx))

	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(ml.Len(), 0)
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}
