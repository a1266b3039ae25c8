package vdom_test

import (
	"strconv"
	"testing"

	. "github.com/gowade/loom/vdom"

	"github.com/stretchr/testify/suite"
)

type ComponentTestSuite struct {
	suite.Suite
}

var (
	wrapTpl = NewTemplate("test.Wrap",
		El("div", nil, DynNode(0)),
	)
	labelTpl = NewTemplate("test.Label",
		El("span", nil, DynText(0)),
	)
	// Two single-component-root templates standing in for the branches of
	// a conditional render.
	branchATpl = NewTemplate("test.BranchA", DynNode(0))
	branchBTpl = NewTemplate("test.BranchB", DynNode(0))
)

type labelProps struct {
	Text string
}

var labelRuns int

func label(c *Ctx) *VNode {
	labelRuns++
	p := c.Props().(labelProps)
	return labelTpl.Render([]DynamicNode{Text(p.Text)}, nil)
}

var setMemoGen func(int)

func memoParent(c *Ctx) *VNode {
	gen, set := UseState(c, 0)
	setMemoGen = set
	text := "stable"
	if gen >= 2 {
		text = "changed"
	}
	return wrapTpl.Render([]DynamicNode{Component("label", label, labelProps{Text: text})}, nil)
}

func (s *ComponentTestSuite) TestMemoSkipsEqualProps() {
	labelRuns = 0
	d := New("parent", memoParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.Equal(labelRuns, 1)

	// Parent re-renders, child props unchanged: the child must not run
	// and nothing reaches the backend.
	setMemoGen(1)
	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(labelRuns, 1)
	s.Equal(ml.Len(), 0)

	setMemoGen(2)
	ml = NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(labelRuns, 2)
	s.Equal(opsOf(ml), []Op{OpSetText})
	s.Equal(ml.Edits[0].Value, "changed")
}

var setCustomMemoGen func(int)

func customMemoParent(c *Ctx) *VNode {
	gen, set := UseState(c, 0)
	setCustomMemoGen = set
	child := Component("label", label, labelProps{Text: strconv.Itoa(gen)}).
		WithMemo(func(prev, next any) bool { return true })
	return wrapTpl.Render([]DynamicNode{child}, nil)
}

func (s *ComponentTestSuite) TestCustomMemoWins() {
	labelRuns = 0
	d := New("parent", customMemoParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// Props differ every render, but the comparator pins the child.
	setCustomMemoGen(1)
	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(labelRuns, 1)
	s.Equal(ml.Len(), 0)
}

var altRuns int

func altLabel(c *Ctx) *VNode {
	altRuns++
	p := c.Props().(labelProps)
	return labelTpl.Render([]DynamicNode{Text(p.Text)}, nil)
}

var setSwapGen func(int)
var swapCleanups []string

func swapParent(c *Ctx) *VNode {
	gen, set := UseState(c, 0)
	setSwapGen = set
	fn := ComponentFunc(trackedLabel)
	if gen > 0 {
		fn = altLabel
	}
	return wrapTpl.Render([]DynamicNode{Component("label", fn, labelProps{Text: "same"})}, nil)
}

func trackedLabel(c *Ctx) *VNode {
	c.OnCleanup(func() { swapCleanups = append(swapCleanups, "tracked") })
	p := c.Props().(labelProps)
	return labelTpl.Render([]DynamicNode{Text(p.Text)}, nil)
}

func (s *ComponentTestSuite) TestDifferentFunctionReplaces() {
	altRuns = 0
	swapCleanups = nil
	d := New("parent", swapParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	scopes := d.LiveScopes()

	setSwapGen(1)
	ml := NewMutationList()
	d.RenderImmediate(ml)

	// Same props, but a different function: full replacement.
	s.Equal(altRuns, 1)
	s.Equal(swapCleanups, []string{"tracked"})
	s.Equal(countOp(ml, OpLoadTemplate), 1)
	s.Equal(countOp(ml, OpReplaceWith), 1)
	s.Equal(d.LiveScopes(), scopes)
}

var setBranch func(bool)
var setStateful func(int)

func statefulChild(c *Ctx) *VNode {
	n, set := UseState(c, 0)
	setStateful = set
	return labelTpl.Render([]DynamicNode{Text(strconv.Itoa(n))}, nil)
}

func branchParent(c *Ctx) *VNode {
	b, set := UseState(c, false)
	setBranch = set
	if b {
		return branchBTpl.Render([]DynamicNode{Component("child", statefulChild, nil)}, nil)
	}
	return branchATpl.Render([]DynamicNode{Component("child", statefulChild, nil)}, nil)
}

func (s *ComponentTestSuite) TestLightDiffPreservesState() {
	d := New("parent", branchParent, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	setStateful(5)
	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(ml.Edits[0].Value, "5")

	// Switching templates with matching component roots keeps the child
	// instance and its state alive.
	setBranch(true)
	ml = NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(countOp(ml, OpLoadTemplate), 0)
	s.Equal(countOp(ml, OpReplaceWith), 0)

	setStateful(6)
	ml = NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(opsOf(ml), []Op{OpSetText})
	s.Equal(ml.Edits[0].Value, "6")
}

func nilRender(c *Ctx) *VNode {
	return nil
}

func (s *ComponentTestSuite) TestNilRenderBecomesPlaceholder() {
	d := New("empty", nilRender, nil)
	defer d.Close()
	ml := NewMutationList()
	d.Rebuild(ml)
	s.Equal(countOp(ml, OpCreatePlaceholder), 1)
}

func panicRender(c *Ctx) *VNode {
	panic("boom")
}

func (s *ComponentTestSuite) TestPanicingComponentRendersPlaceholder() {
	d := New("bad", panicRender, nil)
	defer d.Close()
	ml := NewMutationList()
	d.Rebuild(ml)
	s.Equal(countOp(ml, OpCreatePlaceholder), 1)
}

func TestComponents(t *testing.T) {
	suite.Run(t, new(ComponentTestSuite))
}
