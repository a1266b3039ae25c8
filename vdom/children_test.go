package vdom_test

import (
	"testing"

	. "github.com/gowade/loom/vdom"

	"github.com/stretchr/testify/suite"
)

type KeyedTestSuite struct {
	suite.Suite
}

var (
	listTpl = NewTemplate("test.List",
		El("ul", nil, DynNode(0)),
	)
	itemTpl = NewTemplate("test.Item",
		El("li", nil, DynText(0)),
	)
)

var setListKeys func([]string)

func keyedList(c *Ctx) *VNode {
	keys, set := UseState(c, []string{"1", "2", "3"})
	setListKeys = set
	children := make([]*VNode, len(keys))
	for i, k := range keys {
		children[i] = itemTpl.Render([]DynamicNode{Text(k)}, nil).WithKey(k)
	}
	return listTpl.Render([]DynamicNode{Frag(children...)}, nil)
}

func (s *KeyedTestSuite) render(d *Dom, keys []string) *MutationList {
	setListKeys(keys)
	ml := NewMutationList()
	d.RenderImmediate(ml)
	return ml
}

func (s *KeyedTestSuite) TestRotationMovesWithoutRebuilding() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	ml := s.render(d, []string{"3", "1", "2"})

	// The rotated item is moved, nothing is created or destroyed.
	s.Equal(countOp(ml, OpLoadTemplate), 0)
	s.Equal(countOp(ml, OpCreateText), 0)
	s.Equal(countOp(ml, OpRemove), 0)
	s.Equal(countOp(ml, OpPushRoot), 1)
	s.Equal(countOp(ml, OpInsertBefore), 1)
}

func (s *KeyedTestSuite) TestOverlappingWindow() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.render(d, []string{"1", "2"})

	// [1 2] -> [2 3]: key 1 leaves, key 3 arrives, key 2 survives.
	ml := s.render(d, []string{"2", "3"})
	s.Equal(countOp(ml, OpRemove), 1)
	s.Equal(countOp(ml, OpLoadTemplate), 1)
	s.Equal(countOp(ml, OpInsertAfter), 1)
	hydrate := findOp(ml, OpHydrateText)
	s.NotNil(hydrate)
	s.Equal(hydrate.Value, "3")
}

func (s *KeyedTestSuite) TestRemoveFromMiddle() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	ml := s.render(d, []string{"1", "3"})
	s.Equal(opsOf(ml), []Op{OpRemove})
}

func (s *KeyedTestSuite) TestPrependAndAppend() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	ml := s.render(d, []string{"0", "1", "2", "3", "4"})
	s.Equal(countOp(ml, OpLoadTemplate), 2)
	s.Equal(countOp(ml, OpRemove), 0)
	s.Equal(countOp(ml, OpInsertBefore), 1)
	s.Equal(countOp(ml, OpInsertAfter), 1)
}

func (s *KeyedTestSuite) TestClearBecomesPlaceholder() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	base := d.LiveElements()

	ml := s.render(d, nil)

	// A placeholder takes the last item's position; the rest are removed.
	s.Equal(countOp(ml, OpCreatePlaceholder), 1)
	s.Equal(countOp(ml, OpRemove), 2)
	s.Equal(countOp(ml, OpReplaceWith), 1)

	// Three items of two elements each left, one placeholder arrived.
	s.Equal(d.LiveElements(), base-6+1)
}

func (s *KeyedTestSuite) TestRefillFromPlaceholder() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())
	s.render(d, nil)

	ml := s.render(d, []string{"a", "b"})
	s.Equal(countOp(ml, OpLoadTemplate), 2)
	s.Equal(countOp(ml, OpReplaceWith), 1)
	s.Equal(countOp(ml, OpCreatePlaceholder), 0)
}

func (s *KeyedTestSuite) TestFullReplacement() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// No shared keys: everything is built fresh, old list torn down.
	ml := s.render(d, []string{"x", "y"})
	s.Equal(countOp(ml, OpLoadTemplate), 2)
	s.Equal(countOp(ml, OpRemove), 2)
	s.Equal(countOp(ml, OpReplaceWith), 1)
}

var setUnkeyed func([]string)

func unkeyedList(c *Ctx) *VNode {
	labels, set := UseState(c, []string{"a", "b"})
	setUnkeyed = set
	children := make([]*VNode, len(labels))
	for i, l := range labels {
		children[i] = itemTpl.Render([]DynamicNode{Text(l)}, nil)
	}
	return listTpl.Render([]DynamicNode{Frag(children...)}, nil)
}

func (s *KeyedTestSuite) TestUnkeyedDiffsByPosition() {
	d := New("list", unkeyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	setUnkeyed([]string{"b", "a"})
	ml := NewMutationList()
	d.RenderImmediate(ml)

	// Position-wise text rewrites, no structural changes.
	s.Equal(opsOf(ml), []Op{OpSetText, OpSetText})
	s.Equal(ml.Edits[0].Value, "b")
	s.Equal(ml.Edits[1].Value, "a")
}

func (s *KeyedTestSuite) TestUnkeyedGrowAndShrink() {
	d := New("list", unkeyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	ml := NewMutationList()
	setUnkeyed([]string{"a", "b", "c"})
	d.RenderImmediate(ml)
	s.Equal(countOp(ml, OpLoadTemplate), 1)
	s.Equal(countOp(ml, OpInsertAfter), 1)

	ml = NewMutationList()
	setUnkeyed([]string{"a"})
	d.RenderImmediate(ml)
	s.Equal(opsOf(ml), []Op{OpRemove, OpRemove})
}

func (s *KeyedTestSuite) TestDuplicateKeysFallBackToPositional() {
	d := New("list", keyedList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// A repeated key disables keyed matching; the list still reconciles
	// position by position.
	ml := s.render(d, []string{"1", "1", "3"})
	s.Equal(opsOf(ml), []Op{OpSetText})
	s.Equal(ml.Edits[0].Value, "1")
}

var setMixedLabels func([]string)

func mixedKeyList(c *Ctx) *VNode {
	labels, set := UseState(c, []string{"a", "b"})
	setMixedLabels = set
	children := make([]*VNode, len(labels))
	for i, l := range labels {
		children[i] = itemTpl.Render([]DynamicNode{Text(l)}, nil)
		if l != "-" {
			children[i].WithKey(l)
		}
	}
	return listTpl.Render([]DynamicNode{Frag(children...)}, nil)
}

func (s *KeyedTestSuite) TestMixedKeysFallBackToPositional() {
	d := New("list", mixedKeyList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// One side keyed, the other partially keyed: positional, no rebuild.
	setMixedLabels([]string{"a", "-"})
	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(opsOf(ml), []Op{OpSetText})
	s.Equal(ml.Edits[0].Value, "-")
}

var setBareFragment func(bool)

func bareFragmentList(c *Ctx) *VNode {
	empty, set := UseState(c, false)
	setBareFragment = set
	if empty {
		return listTpl.Render([]DynamicNode{Fragment{}}, nil)
	}
	return listTpl.Render([]DynamicNode{Frag(
		itemTpl.Render([]DynamicNode{Text("x")}, nil).WithKey("x"),
	)}, nil)
}

func (s *KeyedTestSuite) TestEmptyFragmentValueRendersPlaceholder() {
	d := New("list", bareFragmentList, nil)
	defer d.Close()
	d.Rebuild(NewMutationList())

	// A literal empty Fragment behaves exactly like Frag() would.
	setBareFragment(true)
	ml := NewMutationList()
	d.RenderImmediate(ml)
	s.Equal(countOp(ml, OpCreatePlaceholder), 1)
	s.Equal(countOp(ml, OpReplaceWith), 1)

	setBareFragment(false)
	ml2 := NewMutationList()
	d.RenderImmediate(ml2)
	s.Equal(countOp(ml2, OpLoadTemplate), 1)
	s.Equal(countOp(ml2, OpCreatePlaceholder), 0)
}

func TestKeyedChildren(t *testing.T) {
	suite.Run(t, new(KeyedTestSuite))
}
