package vdom

import (
	"sort"

	"github.com/golang/glog"
)

// diffChildren reconciles the children of a fragment slot. Fully keyed
// lists on both sides get move-minimizing keyed reconciliation; anything
// else diffs by position. Mixed or duplicate keys are a caller bug and are
// reported once, then handled positionally so rendering keeps working.
func (d *Dom) diffChildren(old, new Fragment, parent *elementRef, to Sink) {
	oldKeyed, oldClean := keyState(old)
	newKeyed, newClean := keyState(new)
	if !oldClean || !newClean {
		glog.Errorf("sibling list mixes keyed and unkeyed nodes or repeats a key; diffing by position")
	}
	if oldKeyed && newKeyed && oldClean && newClean {
		d.diffKeyedChildren(old, new, parent, to)
		return
	}
	d.diffNonKeyedChildren(old, new, parent, to)
}

// keyState reports whether a sibling list is keyed, and whether it is
// usable as such: homogeneously keyed (or unkeyed) with no repeated key.
func keyState(children Fragment) (keyed, clean bool) {
	keyed = children[0].Key != ""
	seen := map[string]bool{}
	for _, c := range children {
		if (c.Key != "") != keyed {
			return keyed, false
		}
		if keyed {
			if seen[c.Key] {
				return keyed, false
			}
			seen[c.Key] = true
		}
	}
	return keyed, true
}

func (d *Dom) diffNonKeyedChildren(old, new Fragment, parent *elementRef, to Sink) {
	switch {
	case len(old) > len(new):
		d.removeNodes(old[len(new):], to, -1)
	case len(old) < len(new):
		d.createAndInsertAfter(new[len(old):], old[len(old)-1], parent, to)
	}
	for i := 0; i < len(old) && i < len(new); i++ {
		d.diffNode(old[i], new[i], to)
	}
}

// diffKeyedChildren peels matching-key runs off both ends, then reconciles
// the disordered middle. Loosely based on Inferno's keyed patching,
// restated as mutation emission against ids instead of direct node surgery.
func (d *Dom) diffKeyedChildren(old, new Fragment, parent *elementRef, to Sink) {
	left, right, done := d.diffKeyedEnds(old, new, parent, to)
	if done {
		return
	}
	oldMiddle := old[left : len(old)-right]
	newMiddle := new[left : len(new)-right]
	switch {
	case len(newMiddle) == 0:
		d.removeNodes(oldMiddle, to, -1)
	case len(oldMiddle) == 0:
		switch {
		case left == 0:
			d.createAndInsertBefore(newMiddle, old[len(old)-right], parent, to)
		default:
			d.createAndInsertAfter(newMiddle, old[left-1], parent, to)
		}
	default:
		d.diffKeyedMiddle(oldMiddle, newMiddle, parent, to)
	}
}

// diffKeyedEnds diffs the shared-key prefix and suffix in place. It reports
// the two offsets, or done when one side was fully consumed and the
// remainder has been created or removed already.
func (d *Dom) diffKeyedEnds(old, new Fragment, parent *elementRef, to Sink) (left, right int, done bool) {
	for left < len(old) && left < len(new) && old[left].Key == new[left].Key {
		d.diffNode(old[left], new[left], to)
		left++
	}
	if left == len(old) {
		if left < len(new) {
			d.createAndInsertAfter(new[left:], old[len(old)-1], parent, to)
		}
		return 0, 0, true
	}
	if left == len(new) {
		d.removeNodes(old[left:], to, -1)
		return 0, 0, true
	}
	for right < len(old)-left && right < len(new)-left &&
		old[len(old)-right-1].Key == new[len(new)-right-1].Key {
		d.diffNode(old[len(old)-right-1], new[len(new)-right-1], to)
		right++
	}
	return left, right, false
}

// diffKeyedMiddle handles an arbitrarily reordered middle section. The
// longest subsequence of surviving children already in relative order stays
// put; everything else is created fresh or moved next to its new neighbor,
// emitted right to left so each anchor is already in its final position.
func (d *Dom) diffKeyedMiddle(old, new Fragment, parent *elementRef, to Sink) {
	oldIndexByKey := make(map[string]int, len(old))
	for i, o := range old {
		oldIndexByKey[o.Key] = i
	}

	// sources[i] is the old position of new[i], or -1 for a fresh key.
	sources := make([]int, len(new))
	shared := 0
	for i, n := range new {
		if oi, ok := oldIndexByKey[n.Key]; ok {
			sources[i] = oi
			shared++
		} else {
			sources[i] = -1
		}
	}

	if shared == 0 {
		// No overlap at all: build the new list, then replace the old
		// one with it wholesale.
		count := d.createChildren(new, parent, to)
		d.removeNodes(old, to, count)
		return
	}

	newKeys := make(map[string]bool, len(new))
	for _, n := range new {
		newKeys[n.Key] = true
	}
	for _, o := range old {
		if !newKeys[o.Key] {
			d.removeNode(o, to, -1)
		}
	}

	stable := longestIncreasing(sources)
	for _, idx := range stable {
		d.diffNode(old[sources[idx]], new[idx], to)
	}

	moveOrCreate := func(i int) int {
		if sources[i] < 0 {
			return d.createNode(new[i], parent, to)
		}
		d.diffNode(old[sources[i]], new[i], to)
		return d.pushAllRealNodes(new[i], to)
	}

	// Everything after the last stable child mounts after it.
	created := 0
	last := stable[len(stable)-1]
	if last < len(new)-1 {
		for i := last + 1; i < len(new); i++ {
			created += moveOrCreate(i)
		}
		if created > 0 && to != nil {
			to.InsertAfter(d.findLastElement(new[last]), created)
		}
		created = 0
	}

	// Gaps between stable children mount before the gap's right edge.
	for j := len(stable) - 1; j > 0; j-- {
		lo, hi := stable[j-1], stable[j]
		if hi-lo <= 1 {
			continue
		}
		for i := lo + 1; i < hi; i++ {
			created += moveOrCreate(i)
		}
		if created > 0 && to != nil {
			to.InsertBefore(d.findFirstElement(new[hi]), created)
		}
		created = 0
	}

	// Everything before the first stable child mounts before it.
	first := stable[0]
	if first > 0 {
		for i := 0; i < first; i++ {
			created += moveOrCreate(i)
		}
		if created > 0 && to != nil {
			to.InsertBefore(d.findFirstElement(new[first]), created)
		}
	}
}

// longestIncreasing returns the positions (ascending) of a longest strictly
// increasing run of non-negative values in sources.
func longestIncreasing(sources []int) []int {
	tails := make([]int, 0, len(sources))
	prev := make([]int, len(sources))
	for i, v := range sources {
		if v < 0 {
			continue
		}
		lo := sort.Search(len(tails), func(j int) bool { return sources[tails[j]] >= v })
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	seq := make([]int, len(tails))
	k := tails[len(tails)-1]
	for j := len(tails) - 1; j >= 0; j-- {
		seq[j] = k
		k = prev[k]
	}
	return seq
}

func (d *Dom) createAndInsertBefore(new Fragment, before *VNode, parent *elementRef, to Sink) {
	count := d.createChildren(new, parent, to)
	if to != nil && count > 0 {
		to.InsertBefore(d.findFirstElement(before), count)
	}
}

func (d *Dom) createAndInsertAfter(new Fragment, after *VNode, parent *elementRef, to Sink) {
	count := d.createChildren(new, parent, to)
	if to != nil && count > 0 {
		to.InsertAfter(d.findLastElement(after), count)
	}
}

// findFirstElement resolves the leftmost real host node of a mounted tree.
func (d *Dom) findFirstElement(n *VNode) ElementID {
	m := d.mounts.get(n.mount)
	switch node := dynamicRoot(n, m, 0).(type) {
	case nil, *VText, *VPlaceholder:
		return m.rootIDs[0]
	case Fragment:
		return d.findFirstElement(node[0])
	case *VComponent:
		s := d.scopes.get(rootScopeAt(n, m, 0))
		return d.findFirstElement(s.last)
	default:
		panicf("unknown dynamic node kind %T", node)
		return 0
	}
}

// findLastElement resolves the rightmost real host node of a mounted tree.
func (d *Dom) findLastElement(n *VNode) ElementID {
	m := d.mounts.get(n.mount)
	lastRoot := len(m.template.Roots) - 1
	switch node := dynamicRoot(n, m, lastRoot).(type) {
	case nil, *VText, *VPlaceholder:
		return m.rootIDs[lastRoot]
	case Fragment:
		return d.findLastElement(node[len(node)-1])
	case *VComponent:
		s := d.scopes.get(rootScopeAt(n, m, lastRoot))
		return d.findLastElement(s.last)
	default:
		panicf("unknown dynamic node kind %T", node)
		return 0
	}
}

// pushAllRealNodes pushes every host node of a mounted tree onto the stack,
// left to right, and returns how many it pushed. Used to move whole trees.
func (d *Dom) pushAllRealNodes(n *VNode, to Sink) int {
	m := d.mounts.get(n.mount)
	total := 0
	for rootIdx := range m.template.Roots {
		switch node := dynamicRoot(n, m, rootIdx).(type) {
		case nil, *VText, *VPlaceholder:
			if to != nil {
				to.PushRoot(m.rootIDs[rootIdx])
			}
			total++
		case Fragment:
			for _, child := range node {
				total += d.pushAllRealNodes(child, to)
			}
		case *VComponent:
			s := d.scopes.get(rootScopeAt(n, m, rootIdx))
			total += d.pushAllRealNodes(s.last, to)
		default:
			panicf("unknown dynamic node kind %T", node)
		}
	}
	return total
}

// dynamicRoot returns the dynamic node occupying a template root, or nil
// for a static root.
func dynamicRoot(n *VNode, m *vnodeMount, rootIdx int) DynamicNode {
	root := &m.template.Roots[rootIdx]
	if root.Kind != TplDynamic && root.Kind != TplDynamicText {
		return nil
	}
	return n.DynamicNodes[root.Index]
}

// rootScopeAt returns the scope mounted in a component slot at a root.
func rootScopeAt(n *VNode, m *vnodeMount, rootIdx int) ScopeID {
	return ScopeID(m.mountedNodes[m.template.Roots[rootIdx].Index])
}
