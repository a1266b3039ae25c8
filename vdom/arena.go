package vdom

// elementRef points back from a live element id to the mount and template
// path that produced it, so events can find their listeners and parents.
type elementRef struct {
	mount MountID
	path  []uint8
}

// elementArena hands out ElementIDs from a slot table with a free list.
// Slot 0 is the root container: allocated at construction, never reclaimed.
type elementArena struct {
	refs []*elementRef
	live []bool
	free []ElementID
}

func newElementArena() *elementArena {
	return &elementArena{refs: make([]*elementRef, 1), live: []bool{true}}
}

func (a *elementArena) allocate(ref *elementRef) ElementID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.refs[id] = ref
		a.live[id] = true
		return id
	}
	a.refs = append(a.refs, ref)
	a.live = append(a.live, true)
	return ElementID(len(a.refs) - 1)
}

func (a *elementArena) reclaim(id ElementID) {
	if id == 0 || int(id) >= len(a.refs) || !a.live[id] {
		panicf("reclaim of invalid element id %d", id)
	}
	a.refs[id] = nil
	a.live[id] = false
	a.free = append(a.free, id)
}

func (a *elementArena) ref(id ElementID) *elementRef {
	if int(id) >= len(a.refs) || !a.live[id] {
		return nil
	}
	return a.refs[id]
}

func (a *elementArena) setRef(id ElementID, ref *elementRef) {
	a.refs[id] = ref
}

// liveCount is the number of allocated ids, the root included.
func (a *elementArena) liveCount() int {
	n := 0
	for _, l := range a.live {
		if l {
			n++
		}
	}
	return n
}

// vnodeMount records what currently occupies one template instantiation:
// the ids of its roots, the occupant of each dynamic slot (an element id, or
// a scope id for component slots), and the element id claimed by each
// dynamic attribute slot.
type vnodeMount struct {
	node     *VNode
	parent   *elementRef
	template *Template
	owner    ScopeID

	rootIDs      []ElementID
	mountedNodes []uint32
	mountedAttrs []ElementID
}

const slotUnassigned = ^uint32(0)

type mountArena struct {
	slots []*vnodeMount
	free  []MountID
}

func newMountArena() *mountArena {
	return &mountArena{}
}

func (a *mountArena) insert(m *vnodeMount) MountID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[id] = m
		return id
	}
	a.slots = append(a.slots, m)
	return MountID(len(a.slots) - 1)
}

func (a *mountArena) get(id MountID) *vnodeMount {
	if id < 0 || int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id]
}

func (a *mountArena) remove(id MountID) {
	if a.get(id) == nil {
		panicf("remove of invalid mount id %d", id)
	}
	a.slots[id] = nil
	a.free = append(a.free, id)
}
