package memdom

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/gowade/loom/vdom"
)

// Apply replays one mutation batch against the tree, in order. Every opcode
// that fails is recorded and interpretation continues with the next one, so
// a single bad instruction does not hide the rest of the batch; the
// aggregated error reports a runtime/backend contract violation, not a user
// mistake.
func (d *Document) Apply(batch *vdom.MutationList) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range batch.Templates {
		d.templates[t.Name] = t
	}

	var errs *multierror.Error
	d.stack = d.stack[:0]
	for i := range batch.Edits {
		if err := d.applyEdit(&batch.Edits[i]); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "edit %d (%s)", i, batch.Edits[i].Op))
		}
	}
	if len(d.stack) != 0 {
		errs = multierror.Append(errs, errors.Errorf("%d nodes left on the stack after the batch", len(d.stack)))
		d.stack = d.stack[:0]
	}
	return errs.ErrorOrNil()
}

func (d *Document) applyEdit(m *vdom.Mutation) error {
	switch m.Op {
	case vdom.OpRegisterTemplate:
		if d.templates[m.Template] == nil {
			return errors.Errorf("template %q registered without a skeleton", m.Template)
		}
		return nil

	case vdom.OpLoadTemplate:
		tpl := d.templates[m.Template]
		if tpl == nil {
			return errors.Errorf("unknown template %q", m.Template)
		}
		if m.Index < 0 || m.Index >= len(tpl.Roots) {
			return errors.Errorf("template %q has no root %d", m.Template, m.Index)
		}
		n := instantiate(&tpl.Roots[m.Index])
		d.assign(n, m.ID)
		d.stack = append(d.stack, n)
		return nil

	case vdom.OpAssignID:
		n, err := d.walk(m.Path)
		if err != nil {
			return err
		}
		d.assign(n, m.ID)
		return nil

	case vdom.OpCreateText:
		n := &node{kind: textNode, text: m.Value}
		d.assign(n, m.ID)
		d.stack = append(d.stack, n)
		return nil

	case vdom.OpCreatePlaceholder:
		n := &node{kind: placeholderNode}
		d.assign(n, m.ID)
		d.stack = append(d.stack, n)
		return nil

	case vdom.OpHydrateText:
		n, err := d.walk(m.Path)
		if err != nil {
			return err
		}
		if n.kind != textNode {
			return errors.Errorf("hydrate target at %v is not a text node", m.Path)
		}
		n.text = m.Value
		d.assign(n, m.ID)
		return nil

	case vdom.OpReplacePlaceholder:
		nodes, err := d.pop(m.Count)
		if err != nil {
			return err
		}
		target, err := d.walk(m.Path)
		if err != nil {
			return err
		}
		return d.replace(target, nodes)

	case vdom.OpAppendChildren:
		nodes, err := d.pop(m.Count)
		if err != nil {
			return err
		}
		parent := d.byID[m.ID]
		if parent == nil {
			return errors.Errorf("unknown parent id %d", m.ID)
		}
		for _, n := range nodes {
			unlink(n)
			n.parent = parent
			parent.children = append(parent.children, n)
		}
		return nil

	case vdom.OpReplaceWith:
		nodes, err := d.pop(m.Count)
		if err != nil {
			return err
		}
		target := d.byID[m.ID]
		if target == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		return d.replace(target, nodes)

	case vdom.OpInsertAfter:
		return d.insert(m.ID, m.Count, 1)

	case vdom.OpInsertBefore:
		return d.insert(m.ID, m.Count, 0)

	case vdom.OpRemove:
		target := d.byID[m.ID]
		if target == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		if target.parent == nil {
			return errors.Errorf("cannot remove the root container")
		}
		d.detach(target)
		return nil

	case vdom.OpSetText:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		if n.kind != textNode {
			return errors.Errorf("SetText on non-text node %d", m.ID)
		}
		n.text = m.Value
		return nil

	case vdom.OpSetAttribute:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		d.setAttribute(n, m.Name, m.Namespace, m.AttrValue)
		return nil

	case vdom.OpRemoveAttribute:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		d.removeAttribute(n, m.Name, m.Namespace)
		return nil

	case vdom.OpNewEventListener:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		if n.listeners == nil {
			n.listeners = map[string]bool{}
		}
		n.listeners[m.Name] = true
		return nil

	case vdom.OpRemoveEventListener:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		delete(n.listeners, m.Name)
		return nil

	case vdom.OpPushRoot:
		n := d.byID[m.ID]
		if n == nil {
			return errors.Errorf("unknown id %d", m.ID)
		}
		d.stack = append(d.stack, n)
		return nil

	default:
		return errors.Errorf("unknown opcode %q", m.Op)
	}
}

// instantiate clones a template skeleton into fresh nodes. Dynamic node
// slots become placeholders the batch later replaces or assigns; dynamic
// text slots become empty text nodes awaiting hydration.
func instantiate(t *vdom.TemplateNode) *node {
	switch t.Kind {
	case vdom.TplText:
		return &node{kind: textNode, text: t.Text}
	case vdom.TplDynamic:
		return &node{kind: placeholderNode}
	case vdom.TplDynamicText:
		return &node{kind: textNode}
	default:
		n := &node{kind: elementNode, tag: t.Tag, namespace: t.Namespace}
		for _, a := range t.Attrs {
			if !a.Dynamic {
				n.attrs = append(n.attrs, attr{name: a.Name, namespace: a.Namespace, value: a.Value})
			}
		}
		for i := range t.Children {
			c := instantiate(&t.Children[i])
			c.parent = n
			n.children = append(n.children, c)
		}
		return n
	}
}

func (d *Document) assign(n *node, id vdom.ElementID) {
	n.id = id
	d.byID[id] = n
}

// walk resolves a relative path against the root most recently loaded onto
// the stack.
func (d *Document) walk(path []uint8) (*node, error) {
	if len(d.stack) == 0 {
		return nil, errors.New("path walk with an empty stack")
	}
	n := d.stack[len(d.stack)-1]
	for _, idx := range path {
		if int(idx) >= len(n.children) {
			return nil, errors.Errorf("path %v leaves the tree at child %d of <%s>", path, idx, n.tag)
		}
		n = n.children[int(idx)]
	}
	return n, nil
}

func (d *Document) pop(count int) ([]*node, error) {
	if count > len(d.stack) {
		return nil, errors.Errorf("pop of %d with %d nodes on the stack", count, len(d.stack))
	}
	nodes := d.stack[len(d.stack)-count:]
	d.stack = d.stack[:len(d.stack)-count]
	return nodes, nil
}

func (d *Document) replace(target *node, with []*node) error {
	if target.parent == nil {
		return errors.New("cannot replace the root container")
	}
	// Pushed nodes may still sit elsewhere in the tree; insertion moves
	// them, the way a real DOM does.
	for _, n := range with {
		unlink(n)
	}
	parent := target.parent
	i := target.childIndex()
	rest := append([]*node(nil), parent.children[i+1:]...)
	parent.children = parent.children[:i]
	for _, n := range with {
		n.parent = parent
		parent.children = append(parent.children, n)
	}
	parent.children = append(parent.children, rest...)
	target.parent = nil
	d.purge(target)
	return nil
}

func (d *Document) insert(anchor vdom.ElementID, count, offset int) error {
	nodes, err := d.pop(count)
	if err != nil {
		return err
	}
	target := d.byID[anchor]
	if target == nil {
		return errors.Errorf("unknown anchor id %d", anchor)
	}
	if target.parent == nil {
		return errors.New("cannot insert next to the root container")
	}
	for _, n := range nodes {
		unlink(n)
	}
	parent := target.parent
	i := target.childIndex() + offset
	rest := append([]*node(nil), parent.children[i:]...)
	parent.children = parent.children[:i]
	for _, n := range nodes {
		n.parent = parent
		parent.children = append(parent.children, n)
	}
	parent.children = append(parent.children, rest...)
	return nil
}

// unlink detaches a node from its current parent, keeping its subtree and
// id mappings intact.
func unlink(n *node) {
	if n.parent == nil {
		return
	}
	i := n.childIndex()
	n.parent.children = append(n.parent.children[:i], n.parent.children[i+1:]...)
	n.parent = nil
}

func (d *Document) detach(target *node) {
	parent := target.parent
	i := target.childIndex()
	parent.children = append(parent.children[:i], parent.children[i+1:]...)
	target.parent = nil
	d.purge(target)
}

// purge drops the id mappings of a removed subtree. The runtime reclaims
// and reuses the ids; stale entries would alias old nodes.
func (d *Document) purge(n *node) {
	if n.id != 0 {
		if d.byID[n.id] == n {
			delete(d.byID, n.id)
		}
	}
	for _, c := range n.children {
		d.purge(c)
	}
}

// dangerousInnerHTML installs raw markup in place of the node's children.
const dangerousInnerHTML = "dangerous-inner-html"

// setAttribute writes a content attribute. A nil or false value removes
// instead. The value, checked and selected names also drive the control's
// live state: a write sets it, a removal resets it to the default.
func (d *Document) setAttribute(n *node, name, namespace string, value any) {
	remove := value == nil
	if b, ok := value.(bool); ok && !b {
		remove = true
	}
	if remove {
		d.removeAttribute(n, name, namespace)
		return
	}

	n.setAttr(name, namespace, value)
	switch name {
	case "value":
		n.liveValue = attrString(value)
	case "checked":
		n.liveChecked = true
	case "selected":
		n.liveSelected = true
	case dangerousInnerHTML:
		n.rawInner = attrString(value)
		for _, c := range n.children {
			c.parent = nil
			d.purge(c)
		}
		n.children = nil
	}
}

// removeAttribute drops a content attribute and resets any live state the
// attribute was backing.
func (d *Document) removeAttribute(n *node, name, namespace string) {
	n.removeAttr(name, namespace)
	switch name {
	case "value":
		n.liveValue = ""
	case "checked":
		n.liveChecked = false
	case "selected":
		n.liveSelected = false
	case dangerousInnerHTML:
		n.rawInner = ""
	}
}

func attrString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
