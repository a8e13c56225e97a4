package node

import "github.com/mosaicnetworks/scenegraph/src/field"

// HasFocus ...
func (n *Node) HasFocus() bool {
	return n.tree.focus == n
}

// IsInFocusChain reports whether n is the focused node or one of its
// ancestors.
func (n *Node) IsInFocusChain() bool {
	for a := n.tree.focus; a != nil; a = a.parent {
		if a == n {
			return true
		}
	}
	return false
}

// SetFocus moves the focus to n, or removes it from n.
//
// Gaining focus is done in two passes. First, walking up from the node that
// currently holds the focus, focusedChild is cleared on every node that is
// not an ancestor of n. Then, walking down from the root of n, each ancestor
// gets focusedChild set to its child on the path, and n gets itself.
func (n *Node) SetFocus(on bool) bool {
	t := n.tree

	if !on {
		if t.focus != n {
			return false
		}
		for a := n; a != nil; a = a.parent {
			a.setFocusedChild(field.Invalid)
		}
		t.focus = nil
		return true
	}

	if t.focus == n {
		return true
	}

	var path []*Node
	onPath := make(map[*Node]bool)
	for a := n; a != nil; a = a.parent {
		path = append(path, a)
		onPath[a] = true
	}

	for a := t.focus; a != nil && !onPath[a]; a = a.parent {
		a.setFocusedChild(field.Invalid)
	}

	for i := len(path) - 1; i > 0; i-- {
		path[i].setFocusedChild(path[i-1])
	}
	n.setFocusedChild(n)

	t.focus = n
	return true
}

func (n *Node) setFocusedChild(v interface{}) {
	f, ok := n.fields[FieldFocusedChild]
	if !ok {
		return
	}
	if changed, _ := f.Set(v, true, true); changed {
		n.changed = true
	}
}
