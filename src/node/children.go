package node

// Change record operations written to the "change" field.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpInsert = "insert"
	OpSet    = "set"
	OpClear  = "clear"
)

// ChildCount ...
func (n *Node) ChildCount() int {
	return len(n.children)
}

// Child returns the child at index, nil for a placeholder or an index out of
// range.
func (n *Node) Child(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	res := make([]*Node, len(n.children))
	copy(res, n.children)
	return res
}

// IndexOf returns the position of c, -1 if c is not a child. IndexOf(nil)
// finds the first placeholder.
func (n *Node) IndexOf(c *Node) int {
	for i, e := range n.children {
		if e == c {
			return i
		}
	}
	return -1
}

// IndexOfAddress returns the position of the child with the given address.
func (n *Node) IndexOfAddress(address string) int {
	for i, e := range n.children {
		if e != nil && e.address == address {
			return i
		}
	}
	return -1
}

// IsAncestorOf reports whether n is c or one of its ancestors.
func (n *Node) IsAncestorOf(c *Node) bool {
	for a := c; a != nil; a = a.parent {
		if a == n {
			return true
		}
	}
	return false
}

// AppendChild adds c at the end of the child list. A nil c appends a
// placeholder. A child that already has a parent is removed from it first,
// even if that parent is n.
func (n *Node) AppendChild(c *Node) bool {
	if !n.acceptable(c) {
		return false
	}
	n.detach(c)
	n.children = append(n.children, c)
	if c != nil {
		c.parent = n
	}
	n.changed = true
	i := len(n.children) - 1
	n.record(OpAdd, i, i)
	return true
}

// InsertChild inserts c at index, clamped to the list bounds.
func (n *Node) InsertChild(c *Node, index int) bool {
	if !n.acceptable(c) {
		return false
	}
	if c != nil && c.parent == n {
		if cur := n.IndexOf(c); cur >= 0 && cur < index {
			index--
		}
	}
	n.detach(c)

	index = clamp(index, 0, len(n.children))
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = c
	if c != nil {
		c.parent = n
	}
	n.changed = true
	n.record(OpInsert, index, index)
	return true
}

// ReplaceChild puts c at index in place of the current child, which is
// detached. The index is clamped; replacing in an empty list appends.
func (n *Node) ReplaceChild(c *Node, index int) bool {
	if !n.acceptable(c) {
		return false
	}
	if len(n.children) == 0 {
		return n.AppendChild(c)
	}
	index = clamp(index, 0, len(n.children)-1)
	if n.children[index] == c {
		return true
	}
	if c != nil && c.parent == n {
		if cur := n.IndexOf(c); cur >= 0 && cur < index {
			index--
		}
	}
	n.detach(c)
	if len(n.children) == 0 {
		return n.AppendChild(c)
	}
	index = clamp(index, 0, len(n.children)-1)

	if old := n.children[index]; old != nil {
		old.parent = nil
	}
	n.children[index] = c
	if c != nil {
		c.parent = n
	}
	n.changed = true
	n.record(OpSet, index, index)
	return true
}

// RemoveChild removes c from the child list.
func (n *Node) RemoveChild(c *Node) bool {
	i := n.IndexOf(c)
	if i < 0 {
		return false
	}
	n.removeAt(i)
	n.record(OpRemove, i, i)
	return true
}

// RemoveChildren removes count children starting at index. index is clamped
// to the list and count to what is left after it.
func (n *Node) RemoveChildren(index, count int) bool {
	if len(n.children) == 0 || count <= 0 {
		return false
	}
	index = clamp(index, 0, len(n.children)-1)
	if index+count > len(n.children) {
		count = len(n.children) - index
	}

	for _, c := range n.children[index : index+count] {
		if c != nil {
			c.parent = nil
		}
	}
	n.children = append(n.children[:index], n.children[index+count:]...)
	n.changed = true
	n.record(OpRemove, index, index+count-1)
	return true
}

// ClearChildren removes every child.
func (n *Node) ClearChildren() bool {
	if len(n.children) == 0 {
		return false
	}
	last := len(n.children) - 1
	for _, c := range n.children {
		if c != nil {
			c.parent = nil
		}
	}
	n.children = nil
	n.changed = true
	n.record(OpClear, 0, last)
	return true
}

// MoveChild moves the child at from to position to, keeping its identity.
// The move is recorded as a remove followed by an insert.
func (n *Node) MoveChild(from, to int) bool {
	if from < 0 || from >= len(n.children) {
		return false
	}
	to = clamp(to, 0, len(n.children)-1)
	if from == to {
		return true
	}
	c := n.children[from]
	n.children = append(n.children[:from], n.children[from+1:]...)
	n.children = append(n.children, nil)
	copy(n.children[to+1:], n.children[to:])
	n.children[to] = c
	n.changed = true
	n.record(OpRemove, from, from)
	n.record(OpInsert, to, to)
	return true
}

func (n *Node) acceptable(c *Node) bool {
	if c == nil {
		return true
	}
	if c.IsAncestorOf(n) {
		n.logger().WithField("child", c.address).Warn("Refusing to make a node its own descendant")
		return false
	}
	if c.tree != n.tree {
		n.logger().WithField("child", c.address).Warn("Refusing child from another tree")
		return false
	}
	return true
}

// detach removes c from its current parent, recording the removal there.
func (n *Node) detach(c *Node) {
	if c == nil || c.parent == nil {
		return
	}
	c.parent.RemoveChild(c)
}

func (n *Node) removeAt(i int) {
	if c := n.children[i]; c != nil {
		c.parent = nil
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
	n.changed = true
}

// record writes a change record, only when someone observes the change
// field.
func (n *Node) record(op string, index1, index2 int) {
	f, ok := n.fields[FieldChange]
	if !ok || !f.HasObservers() {
		return
	}
	f.Set(map[string]interface{}{
		"operation": op,
		"index1":    int32(index1),
		"index2":    int32(index2),
	}, true, true)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
