package node

import "github.com/mosaicnetworks/scenegraph/src/field"

// Clone copies the node into a new node with a fresh address, owned by the
// current thread. Field values are copied and node-typed field values are
// cloned with their children. A deep clone also clones the children. Within one call a node
// is cloned at most once, so shared and circular references keep their shape.
func (n *Node) Clone(deep bool) *Node {
	return n.clone(deep, make(map[*Node]*Node))
}

func (n *Node) clone(deep bool, visited map[*Node]*Node) *Node {
	if c, ok := visited[n]; ok {
		return c
	}

	c := n.tree.NewNode(n.subtype, "", n.tree.thread)
	visited[n] = c

	for name, a := range n.aliases {
		c.aliases[name] = a
	}

	for _, name := range n.FieldNames() {
		f := n.fields[name]
		v := cloneValue(f.Value(), true, visited)

		cf, ok := c.fields[name]
		if !ok {
			cf = field.New(name, f.Kind(), nil, f.Options())
			cf.SetOrigin(c)
			c.fields[name] = cf
		}
		cf.Set(v, false, true)
	}

	if deep {
		for _, child := range n.children {
			if child == nil {
				c.children = append(c.children, nil)
				continue
			}
			cc := child.clone(true, visited)
			if cc.parent != nil {
				// already placed by an earlier reference in this clone
				c.children = append(c.children, nil)
				continue
			}
			cc.parent = c
			c.children = append(c.children, cc)
		}
	}

	c.changed = false
	return c
}

func cloneValue(v interface{}, deep bool, visited map[*Node]*Node) interface{} {
	switch t := v.(type) {
	case *Node:
		return t.clone(deep, visited)
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, e := range t {
			res[i] = cloneValue(e, deep, visited)
		}
		return res
	case map[string]interface{}:
		res := make(map[string]interface{}, len(t))
		for k, e := range t {
			res[k] = cloneValue(e, deep, visited)
		}
		return res
	}
	return v
}
