package snapshot

import (
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// Materialize builds the node described by s in tree and returns it, or nil
// for an invalid value.
//
// The node is registered in addressMap before its fields and children are
// materialized, so a circular marker met deeper in the same call resolves to
// it. A circular marker whose target is not in addressMap yet is a forward
// reference: it is not resolved, it becomes invalid and is logged.
//
// If tree already holds a node with the snapshot's address, that node is
// reconciled and returned instead of creating a duplicate.
func Materialize(s Snapshot, tree *node.Tree, addressMap map[string]*node.Node, deep bool) *node.Node {
	if addressMap == nil {
		addressMap = make(map[string]*node.Node)
	}

	if IsInvalidMarker(s) {
		return nil
	}

	if addr, ok := s[KeyCircular].(string); ok {
		if n, ok := addressMap[addr]; ok {
			return n
		}
		tree.Logger().WithField("address", addr).Warn("Unresolved circular reference")
		return nil
	}

	address, _ := s[KeyAddress].(string)

	subtype := node.TypeNode
	if tag, ok := s[KeyNode].(string); ok {
		subtype = parseType(tree, tag)
	} else {
		tree.Logger().WithField("address", address).Warn("Snapshot without _node_, using Node")
	}

	owner, ok := parseOwner(s[KeyOwner])
	if !ok {
		owner = tree.Thread()
	}

	if address != "" {
		if existing, ok := tree.Lookup(address); ok {
			addressMap[address] = existing
			return reconcile(s, existing, addressMap, deep)
		}
	}

	n := tree.NewNode(subtype, address, owner)
	addressMap[n.Address()] = n

	for _, key := range fieldKeys(s) {
		n.SetValueSilent(key, DecodeValue(s[key], tree, addressMap, deep))
	}

	if deep {
		list, _ := s[KeyChildren].([]interface{})
		for _, e := range list {
			var c *node.Node
			if cs, ok := asMap(e); ok {
				_, circular := cs[KeyCircular]
				c = Materialize(cs, tree, addressMap, deep)
				if c != nil && circular && c.Parent() != nil {
					// a node can only be the child of one parent
					c = nil
				}
			}
			if c == nil || !n.AppendChild(c) {
				n.AppendChild(nil)
			}
		}
	}

	n.SetChanged(false)

	return n
}

// DecodeValue converts a transferable value back into a field value. Node
// snapshots are materialized into tree.
func DecodeValue(v interface{}, tree *node.Tree, addressMap map[string]*node.Node, deep bool) interface{} {
	if addressMap == nil {
		addressMap = make(map[string]*node.Node)
	}

	switch t := v.(type) {
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, e := range t {
			res[i] = DecodeValue(e, tree, addressMap, deep)
		}
		return res
	case nil:
		return field.Invalid
	}

	m, ok := asMap(v)
	if !ok {
		return v
	}

	if IsInvalidMarker(m) {
		return field.Invalid
	}

	if IsNodeSnapshot(m) {
		if n := Materialize(m, tree, addressMap, deep); n != nil {
			return n
		}
		return field.Invalid
	}

	res := make(map[string]interface{}, len(m))
	for k, e := range m {
		res[k] = DecodeValue(e, tree, addressMap, deep)
	}
	return res
}
