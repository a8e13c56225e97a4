package snapshot

import (
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// Reconcile patches target in place so that it agrees with s, keeping the
// identity of target and of every node that can be matched by address.
//
// Node-typed field values whose address matches the snapshot are reconciled
// recursively; other values are decoded and written silently. Children are
// aligned by position: a matching address is reconciled in place and moved
// if needed, a new address is materialized and inserted, an invalid or
// unresolvable entry becomes a placeholder. Extra trailing children are
// removed. Children are left alone when the snapshot has none listed.
//
// The target is always left marked as changed, even when nothing differed.
func Reconcile(s Snapshot, target *node.Node, addressMap map[string]*node.Node) *node.Node {
	if addressMap == nil {
		addressMap = make(map[string]*node.Node)
	}
	return reconcile(s, target, addressMap, true)
}

func reconcile(s Snapshot, target *node.Node, addressMap map[string]*node.Node, deep bool) *node.Node {
	tree := target.Tree()

	addressMap[target.Address()] = target
	if a, _ := s[KeyAddress].(string); a != "" && a != target.Address() {
		addressMap[a] = target
	}

	if owner, ok := parseOwner(s[KeyOwner]); ok && !target.OwnerLocked() {
		target.SetOwner(owner)
	}

	for _, key := range fieldKeys(s) {
		val := s[key]

		if m, ok := asMap(val); ok && IsNodeSnapshot(m) && !IsInvalidMarker(m) {
			if _, circular := m[KeyCircular]; !circular {
				if f, ok := target.Field(key); ok {
					if cur, ok := f.Value().(*node.Node); ok && cur.Address() == Address(m) {
						reconcile(m, cur, addressMap, deep)
						continue
					}
				}
			}
		}

		target.SetValueSilent(key, DecodeValue(val, tree, addressMap, deep))
	}

	if list, ok := s[KeyChildren].([]interface{}); ok && deep {
		reconcileChildren(list, target, addressMap)
	}

	// TODO: leave the flag alone when no field or child differed, once the
	// renderer no longer relies on every reconcile marking the node dirty.
	target.SetChanged(true)

	return target
}

func reconcileChildren(list []interface{}, target *node.Node, addressMap map[string]*node.Node) {
	tree := target.Tree()

	for i, e := range list {
		cs, _ := asMap(e)

		var addr string
		circular := false
		if cs != nil {
			if a, ok := cs[KeyCircular].(string); ok {
				addr, circular = a, true
			} else {
				addr, _ = cs[KeyAddress].(string)
			}
		}

		existing := -1
		if addr != "" {
			existing = target.IndexOfAddress(addr)
			if existing >= 0 && existing < i {
				// already placed at an earlier position
				existing = -1
				cs = nil
			}
		}

		resolvable := cs != nil && !IsInvalidMarker(cs) &&
			(!circular || existing >= 0 || addressMap[addr] != nil)

		if !resolvable {
			if i < target.ChildCount() && target.Child(i) == nil {
				continue
			}
			target.InsertChild(nil, i)
			continue
		}

		if existing >= 0 {
			cur := target.Child(existing)
			if !circular {
				reconcile(cs, cur, addressMap, true)
			}
			if existing != i {
				target.MoveChild(existing, i)
			}
			continue
		}

		var c *node.Node
		if circular {
			c = addressMap[addr]
		} else {
			c = Materialize(cs, tree, addressMap, true)
		}
		if c == nil || c.IsAncestorOf(target) {
			target.InsertChild(nil, i)
			continue
		}
		target.InsertChild(c, i)
	}

	if extra := target.ChildCount() - len(list); extra > 0 {
		target.RemoveChildren(len(list), extra)
	}
}
