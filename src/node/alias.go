package node

import (
	"strings"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
)

// alias forwards a field of a node to a field of a descendant, found by id.
type alias struct {
	targetID    string
	targetField string
}

// AddAlias declares name as an alias of targetField on the descendant whose
// id is targetID. The target is looked up on every access.
func (n *Node) AddAlias(name, targetID, targetField string) bool {
	if n.HasField(name) {
		return false
	}
	n.aliases[name] = alias{targetID: targetID, targetField: targetField}
	n.changed = true
	return true
}

// addAlias parses "childId.fieldName".
func (n *Node) addAlias(name, decl string) {
	i := strings.LastIndex(decl, ".")
	if i <= 0 || i == len(decl)-1 {
		n.logger().WithField("alias", decl).Warn("Malformed alias")
		return
	}
	n.aliases[name] = alias{targetID: decl[:i], targetField: decl[i+1:]}
}

// Aliases returns the alias declarations as "childId.fieldName" by name.
func (n *Node) Aliases() map[string]string {
	res := make(map[string]string, len(n.aliases))
	for name, a := range n.aliases {
		res[name] = a.targetID + "." + a.targetField
	}
	return res
}

func (n *Node) aliasTarget(name string, a alias) (*Node, error) {
	target := n.FindNode(a.targetID)
	if target == nil || target == n || !target.HasField(a.targetField) {
		return nil, common.NewFieldErr(n.address, common.AliasTarget, name)
	}
	return target, nil
}

// ID returns the local value of the id field.
func (n *Node) ID() string {
	if f, ok := n.fields[FieldID]; ok {
		if s, ok := f.Value().(string); ok {
			return s
		}
	}
	return ""
}

// FindNode searches n and its descendants, depth first, for the node whose
// id field is id. Ids are read locally.
func (n *Node) FindNode(id string) *Node {
	if id == "" {
		return nil
	}
	return n.findNode(id, make(map[*Node]bool))
}

func (n *Node) findNode(id string, seen map[*Node]bool) *Node {
	if seen[n] {
		return nil
	}
	seen[n] = true
	if n.ID() == id {
		return n
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if res := c.findNode(id, seen); res != nil {
			return res
		}
	}
	return nil
}

// fieldKind is used by getFieldTypes: alias fields report the kind of their
// target.
func (n *Node) fieldKind(name string) (field.Kind, bool) {
	if f, ok := n.fields[name]; ok {
		return f.Kind(), true
	}
	if a, ok := n.aliases[name]; ok {
		if t, err := n.aliasTarget(name, a); err == nil {
			return t.fieldKind(a.targetField)
		}
	}
	return field.KindInvalid, false
}
