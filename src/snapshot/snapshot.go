package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// Reserved snapshot keys. Every other key is a field name.
const (
	KeyNode     = "_node_"
	KeyAddress  = "_address_"
	KeyOwner    = "_owner_"
	KeyChildren = "_children_"
	KeyCircular = "_circular_"
	KeyObserved = "_observed_"
	KeyInvalid  = "_invalid_"
)

// Snapshot is the transferable form of a node: a plain keyed record holding
// no pointers, safe to hand to another goroutine or to a codec.
type Snapshot = map[string]interface{}

// Options control Serialize.
type Options struct {
	// Deep includes the children.
	Deep bool

	// Observed adds, on each node, the list of fields that thread Host
	// observes remotely.
	Observed bool
	Host     int

	// Publish clears the dirty flag of every serialized node.
	Publish bool
}

// InvalidMarker returns the encoding of an invalid value or child placeholder.
func InvalidMarker() Snapshot {
	return Snapshot{KeyInvalid: true}
}

// IsReserved reports whether key is a reserved snapshot key.
func IsReserved(key string) bool {
	switch key {
	case KeyNode, KeyAddress, KeyOwner, KeyChildren, KeyCircular, KeyObserved, KeyInvalid:
		return true
	}
	return false
}

// IsNodeSnapshot reports whether a decoded map describes a node, either in
// full or as a circular reference.
func IsNodeSnapshot(m map[string]interface{}) bool {
	if _, ok := m[KeyNode]; ok {
		return true
	}
	if _, ok := m[KeyCircular]; ok {
		return true
	}
	_, ok := m[KeyAddress]
	return ok
}

// IsInvalidMarker ...
func IsInvalidMarker(m map[string]interface{}) bool {
	b, _ := m[KeyInvalid].(bool)
	return b
}

// Serialize converts n into a snapshot, depth first. A node already in
// visited is emitted as a circular marker carrying its address. visited may
// be nil.
func Serialize(n *node.Node, opts Options, visited map[string]bool) Snapshot {
	if visited == nil {
		visited = make(map[string]bool)
	}
	if n == nil {
		return InvalidMarker()
	}

	if visited[n.Address()] {
		return Snapshot{KeyCircular: n.Address()}
	}
	visited[n.Address()] = true

	s := Snapshot{
		KeyNode:    n.Type() + ":" + n.Subtype(),
		KeyAddress: n.Address(),
		KeyOwner:   n.Owner(),
	}

	for _, name := range n.FieldNames() {
		f, _ := n.Field(name)
		if f.Hidden() {
			continue
		}
		s[name] = encodeValue(f.Value(), opts, visited)
	}

	if opts.Observed {
		if observed := n.Tree().ObservedBy(n.Address(), opts.Host); len(observed) > 0 {
			list := make([]interface{}, len(observed))
			for i, o := range observed {
				list[i] = o
			}
			s[KeyObserved] = list
		}
	}

	if opts.Deep {
		children := make([]interface{}, n.ChildCount())
		for i, c := range n.Children() {
			children[i] = Serialize(c, opts, visited)
		}
		s[KeyChildren] = children
	}

	if opts.Publish {
		n.SetChanged(false)
	}

	return s
}

// EncodeValue converts a field value into its transferable form. Nodes
// become snapshots and invalid becomes the invalid marker.
func EncodeValue(v interface{}, opts Options) interface{} {
	return encodeValue(v, opts, make(map[string]bool))
}

func encodeValue(v interface{}, opts Options, visited map[string]bool) interface{} {
	switch t := v.(type) {
	case nil, field.InvalidValue:
		return InvalidMarker()
	case *node.Node:
		return Serialize(t, opts, visited)
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, e := range t {
			res[i] = encodeValue(e, opts, visited)
		}
		return res
	case map[string]interface{}:
		res := make(map[string]interface{}, len(t))
		for k, e := range t {
			res[k] = encodeValue(e, opts, visited)
		}
		return res
	}
	return v
}

// Observed returns the _observed_ list of a snapshot.
func Observed(s Snapshot) []string {
	list, _ := s[KeyObserved].([]interface{})
	res := make([]string, 0, len(list))
	for _, e := range list {
		if name, ok := e.(string); ok {
			res = append(res, name)
		}
	}
	return res
}

// Address returns the address a snapshot describes or refers to.
func Address(s Snapshot) string {
	if a, ok := s[KeyCircular].(string); ok {
		return a
	}
	a, _ := s[KeyAddress].(string)
	return a
}

func fieldKeys(s Snapshot) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		if !IsReserved(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func parseOwner(v interface{}) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := field.Convert(field.KindLongInteger, v)
	if !ok {
		return 0, false
	}
	return int(i.(int64)), true
}

// AsSnapshot accepts a decoded payload as a snapshot.
func AsSnapshot(v interface{}) (Snapshot, bool) {
	return asMap(v)
}

// asMap accepts the map shapes codecs produce.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		res := make(map[string]interface{}, len(t))
		for k, e := range t {
			res[fmt.Sprint(k)] = e
		}
		return res, true
	}
	return nil, false
}

// parseType resolves "Type:Subtype" against the factory, falling back to the
// base type and then to Node.
func parseType(tree *node.Tree, tag string) string {
	parts := strings.SplitN(tag, ":", 2)
	sub := parts[0]
	if len(parts) == 2 && parts[1] != "" {
		sub = parts[1]
	}
	if _, ok := tree.Factory().Lookup(sub); ok {
		return sub
	}
	if _, ok := tree.Factory().Lookup(parts[0]); ok {
		tree.Logger().WithField("type", tag).Warn("Unknown subtype in snapshot, using base type")
		return parts[0]
	}
	tree.Logger().WithField("type", tag).Warn("Unknown type in snapshot, using Node")
	return node.TypeNode
}
