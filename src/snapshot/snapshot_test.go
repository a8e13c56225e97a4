package snapshot

import (
	"testing"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, factory *node.Factory) *node.Tree {
	if factory == nil {
		factory = node.NewFactory()
	}
	return node.NewTree(0, factory, common.NewTestEntry(t, logrus.DebugLevel))
}

// buildScene returns an acyclic tree with every kind of field value, a nested
// child and a placeholder.
func buildScene(tree *node.Tree) *node.Node {
	root := tree.NewNode(node.TypeGroup, "root", 0)
	root.SetValue(node.FieldID, "root")
	root.SetValue("opacity", 0.5)
	root.AddFields(map[string]interface{}{
		"count": 3,
		"big":   int64(1) << 40,
		"ratio": 0.25,
		"on":    true,
		"tags":  []interface{}{"a", int32(1)},
		"meta":  map[string]interface{}{"k": "v", "n": []interface{}{false}},
	})

	a := tree.NewNode(node.TypeContentNode, "a", 0)
	a.SetValue("title", "first")
	b := tree.NewNode(node.TypeGroup, "b", 0)
	leaf := tree.NewNode(node.TypeNode, "leaf", 0)
	leaf.SetValue(node.FieldID, "leaf")
	b.AppendChild(leaf)

	root.AppendChild(a)
	root.AppendChild(nil)
	root.AppendChild(b)
	return root
}

func TestRoundTrip(t *testing.T) {
	src := buildScene(newTestTree(t, nil))
	snap := Serialize(src, Options{Deep: true}, nil)

	dst := newTestTree(t, nil)
	n := Materialize(snap, dst, nil, true)
	require.NotNil(t, n)

	assert.Equal(t, snap, Serialize(n, Options{Deep: true}, nil))
	assert.Equal(t, 3, n.ChildCount())
	assert.Nil(t, n.Child(1))
	assert.Equal(t, "leaf", n.Child(2).Child(0).ID())
	assert.Equal(t, 4, dst.Len())
	assert.False(t, n.Changed())
}

func TestSharedReferenceIsCircular(t *testing.T) {
	tree := newTestTree(t, nil)
	x := tree.NewNode(node.TypeNode, "n1", 0)
	y := tree.NewNode(node.TypeContentNode, "n2", 0)
	y.SetValue("title", "why")
	x.AddField("a", field.KindNode, y, field.Options{})
	x.AddField("b", field.KindNode, y, field.Options{})

	snap := Serialize(x, Options{}, nil)

	full, ok := snap["a"].(Snapshot)
	require.True(t, ok)
	assert.Equal(t, "n2", full[KeyAddress])
	assert.Equal(t, "why", full["title"])
	assert.Equal(t, Snapshot{KeyCircular: "n2"}, snap["b"])

	dst := newTestTree(t, nil)
	n := Materialize(snap, dst, nil, false)
	a, _ := n.GetValue("a")
	b, _ := n.GetValue("b")
	require.IsType(t, &node.Node{}, a)
	assert.Same(t, a, b)
	assert.Equal(t, "n2", a.(*node.Node).Address())
}

func TestBackReferenceCycle(t *testing.T) {
	tree := newTestTree(t, nil)
	p := tree.NewNode(node.TypeGroup, "p", 0)
	c := tree.NewNode(node.TypeNode, "c", 0)
	p.AppendChild(c)
	c.AddField("up", field.KindNode, p, field.Options{})
	p.SetFocus(true)

	snap := Serialize(p, Options{Deep: true}, nil)

	dst := newTestTree(t, nil)
	n := Materialize(snap, dst, nil, true)
	child := n.Child(0)
	require.NotNil(t, child)

	up, _ := child.GetValue("up")
	assert.Same(t, n, up)
	focused, _ := n.GetValue(node.FieldFocusedChild)
	assert.Same(t, n, focused)
}

func TestForwardReferenceIsInvalid(t *testing.T) {
	snap := Snapshot{
		KeyNode:    "Node:Node",
		KeyAddress: "n1",
		"a":        Snapshot{KeyCircular: "n9"},
		"b":        Snapshot{KeyNode: "Node:Node", KeyAddress: "n9"},
	}

	tree := newTestTree(t, nil)
	n := Materialize(snap, tree, nil, false)

	a, _ := n.GetValue("a")
	b, _ := n.GetValue("b")
	assert.Equal(t, field.Invalid, a)
	assert.IsType(t, &node.Node{}, b)
}

func TestMalformedSnapshots(t *testing.T) {
	tree := newTestTree(t, nil)

	n := Materialize(Snapshot{KeyAddress: "x", "score": 4}, tree, nil, true)
	require.NotNil(t, n)
	assert.Equal(t, node.TypeNode, n.Subtype())
	v, _ := n.GetValue("score")
	assert.Equal(t, int32(4), v)

	n = Materialize(Snapshot{KeyNode: "Group:Fancy", KeyAddress: "y"}, tree, nil, true)
	assert.Equal(t, node.TypeGroup, n.Subtype())

	n = Materialize(Snapshot{KeyNode: "Weird:Thing"}, tree, nil, true)
	assert.Equal(t, node.TypeNode, n.Subtype())
	assert.NotEmpty(t, n.Address())

	assert.Nil(t, Materialize(InvalidMarker(), tree, nil, true))
}

func TestHiddenObservedPublish(t *testing.T) {
	tree := newTestTree(t, nil)
	n := tree.NewNode(node.TypeContentNode, "n1", 0)
	n.AddField("secret", field.KindString, "s", field.Options{Hidden: true})
	n.SetValue("title", "t")
	tree.AddRemoteObserver("n1", "title", 2)

	snap := Serialize(n, Options{Observed: true, Host: 2, Publish: true}, nil)
	_, ok := snap["secret"]
	assert.False(t, ok)
	_, ok = snap[node.FieldChange]
	assert.False(t, ok)
	assert.Equal(t, []string{"title"}, Observed(snap))
	assert.False(t, n.Changed())

	snap = Serialize(n, Options{Observed: true, Host: 3}, nil)
	_, ok = snap[KeyObserved]
	assert.False(t, ok)

	n.GetValue("secret")
	snap = Serialize(n, Options{}, nil)
	assert.Equal(t, "s", snap["secret"])
}

func TestMaterializeReusesExistingNodes(t *testing.T) {
	tree := newTestTree(t, nil)
	existing := tree.NewNode(node.TypeContentNode, "n1", 0)

	snap := Snapshot{KeyNode: "ContentNode:ContentNode", KeyAddress: "n1", "title": "patched"}
	n := Materialize(snap, tree, nil, true)

	assert.Same(t, existing, n)
	v, _ := existing.GetValue("title")
	assert.Equal(t, "patched", v)
}
