package snapshot

import (
	"testing"

	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilePreservesIdentity(t *testing.T) {
	srcTree := newTestTree(t, nil)
	src := buildScene(srcTree)

	dstTree := newTestTree(t, nil)
	dst := Materialize(Serialize(src, Options{Deep: true}, nil), dstTree, nil, true)
	oldA := dst.Child(0)
	oldB := dst.Child(2)

	// reorder, drop the placeholder, add a child and change values
	a := src.Child(0)
	b := src.Child(2)
	src.RemoveChildren(0, 3)
	src.AppendChild(b)
	c := srcTree.NewNode(node.TypeNode, "c", 0)
	src.AppendChild(c)
	src.AppendChild(a)
	src.SetValue("opacity", 0.75)
	a.SetValue("title", "renamed")

	snap := Serialize(src, Options{Deep: true}, nil)
	Reconcile(snap, dst, nil)

	assert.Equal(t, snap, Serialize(dst, Options{Deep: true}, nil))
	assert.Same(t, oldB, dst.Child(0))
	assert.Same(t, oldA, dst.Child(2))
	assert.Equal(t, "c", dst.Child(1).Address())
	title, _ := oldA.GetValue("title")
	assert.Equal(t, "renamed", title)
}

func TestReconcileIsIdempotent(t *testing.T) {
	src := buildScene(newTestTree(t, nil))
	snap := Serialize(src, Options{Deep: true}, nil)

	dstTree := newTestTree(t, nil)
	dst := dstTree.NewNode(node.TypeGroup, "root", 0)

	Reconcile(snap, dst, nil)
	first := Serialize(dst, Options{Deep: true}, nil)
	children := dst.Children()

	var records []interface{}
	dst.Observe(node.FieldChange, func(ev field.Event) { records = append(records, ev.Value) })
	count := 0
	dst.Observe("opacity", func(field.Event) { count++ })

	dst.SetChanged(false)
	Reconcile(snap, dst, nil)

	assert.Equal(t, first, Serialize(dst, Options{Deep: true}, nil))
	assert.Equal(t, children, dst.Children())
	assert.Empty(t, records)
	assert.Equal(t, 0, count)
	assert.True(t, dst.Changed(), "reconcile always marks the target dirty")
}

func TestReconcileChildrenEdgeCases(t *testing.T) {
	tree := newTestTree(t, nil)
	target := tree.NewNode(node.TypeGroup, "t", 0)
	x := tree.NewNode(node.TypeNode, "x", 0)
	y := tree.NewNode(node.TypeNode, "y", 0)
	z := tree.NewNode(node.TypeNode, "z", 0)
	target.AppendChild(x)
	target.AppendChild(y)
	target.AppendChild(z)

	snap := Snapshot{
		KeyNode:    "Group:Group",
		KeyAddress: "t",
		KeyChildren: []interface{}{
			Snapshot{KeyCircular: "missing"},
			Snapshot{KeyNode: "Node:Node", KeyAddress: "y"},
			InvalidMarker(),
		},
	}
	Reconcile(snap, target, nil)

	assert.Equal(t, []*node.Node{nil, y, nil}, target.Children())
	assert.Nil(t, x.Parent())
	assert.Nil(t, z.Parent())
}

func TestReconcileNodeFields(t *testing.T) {
	tree := newTestTree(t, nil)
	target := tree.NewNode(node.TypeNode, "t", 0)
	content := tree.NewNode(node.TypeContentNode, "c1", 0)
	target.AddField("content", field.KindNode, content, field.Options{})

	snap := Snapshot{
		KeyNode:    "Node:Node",
		KeyAddress: "t",
		"content": Snapshot{
			KeyNode:    "ContentNode:ContentNode",
			KeyAddress: "c1",
			"title":    "same node",
		},
	}
	Reconcile(snap, target, nil)

	v, _ := target.GetValue("content")
	assert.Same(t, content, v)
	title, _ := content.GetValue("title")
	assert.Equal(t, "same node", title)

	snap["content"] = Snapshot{KeyNode: "ContentNode:ContentNode", KeyAddress: "c2"}
	Reconcile(snap, target, nil)
	v, _ = target.GetValue("content")
	require.IsType(t, &node.Node{}, v)
	assert.Equal(t, "c2", v.(*node.Node).Address())
}

func TestReconcileMoveRecordsRemoveThenInsert(t *testing.T) {
	srcTree := newTestTree(t, nil)
	src := srcTree.NewNode(node.TypeGroup, "root", 0)
	a := srcTree.NewNode(node.TypeNode, "a", 0)
	b := srcTree.NewNode(node.TypeNode, "b", 0)
	src.AppendChild(a)
	src.AppendChild(b)

	dstTree := newTestTree(t, nil)
	dst := Materialize(Serialize(src, Options{Deep: true}, nil), dstTree, nil, true)
	oldA, oldB := dst.Child(0), dst.Child(1)

	src.MoveChild(1, 0)
	snap := Serialize(src, Options{Deep: true}, nil)

	var records []interface{}
	dst.Observe(node.FieldChange, func(ev field.Event) { records = append(records, ev.Value) })

	Reconcile(snap, dst, nil)

	assert.Same(t, oldB, dst.Child(0))
	assert.Same(t, oldA, dst.Child(1))
	assert.Equal(t, []interface{}{
		map[string]interface{}{"operation": node.OpRemove, "index1": int32(1), "index2": int32(1)},
		map[string]interface{}{"operation": node.OpInsert, "index1": int32(0), "index2": int32(0)},
	}, records)
}
