package node

import (
	"testing"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, thread int) *Tree {
	return NewTree(thread, NewFactory(), common.NewTestEntry(t, logrus.DebugLevel))
}

func changeRecords(n *Node) *[]map[string]interface{} {
	var records []map[string]interface{}
	n.Observe(FieldChange, func(ev field.Event) {
		records = append(records, ev.Value.(map[string]interface{}))
	})
	return &records
}

func rec(op string, i1, i2 int) map[string]interface{} {
	return map[string]interface{}{
		"operation": op,
		"index1":    int32(i1),
		"index2":    int32(i2),
	}
}

func TestChangeRecords(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)
	b := tree.Create(TypeNode)

	records := changeRecords(parent)

	require.True(t, parent.AppendChild(a))
	require.True(t, parent.AppendChild(b))
	require.True(t, parent.RemoveChild(a))

	assert.Equal(t, []map[string]interface{}{
		rec(OpAdd, 0, 0),
		rec(OpAdd, 1, 1),
		rec(OpRemove, 0, 0),
	}, *records)
}

func TestNoChangeRecordsWithoutObserver(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)

	parent.AppendChild(a)
	parent.RemoveChild(a)

	f, ok := parent.Field(FieldChange)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{}, f.Value())
}

func TestMoveIsRemoveThenInsert(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)
	b := tree.Create(TypeNode)
	c := tree.Create(TypeNode)
	parent.AppendChild(a)
	parent.AppendChild(b)
	parent.AppendChild(c)

	records := changeRecords(parent)

	require.True(t, parent.InsertChild(a, 3))

	assert.Equal(t, []*Node{b, c, a}, parent.Children())
	assert.Equal(t, []map[string]interface{}{
		rec(OpRemove, 0, 0),
		rec(OpInsert, 2, 2),
	}, *records)

	*records = nil
	require.True(t, parent.MoveChild(2, 0))
	assert.Equal(t, []*Node{a, b, c}, parent.Children())
	assert.Equal(t, []map[string]interface{}{
		rec(OpRemove, 2, 2),
		rec(OpInsert, 0, 0),
	}, *records)
}

func TestReparent(t *testing.T) {
	tree := newTestTree(t, 0)
	p1 := tree.Create(TypeGroup)
	p2 := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)

	p1.AppendChild(a)
	p2.AppendChild(a)

	assert.Equal(t, 0, p1.ChildCount())
	assert.Equal(t, p2, a.Parent())

	assert.False(t, a.AppendChild(p2), "a node can not adopt its ancestor")
}

func TestClampedIndices(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)
	b := tree.Create(TypeNode)
	c := tree.Create(TypeNode)

	require.True(t, parent.ReplaceChild(a, 5))
	assert.Equal(t, []*Node{a}, parent.Children())

	require.True(t, parent.InsertChild(b, -3))
	assert.Equal(t, []*Node{b, a}, parent.Children())

	records := changeRecords(parent)

	require.True(t, parent.ReplaceChild(c, 99))
	assert.Equal(t, []*Node{b, c}, parent.Children())
	assert.Nil(t, a.Parent())

	require.True(t, parent.RemoveChildren(7, 4))
	assert.Equal(t, []*Node{b}, parent.Children())

	assert.Equal(t, []map[string]interface{}{
		rec(OpSet, 1, 1),
		rec(OpRemove, 1, 1),
	}, *records)
}

func TestRemoveChildrenRange(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	var kids []*Node
	for i := 0; i < 4; i++ {
		k := tree.Create(TypeNode)
		kids = append(kids, k)
		parent.AppendChild(k)
	}

	records := changeRecords(parent)

	require.True(t, parent.RemoveChildren(1, 2))
	assert.Equal(t, []*Node{kids[0], kids[3]}, parent.Children())

	require.True(t, parent.ClearChildren())
	assert.Equal(t, 0, parent.ChildCount())

	assert.Equal(t, []map[string]interface{}{
		rec(OpRemove, 1, 2),
		rec(OpClear, 0, 1),
	}, *records)
}

func TestPlaceholders(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)

	parent.AppendChild(nil)
	parent.AppendChild(a)
	parent.InsertChild(nil, 1)

	assert.Equal(t, []*Node{nil, nil, a}, parent.Children())
	assert.Nil(t, parent.Child(0))

	require.True(t, parent.RemoveChild(nil))
	assert.Equal(t, []*Node{nil, a}, parent.Children())
}

func TestSetValue(t *testing.T) {
	tree := newTestTree(t, 0)
	n := tree.Create(TypeGroup)

	assert.True(t, n.SetValue("opacity", 0.5))
	v, ok := n.GetValue("opacity")
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v)

	err := n.TrySetValue("opacity", "opaque")
	assert.True(t, common.IsFieldErr(err, common.TypeMismatch))
	v, _ = n.GetValue("opacity")
	assert.Equal(t, float32(0.5), v)

	err = n.TrySetValue("nope", 1)
	assert.True(t, common.IsFieldErr(err, common.UnknownField))
	assert.False(t, n.SetValue("nope", 1))

	n.SetValueSilent("nope", 1)
	v, ok = n.GetValue("nope")
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
}

func TestSilentWriteDoesNotNotify(t *testing.T) {
	tree := newTestTree(t, 0)
	n := tree.Create(TypeNode)

	count := 0
	n.Observe(FieldID, func(field.Event) { count++ })

	n.SetValueSilent(FieldID, "a")
	assert.Equal(t, 0, count)
	n.SetValue(FieldID, "b")
	assert.Equal(t, 1, count)
	assert.True(t, n.Changed())
}

func TestAlias(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	label := tree.Create(TypeContentNode)
	label.SetValue(FieldID, "label")
	parent.AppendChild(label)

	require.True(t, parent.AddAlias("text", "label", "title"))

	var got field.Event
	parent.Observe("text", func(ev field.Event) { got = ev })

	assert.True(t, parent.SetValue("text", "hello"))
	v, _ := label.GetValue("title")
	assert.Equal(t, "hello", v)
	v, _ = parent.GetValue("text")
	assert.Equal(t, "hello", v)
	assert.Equal(t, "text", got.Field)

	parent.RemoveChild(label)
	err := parent.TrySetValue("text", "again")
	assert.True(t, common.IsFieldErr(err, common.AliasTarget))
}

func TestAliasFromFactory(t *testing.T) {
	factory := NewFactory()
	require.NoError(t, factory.Register(Subtype{
		Name:    "Label",
		Extends: TypeGroup,
		Fields: []FieldDef{
			{Name: "text", Alias: "inner.title"},
		},
	}))
	tree := NewTree(0, factory, common.NewTestEntry(t, logrus.DebugLevel))

	l := tree.Create("Label")
	inner := tree.Create(TypeContentNode)
	inner.SetValue(FieldID, "inner")
	l.AppendChild(inner)

	l.SetValue("text", "x")
	v, _ := inner.GetValue("title")
	assert.Equal(t, "x", v)
	assert.Equal(t, map[string]string{"text": "inner.title"}, l.Aliases())
}

func TestCloneKeepsSharedReferences(t *testing.T) {
	tree := newTestTree(t, 0)
	x := tree.Create(TypeGroup)
	y := tree.Create(TypeNode)
	y.SetValue(FieldID, "y")
	x.AppendChild(y)
	x.AddField("first", field.KindNode, y, field.Options{})
	x.AddField("second", field.KindNode, y, field.Options{})
	x.AddField("items", field.KindArray, []interface{}{"a"}, field.Options{})

	c := x.Clone(true)

	assert.NotEqual(t, x.Address(), c.Address())
	first, _ := c.GetValue("first")
	second, _ := c.GetValue("second")
	require.IsType(t, &Node{}, first)
	assert.Same(t, first, second)
	assert.NotSame(t, y, first)
	assert.Same(t, first, c.Child(0))
	assert.Equal(t, "y", first.(*Node).ID())

	items, _ := c.GetValue("items")
	assert.Equal(t, []interface{}{"a"}, items)

	shallow := x.Clone(false)
	assert.Equal(t, 0, shallow.ChildCount())
	f, _ := shallow.GetValue("first")
	assert.NotSame(t, y, f)
}

func TestShallowCloneCopiesNodeValuesWithChildren(t *testing.T) {
	tree := newTestTree(t, 0)
	x := tree.Create(TypeGroup)
	content := tree.Create(TypeGroup)
	leaf := tree.Create(TypeNode)
	leaf.SetValue(FieldID, "leaf")
	content.AppendChild(leaf)
	x.AddField("content", field.KindNode, content, field.Options{})
	x.AppendChild(tree.Create(TypeNode))

	c := x.Clone(false)

	assert.Equal(t, 0, c.ChildCount())
	v, _ := c.GetValue("content")
	require.IsType(t, &Node{}, v)
	copied := v.(*Node)
	assert.NotSame(t, content, copied)
	require.Equal(t, 1, copied.ChildCount())
	assert.NotSame(t, leaf, copied.Child(0))
	assert.Equal(t, "leaf", copied.Child(0).ID())
}

func TestFocusChain(t *testing.T) {
	tree := newTestTree(t, 0)
	root := tree.Create(TypeScene)
	left := tree.Create(TypeGroup)
	right := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)
	b := tree.Create(TypeNode)
	root.AppendChild(left)
	root.AppendChild(right)
	left.AppendChild(a)
	right.AppendChild(b)

	focused := func(n *Node) interface{} {
		v, _ := n.GetValue(FieldFocusedChild)
		return v
	}

	require.True(t, a.SetFocus(true))
	assert.Equal(t, left, focused(root))
	assert.Equal(t, a, focused(left))
	assert.Equal(t, a, focused(a))
	assert.True(t, left.IsInFocusChain())

	require.True(t, b.SetFocus(true))
	assert.Equal(t, right, focused(root))
	assert.Equal(t, b, focused(right))
	assert.Equal(t, b, focused(b))
	assert.Equal(t, field.Invalid, focused(left))
	assert.Equal(t, field.Invalid, focused(a))
	assert.False(t, left.IsInFocusChain())
	assert.True(t, b.HasFocus())

	require.True(t, b.SetFocus(false))
	assert.Nil(t, tree.Focused())
	assert.Equal(t, field.Invalid, focused(root))
}

func TestOwnerLocked(t *testing.T) {
	tree := newTestTree(t, 0)
	scene := tree.Create(TypeScene)
	global := tree.Create(TypeGlobal)
	n := tree.Create(TypeNode)

	assert.True(t, common.IsFieldErr(scene.SetOwner(2), common.OwnerLocked))
	assert.True(t, common.IsFieldErr(global.SetOwner(2), common.OwnerLocked))
	assert.NoError(t, n.SetOwner(2))
	assert.Equal(t, 2, n.Owner())
	assert.Equal(t, scene, tree.Scene())
	assert.Equal(t, global, tree.Global())
}

func TestRemoveField(t *testing.T) {
	tree := newTestTree(t, 0)
	n := tree.Create(TypeNode)
	n.AddFields(map[string]interface{}{"score": 3, "name": "x"})

	assert.False(t, n.AddField("score", field.KindString, "", field.Options{}))
	assert.True(t, n.RemoveField("score"))
	assert.False(t, n.HasField("score"))
	assert.False(t, n.RemoveField(FieldFocusable))
}

func TestDestroy(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	child := tree.Create(TypeGroup)
	grandchild := tree.Create(TypeNode)
	parent.AppendChild(child)
	child.AppendChild(grandchild)

	count := 0
	child.Observe("visible", func(field.Event) { count++ })

	child.Destroy()

	assert.Equal(t, 0, parent.ChildCount())
	_, ok := tree.Lookup(child.Address())
	assert.False(t, ok)
	_, ok = tree.Lookup(grandchild.Address())
	assert.False(t, ok)

	f, _ := child.Field("visible")
	assert.False(t, f.HasObservers())
	assert.True(t, grandchild.Destroyed())
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register(Subtype{
		Name:    "Poster",
		Extends: TypeGroup,
		Fields: []FieldDef{
			{Name: "uri", Kind: field.KindString},
			{Name: "opacity", Kind: field.KindFloat, Value: float32(0.5)},
		},
	}))
	assert.Error(t, f.Register(Subtype{Name: "Poster"}))
	assert.Error(t, f.Register(Subtype{Name: "Orphan", Extends: "Missing"}))

	assert.Equal(t, []string{"Poster", TypeGroup, TypeNode}, f.Ancestry("Poster"))
	assert.Equal(t, TypeGroup, f.BaseType("Poster"))
	assert.True(t, f.IsSubtype("Poster", TypeNode))
	assert.False(t, f.IsSubtype(TypeNode, "Poster"))

	tree := NewTree(0, f, common.NewTestEntry(t, logrus.DebugLevel))
	p := tree.Create("Poster")
	v, _ := p.GetValue("opacity")
	assert.Equal(t, float32(0.5), v)
	assert.Equal(t, TypeGroup, p.Type())

	unknown := tree.Create("Nope")
	assert.Equal(t, TypeNode, unknown.Subtype())
}

func TestCallLocal(t *testing.T) {
	tree := newTestTree(t, 0)
	parent := tree.Create(TypeGroup)
	a := tree.Create(TypeNode)
	a.SetValue(FieldID, "a")
	parent.AppendChild(a)
	parent.AppendChild(nil)

	res, err := parent.Call(MethodGetChildCount)
	require.NoError(t, err)
	assert.Equal(t, int32(2), res)

	res, err = parent.Call(MethodGetChildren, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{a, field.Invalid}, res)

	res, _ = parent.Call(MethodGetChildren, 1, 1)
	assert.Equal(t, []interface{}{field.Invalid}, res)

	res, _ = parent.Call(MethodFindNode, "a")
	assert.Equal(t, a, res)

	res, _ = a.Call(MethodGetParent)
	assert.Equal(t, parent, res)

	res, _ = parent.Call(MethodIsSubtype, TypeNode)
	assert.Equal(t, true, res)

	res, _ = parent.Call(MethodSubtype)
	assert.Equal(t, TypeGroup, res)

	res, _ = parent.Call(MethodHasField, "visible")
	assert.Equal(t, true, res)

	res, _ = parent.Call(MethodGetFieldTypes)
	assert.Equal(t, "float", res.(map[string]interface{})["opacity"])

	res, _ = parent.Call(MethodGetFields)
	_, hidden := res.(map[string]interface{})[FieldChange]
	assert.False(t, hidden)

	_, err = parent.Call("explode")
	assert.True(t, common.IsFieldErr(err, common.UnknownMethod))
}
