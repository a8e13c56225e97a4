package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cm "github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

func testScene(t *testing.T) snapshot.Snapshot {
	tree := node.NewTree(0, node.NewFactory(), cm.NewTestEntry(t, cm.TestLogLevel))
	scene := tree.NewNode(node.TypeScene, "scene", 0)
	content := tree.NewNode(node.TypeContentNode, "content", 0)
	content.SetValue("title", "stored")
	scene.AppendChild(content)
	scene.AppendChild(nil)
	return snapshot.Serialize(scene, snapshot.Options{Deep: true}, nil)
}

func checkLoaded(t *testing.T, s snapshot.Snapshot) {
	tree := node.NewTree(0, node.NewFactory(), cm.NewTestEntry(t, cm.TestLogLevel))
	scene := snapshot.Materialize(s, tree, nil, true)
	require.NotNil(t, scene)

	assert.Equal(t, "scene", scene.Address())
	assert.True(t, scene.IsSubtype(node.TypeScene))
	require.Equal(t, 2, scene.ChildCount())
	assert.Nil(t, scene.Child(1))

	title, ok := scene.Child(0).GetValue("title")
	require.True(t, ok)
	assert.Equal(t, "stored", title)
}

func testStore(t *testing.T, s Store) {
	snap := testScene(t)

	_, err := s.LoadSnapshot(SceneKey)
	assert.True(t, cm.IsStore(err, cm.KeyNotFound))

	require.NoError(t, s.SaveSnapshot(SceneKey, snap))
	require.NoError(t, s.SaveSnapshot("other", snapshot.Snapshot{}))

	loaded, err := s.LoadSnapshot(SceneKey)
	require.NoError(t, err)
	checkLoaded(t, loaded)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"other", SceneKey}, keys)
}

func TestInmemStore(t *testing.T) {
	codec, err := snapshot.NewCodec(snapshot.CodecCBOR)
	require.NoError(t, err)

	s := NewInmemStore(codec)
	testStore(t, s)

	require.NoError(t, s.Close())
	_, err = s.LoadSnapshot(SceneKey)
	assert.True(t, cm.IsStore(err, cm.StoreClosed))
}

func TestBadgerStore(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.NewJSONCodec()

	s, err := NewBadgerStore(dir, codec, cm.NewTestEntry(t, cm.TestLogLevel))
	require.NoError(t, err)
	assert.Equal(t, dir, s.StorePath())

	testStore(t, s)
	require.NoError(t, s.Close())

	// reopen
	s, err = NewBadgerStore(dir, codec, nil)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.LoadSnapshot(SceneKey)
	require.NoError(t, err)
	checkLoaded(t, loaded)
}
