package snapshot

import (
	"testing"

	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecCBOR} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCodec(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			src := buildScene(newTestTree(t, nil))
			data, err := c.Marshal(Serialize(src, Options{Deep: true}, nil))
			require.NoError(t, err)

			var decoded Snapshot
			require.NoError(t, c.Unmarshal(data, &decoded))

			dst := newTestTree(t, nil)
			n := Materialize(decoded, dst, nil, true)
			require.NotNil(t, n)

			assert.Equal(t, "root", n.Address())
			assert.Equal(t, 0, n.Owner())

			opacity, _ := n.GetValue("opacity")
			assert.Equal(t, float32(0.5), opacity)
			count, _ := n.GetValue("count")
			assert.EqualValues(t, 3, count)
			big, _ := n.GetValue("big")
			assert.EqualValues(t, int64(1)<<40, big)
			on, _ := n.GetValue("on")
			assert.Equal(t, true, on)
			meta, _ := n.GetValue("meta")
			assert.Equal(t, "v", meta.(map[string]interface{})["k"])

			require.Equal(t, 3, n.ChildCount())
			assert.Nil(t, n.Child(1))
			title, _ := n.Child(0).GetValue("title")
			assert.Equal(t, "first", title)
			assert.Equal(t, node.TypeContentNode, n.Child(0).Subtype())
			assert.Equal(t, "leaf", n.Child(2).Child(0).ID())
		})
	}
}

func TestUnknownCodec(t *testing.T) {
	_, err := NewCodec("xml")
	assert.Error(t, err)
}
