package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

func TestEncodeSnapshot(t *testing.T) {
	s := snapshot.Snapshot{
		snapshot.KeyNode:    "Scene",
		snapshot.KeyAddress: "a1",
		"id":                "root",
	}

	out, err := encodeSnapshot(s, "yaml")
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "root", back["id"])

	out, err = encodeSnapshot(s, "json")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"root"`)

	c, err := snapshot.NewCBORCodec()
	require.NoError(t, err)
	out, err = encodeSnapshot(s, "cbor")
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, c.Unmarshal(out, &decoded))
	assert.Equal(t, "a1", decoded[snapshot.KeyAddress])

	_, err = encodeSnapshot(s, "xml")
	assert.Error(t, err)
}
