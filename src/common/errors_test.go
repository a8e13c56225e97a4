package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldErr(t *testing.T) {
	err := NewFieldErr("n1", TypeMismatch, "width")

	assert.True(t, IsFieldErr(err, TypeMismatch))
	assert.False(t, IsFieldErr(err, UnknownField))
	assert.False(t, IsFieldErr(fmt.Errorf("other"), TypeMismatch))
	assert.Equal(t, "n1, width, Type Mismatch", err.Error())
}

func TestSyncErr(t *testing.T) {
	err := NewSyncErr(3, "field:text", Timeout)

	assert.True(t, IsSyncErr(err, Timeout))
	assert.False(t, IsSyncErr(err, Closed))
	assert.Equal(t, "thread 3, field:text, Timeout", err.Error())
}

func TestStoreErr(t *testing.T) {
	err := NewStoreErr("Snapshot", KeyNotFound, "scene")

	assert.True(t, IsStore(err, KeyNotFound))
	assert.False(t, IsStore(err, Empty))
	assert.Equal(t, "Snapshot, scene, Not Found", err.Error())
}
