package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := New()
	assert.True(t, r.IsAlive(Coordinator))

	id := r.Register("loader", "task-1")
	assert.Equal(t, 1, id)
	assert.True(t, r.IsAlive(id))

	got, ok := r.ThreadForTask("task-1")
	require.True(t, ok)
	assert.Equal(t, id, got)

	r.Unregister(id)
	assert.False(t, r.IsAlive(id))
	assert.False(t, r.IsAlive(42))

	th, ok := r.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "loader", th.Name)
	assert.False(t, th.Stopped.IsZero())

	assert.Equal(t, 1, r.AliveCount())
	assert.Len(t, r.Threads(), 2)
}

func TestRegisterConcurrently(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	ids := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Register("w", "")
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, 50)
	assert.Equal(t, 51, r.AliveCount())
}
