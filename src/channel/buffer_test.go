package channel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferConsumeOnce(t *testing.T) {
	b := NewBuffer()

	_, ok := b.Consume()
	assert.False(t, ok)
	assert.Equal(t, Idle, b.Version())

	b.Publish([]byte("one"))
	assert.Equal(t, Ready, b.Version())

	data, ok := b.Consume()
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), data)
	assert.Equal(t, Idle, b.Version())

	_, ok = b.Consume()
	assert.False(t, ok)
}

func TestBufferPublishReplaces(t *testing.T) {
	b := NewBuffer()
	b.Publish([]byte("one"))
	b.Publish([]byte("two"))

	data, ok := b.Consume()
	assert.True(t, ok)
	assert.Equal(t, []byte("two"), data)

	publishes, consumed := b.Stats()
	assert.Equal(t, uint64(2), publishes)
	assert.Equal(t, uint64(1), consumed)
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	b.Publish([]byte("one"))
	b.Reset()

	_, ok := b.Consume()
	assert.False(t, ok)

	select {
	case <-b.Signal():
		t.Fatal("signal should be drained")
	default:
	}
}

func TestBufferConcurrentConsumers(t *testing.T) {
	b := NewBuffer()
	b.Publish([]byte("x"))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := b.Consume(); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}
