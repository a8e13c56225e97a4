package channel

import (
	"sync"
	"sync/atomic"
)

// Buffer versions.
const (
	Idle  int32 = 0
	Ready int32 = 1
)

// Buffer is a single-slot mailbox for encoded responses travelling in one
// direction of a Link.
type Buffer struct {
	mu      sync.Mutex
	version int32
	data    []byte
	signal  chan struct{}

	publishes uint64
	consumed  uint64
}

// NewBuffer ...
func NewBuffer() *Buffer {
	return &Buffer{
		signal: make(chan struct{}, 1),
	}
}

// Publish stores a payload, replacing any unconsumed one, and marks the
// buffer ready.
func (b *Buffer) Publish(data []byte) {
	b.mu.Lock()
	b.data = data
	atomic.StoreInt32(&b.version, Ready)
	b.mu.Unlock()

	atomic.AddUint64(&b.publishes, 1)

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Consume returns the ready payload and marks the buffer idle. Only one of
// several concurrent consumers gets a given payload.
func (b *Buffer) Consume() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&b.version, Ready, Idle) {
		return nil, false
	}
	data := b.data
	b.data = nil
	atomic.AddUint64(&b.consumed, 1)
	return data, true
}

// Version returns Idle or Ready.
func (b *Buffer) Version() int32 {
	return atomic.LoadInt32(&b.version)
}

// Signal fires after a Publish. It may fire for a payload that was already
// consumed.
func (b *Buffer) Signal() <-chan struct{} {
	return b.signal
}

// Reset drops any unconsumed payload.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.data = nil
	atomic.StoreInt32(&b.version, Idle)
	b.mu.Unlock()

	select {
	case <-b.signal:
	default:
	}
}

// Stats returns the number of publishes and successful consumes.
func (b *Buffer) Stats() (publishes, consumed uint64) {
	return atomic.LoadUint64(&b.publishes), atomic.LoadUint64(&b.consumed)
}
