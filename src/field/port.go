package field

import "sync/atomic"

// DefaultPortCapacity is used when NewPort is given a non-positive capacity.
const DefaultPortCapacity = 64

// Port is a bounded event queue. Posting never blocks the notifying thread;
// events that do not fit are dropped and counted.
type Port struct {
	ch      chan Event
	dropped uint64
}

// NewPort ...
func NewPort(capacity int) *Port {
	if capacity <= 0 {
		capacity = DefaultPortCapacity
	}
	return &Port{
		ch: make(chan Event, capacity),
	}
}

// Post queues an event and returns false if the port is full.
func (p *Port) Post(ev Event) bool {
	select {
	case p.ch <- ev:
		return true
	default:
		atomic.AddUint64(&p.dropped, 1)
		return false
	}
}

// C returns the channel events are delivered on.
func (p *Port) C() <-chan Event {
	return p.ch
}

// TryReceive returns the next queued event without blocking.
func (p *Port) TryReceive() (Event, bool) {
	select {
	case ev := <-p.ch:
		return ev, true
	default:
		return Event{}, false
	}
}

// Len returns the number of queued events.
func (p *Port) Len() int {
	return len(p.ch)
}

// Dropped returns the number of events that were discarded because the port
// was full.
func (p *Port) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}
