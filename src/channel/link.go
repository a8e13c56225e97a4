package channel

import (
	"sync"

	"github.com/mosaicnetworks/scenegraph/src/registry"
)

// Link joins one worker to the coordinator.
type Link struct {
	worker int

	toWorker *Buffer
	toCoord  *Buffer

	workerInbox chan Message
	coordInbox  chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewLink creates the link of a worker. coordInbox is the inbox the
// coordinator shares between all its links.
func NewLink(worker int, coordInbox chan Message, capacity int) *Link {
	return &Link{
		worker:      worker,
		toWorker:    NewBuffer(),
		toCoord:     NewBuffer(),
		workerInbox: make(chan Message, capacity),
		coordInbox:  coordInbox,
		closed:      make(chan struct{}),
	}
}

// Worker returns the thread id of the worker end.
func (l *Link) Worker() int {
	return l.worker
}

// WorkerInbox ...
func (l *Link) WorkerInbox() chan Message {
	return l.workerInbox
}

// Close marks the link closed and drops any payload not yet consumed.
// Blocked senders and waiters on both ends return.
func (l *Link) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.toWorker.Reset()
		l.toCoord.Reset()
	})
}

// Closed ...
func (l *Link) Closed() <-chan struct{} {
	return l.closed
}

// IsClosed ...
func (l *Link) IsClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// inboxFor returns the inbox of the given end.
func (l *Link) inboxFor(thread int) chan Message {
	if thread == registry.Coordinator {
		return l.coordInbox
	}
	return l.workerInbox
}

// bufferFor returns the buffer the given end consumes.
func (l *Link) bufferFor(thread int) *Buffer {
	if thread == registry.Coordinator {
		return l.toCoord
	}
	return l.toWorker
}

// LinkStats ...
type LinkStats struct {
	Worker          int    `json:"worker"`
	Closed          bool   `json:"closed"`
	Inbox           int    `json:"inbox"`
	ToWorkerPublish uint64 `json:"to_worker_publishes"`
	ToCoordPublish  uint64 `json:"to_coord_publishes"`
}

// Stats ...
func (l *Link) Stats() LinkStats {
	tw, _ := l.toWorker.Stats()
	tc, _ := l.toCoord.Stats()
	return LinkStats{
		Worker:          l.worker,
		Closed:          l.IsClosed(),
		Inbox:           len(l.workerInbox),
		ToWorkerPublish: tw,
		ToCoordPublish:  tc,
	}
}
