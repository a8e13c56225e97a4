package task

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// Context is handed to a task Function. Its nodes live in the worker's own
// tree and must only be used from the Function's goroutine.
type Context struct {
	// Top is the task node.
	Top *node.Node

	// Global and Scene are the worker's copies of the global and scene nodes.
	// They are nil when the coordinator had none.
	Global *node.Node
	Scene  *node.Node

	Tree   *node.Tree
	Logger *logrus.Entry

	worker *Worker
}

// ID returns the thread id of the task.
func (c *Context) ID() int {
	return c.worker.id
}

// Stopped reports whether the task was asked to stop.
func (c *Context) Stopped() bool {
	return c.worker.stopping || c.worker.link.IsClosed()
}

// NewPort creates a message port with the configured capacity.
func (c *Context) NewPort() *field.Port {
	return field.NewPort(c.worker.conf.PortCapacity)
}

// Poll starts a new loop turn and handles the messages already received
// from the coordinator.
func (c *Context) Poll() {
	c.worker.conn.BeginTurn()
	c.worker.conn.Poll()
}

// Wait blocks until an event is posted on port, timeout elapses or the task
// is stopped, handling messages from the coordinator meanwhile. port may be
// nil and a timeout of 0 waits without limit. It returns false if no event
// was received.
func (c *Context) Wait(port *field.Port, timeout time.Duration) (field.Event, bool) {
	w := c.worker

	var t <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		t = timer.C
	}

	var events <-chan field.Event
	if port != nil {
		events = port.C()
	}

	for {
		w.conn.BeginTurn()

		if port != nil {
			if ev, ok := port.TryReceive(); ok {
				return ev, true
			}
		}
		if c.Stopped() {
			return field.Event{}, false
		}

		select {
		case ev := <-events:
			return ev, true
		case msg, ok := <-w.conn.Inbox():
			if !ok {
				return field.Event{}, false
			}
			w.conn.Handle(msg)
		case <-w.link.Closed():
			return field.Event{}, false
		case <-t:
			return field.Event{}, false
		}
	}
}
