package channel

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/registry"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

// Config holds what a Conn needs.
type Config struct {
	Thread   int
	Tree     *node.Tree
	Registry *registry.Registry
	Codec    snapshot.Codec
	Timeout  time.Duration

	// Inbox is the coordinator's shared inbox, or the worker end of the
	// worker's link.
	Inbox <-chan Message

	// Uplink is the link of a worker. It is nil for the coordinator.
	Uplink *Link

	// Done stops blocked operations when closed. It may be nil.
	Done <-chan struct{}

	Logger *logrus.Entry
}

// Conn is the end of the synchronization channel owned by one thread. It
// implements node.Synchronizer for the thread's tree. A Conn must only be
// used from its thread's goroutine, except for the link management methods.
type Conn struct {
	thread   int
	tree     *node.Tree
	registry *registry.Registry
	codec    snapshot.Codec
	timeout  time.Duration
	inbox    <-chan Message
	done     <-chan struct{}

	uplink    *Link
	linksLock sync.RWMutex
	links     map[int]*Link

	pending []Message
	fresh   *freshness
	seq     uint64

	controlHandler func(Message)

	logger *logrus.Entry
}

// NewConn creates a Conn and installs it as the synchronizer of the tree.
func NewConn(conf Config) *Conn {
	logger := conf.Logger
	if logger == nil {
		logger = conf.Tree.Logger()
	}

	c := &Conn{
		thread:   conf.Thread,
		tree:     conf.Tree,
		registry: conf.Registry,
		codec:    conf.Codec,
		timeout:  conf.Timeout,
		inbox:    conf.Inbox,
		done:     conf.Done,
		uplink:   conf.Uplink,
		links:    make(map[int]*Link),
		fresh:    newFreshness(),
		logger:   logger,
	}

	conf.Tree.SetSynchronizer(c)

	return c
}

// Thread ...
func (c *Conn) Thread() int {
	return c.thread
}

// Tree ...
func (c *Conn) Tree() *node.Tree {
	return c.tree
}

// Inbox returns the channel the thread receives messages on.
func (c *Conn) Inbox() <-chan Message {
	return c.inbox
}

// MarkPushed records that the owner of n pushes every write to a field, so
// the local copy is always fresh. AllFields covers every field of n.
func (c *Conn) MarkPushed(n *node.Node, fieldName string) {
	c.fresh.markPushed(n.Address(), fieldName)
}

// SetControlHandler sets the function receiving Control messages.
func (c *Conn) SetControlHandler(fn func(Message)) {
	c.controlHandler = fn
}

// AddLink attaches the link of a worker to the coordinator's Conn.
func (c *Conn) AddLink(l *Link) {
	c.linksLock.Lock()
	defer c.linksLock.Unlock()
	c.links[l.worker] = l
}

// RemoveLink closes and detaches the link of a worker, and forgets the
// remote observations the worker made.
func (c *Conn) RemoveLink(worker int) {
	c.linksLock.Lock()
	l, ok := c.links[worker]
	delete(c.links, worker)
	c.linksLock.Unlock()

	if ok {
		l.Close()
	}
	c.tree.RemoveThread(worker)
}

// Link returns the link of a worker.
func (c *Conn) Link(worker int) (*Link, bool) {
	c.linksLock.RLock()
	defer c.linksLock.RUnlock()
	l, ok := c.links[worker]
	return l, ok
}

// Links returns the attached links ordered by worker.
func (c *Conn) Links() []*Link {
	c.linksLock.RLock()
	defer c.linksLock.RUnlock()
	res := make([]*Link, 0, len(c.links))
	for _, l := range c.links {
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].worker < res[j].worker })
	return res
}

// route returns the thread a message for thread target goes to. Workers
// only talk to the coordinator.
func (c *Conn) route(target int) int {
	if c.thread != registry.Coordinator {
		return registry.Coordinator
	}
	return target
}

func (c *Conn) linkTo(peer int) *Link {
	if c.thread != registry.Coordinator {
		return c.uplink
	}
	c.linksLock.RLock()
	defer c.linksLock.RUnlock()
	return c.links[peer]
}

func (c *Conn) nextSeq() uint64 {
	c.seq++
	return c.seq
}

/*******************************************************************************
Sending
*******************************************************************************/

// send queues a message in the inbox of peer. It blocks while the inbox is
// full, up to the rendezvous timeout.
func (c *Conn) send(peer int, msg Message) error {
	l := c.linkTo(peer)
	if l == nil || l.IsClosed() {
		return common.NewSyncErr(peer, msg.Kind.String(), common.Closed)
	}

	msg.From = c.thread
	ch := l.inboxFor(peer)

	select {
	case ch <- msg:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- msg:
		return nil
	case <-l.closed:
		return common.NewSyncErr(peer, msg.Kind.String(), common.Closed)
	case <-c.done:
		return common.NewSyncErr(peer, msg.Kind.String(), common.Closed)
	case <-timeout:
		return common.NewSyncErr(peer, msg.Kind.String(), common.Unavailable)
	}
}

// SendControl sends a Control command to a thread.
func (c *Conn) SendControl(thread int, command string) error {
	return c.send(c.route(thread), Message{
		Kind:    Control,
		Command: command,
	})
}

// publish encodes a response and stores it in the buffer consumed by to.
func (c *Conn) publish(to int, env Envelope) {
	l := c.linkTo(to)
	if l == nil {
		c.logger.WithField("to", to).Debug("No link to publish on")
		return
	}

	data, err := c.codec.Marshal(env)
	if err != nil {
		c.logger.WithError(err).Error("Encoding response")
		data, _ = c.codec.Marshal(Envelope{Seq: env.Seq, Error: err.Error()})
	}

	l.bufferFor(to).Publish(data)
	publishesTotal.Inc()
}

/*******************************************************************************
Waiting
*******************************************************************************/

// await blocks until peer publishes the response to request seq. Requests
// received meanwhile are served; updates and control messages are kept for
// the next turn.
func (c *Conn) await(peer int, seq uint64, op string) (Envelope, error) {
	l := c.linkTo(peer)
	if l == nil {
		return Envelope{}, common.NewSyncErr(peer, op, common.Closed)
	}
	buf := l.bufferFor(c.thread)

	start := time.Now()
	defer func() {
		rendezvousDuration.Observe(time.Since(start).Seconds())
	}()

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if data, ok := buf.Consume(); ok {
			env, err := c.open(peer, data)
			if err != nil {
				if common.IsSyncErr(err, common.Closed) {
					return Envelope{}, err
				}
			} else if env.Seq != seq {
				discardedTotal.WithLabelValues("stale").Inc()
				c.logger.WithFields(logrus.Fields{
					"peer":     peer,
					"seq":      env.Seq,
					"expected": seq,
				}).Debug("Discarding stale response")
			} else {
				return env, nil
			}
		}

		if !c.registry.IsAlive(peer) {
			return Envelope{}, common.NewSyncErr(peer, op, common.Closed)
		}

		select {
		case <-buf.Signal():
		case msg, ok := <-c.inbox:
			if !ok {
				return Envelope{}, common.NewSyncErr(peer, op, common.Closed)
			}
			c.handleWhileWaiting(msg)
		case <-l.closed:
			return Envelope{}, common.NewSyncErr(peer, op, common.Closed)
		case <-c.done:
			return Envelope{}, common.NewSyncErr(peer, op, common.Closed)
		case <-timeout:
			return Envelope{}, common.NewSyncErr(peer, op, common.Timeout)
		}
	}
}

// open decodes a consumed payload. Payloads from threads that stopped are
// discarded.
func (c *Conn) open(peer int, data []byte) (Envelope, error) {
	if !c.registry.IsAlive(peer) {
		discardedTotal.WithLabelValues("dead").Inc()
		return Envelope{}, common.NewSyncErr(peer, "open", common.Closed)
	}

	var env Envelope
	if err := c.codec.Unmarshal(data, &env); err != nil {
		discardedTotal.WithLabelValues("malformed").Inc()
		c.logger.WithError(err).WithField("peer", peer).Warn("Discarding malformed response")
		return Envelope{}, common.NewSyncErr(peer, "open", common.Malformed)
	}
	return env, nil
}

func (c *Conn) handleWhileWaiting(msg Message) {
	switch msg.Kind {
	case FieldRequest, MethodRequest, Observe:
		c.Handle(msg)
	default:
		c.pending = append(c.pending, msg)
	}
}

/*******************************************************************************
Loop turns
*******************************************************************************/

// BeginTurn starts a loop turn: fields fetched during the previous turn are
// no longer fresh, and messages kept during rendezvous are applied.
func (c *Conn) BeginTurn() {
	c.fresh.reset()

	pending := c.pending
	c.pending = nil
	for _, msg := range pending {
		c.Handle(msg)
	}
}

// Poll handles the messages already in the inbox without blocking and
// returns how many it handled.
func (c *Conn) Poll() int {
	count := 0
	for {
		select {
		case msg, ok := <-c.inbox:
			if !ok {
				return count
			}
			c.Handle(msg)
			count++
		default:
			return count
		}
	}
}

// Next blocks until a message is handled, timeout elapses or the Conn is
// done. A timeout of 0 waits without limit. It returns false if no message
// was handled.
func (c *Conn) Next(timeout time.Duration) bool {
	var t <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		t = timer.C
	}

	select {
	case msg, ok := <-c.inbox:
		if !ok {
			return false
		}
		c.Handle(msg)
		return true
	case <-c.done:
		return false
	case <-t:
		return false
	}
}

// Pending returns the number of messages waiting for the next turn.
func (c *Conn) Pending() int {
	return len(c.pending)
}

// Handle processes one inbound message on the owner side.
func (c *Conn) Handle(msg Message) {
	switch msg.Kind {
	case FieldRequest:
		c.serveField(msg)
	case MethodRequest:
		c.serveMethod(msg)
	case Observe:
		c.serveObserve(msg)
	case Update:
		c.applyUpdate(msg)
	case Control:
		if c.controlHandler != nil {
			c.controlHandler(msg)
		} else {
			c.logger.WithFields(logrus.Fields{
				"from":    msg.From,
				"command": msg.Command,
			}).Debug("Ignoring control message")
		}
	default:
		c.logger.WithField("kind", msg.Kind).Warn("Unknown message kind")
	}
}

func (c *Conn) serveField(msg Message) {
	env := Envelope{Seq: msg.Seq}

	n, ok := c.tree.Resolve(msg.Domain, msg.Address)
	if ok {
		env.OK = true
		env.Value = snapshot.Serialize(n, snapshot.Options{
			Observed: true,
			Host:     msg.From,
			Publish:  true,
		}, nil)
	} else {
		env.Error = "unknown node " + msg.Address
	}

	c.publish(msg.From, env)
}

func (c *Conn) serveMethod(msg Message) {
	env := Envelope{Seq: msg.Seq}

	n, ok := c.tree.Resolve(msg.Domain, msg.Address)
	if !ok {
		env.Error = "unknown node " + msg.Address
		c.publish(msg.From, env)
		return
	}

	args := make([]interface{}, len(msg.Args))
	for i, a := range msg.Args {
		args[i] = snapshot.DecodeValue(a, c.tree, nil, false)
	}

	res, err := n.CallLocal(msg.Method, args...)
	if err != nil {
		env.Error = err.Error()
	} else {
		env.OK = true
		env.Value = snapshot.EncodeValue(res, snapshot.Options{})
	}

	c.publish(msg.From, env)
}

func (c *Conn) serveObserve(msg Message) {
	n, ok := c.tree.Resolve(msg.Domain, msg.Address)
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"from":    msg.From,
			"address": msg.Address,
		}).Debug("Observe request for unknown node")
		return
	}

	if msg.Remove {
		c.tree.RemoveRemoteObserver(n.Address(), msg.Field, msg.From)
	} else {
		c.tree.AddRemoteObserver(n.Address(), msg.Field, msg.From)
	}
}

func (c *Conn) applyUpdate(msg Message) {
	u := msg.Update

	n, ok := c.tree.Resolve(u.Domain, u.Address)
	if !ok {
		discardedTotal.WithLabelValues("unknown_node").Inc()
		c.logger.WithFields(logrus.Fields{
			"from":    msg.From,
			"address": u.Address,
			"field":   u.Field,
		}).Debug("Update for unknown node")
		return
	}

	v := snapshot.DecodeValue(u.Value, c.tree, nil, true)
	if err := n.ApplyUpdate(u.Field, v, msg.From); err != nil {
		c.logger.WithError(err).Warn("Applying update")
		return
	}
	updatesTotal.WithLabelValues("applied").Inc()

	if n.Owner() != c.thread {
		c.fresh.mark(n.Address(), u.Field)
	}
}

/*******************************************************************************
node.Synchronizer
*******************************************************************************/

// IsFresh implements node.Synchronizer.
func (c *Conn) IsFresh(n *node.Node, fieldName string) bool {
	return c.fresh.isFresh(n.Address(), fieldName)
}

// IsAlive implements node.Synchronizer.
func (c *Conn) IsAlive(thread int) bool {
	return c.registry.IsAlive(thread)
}

// RequestFieldValue implements node.Synchronizer.
func (c *Conn) RequestFieldValue(n *node.Node, fieldName string) bool {
	peer := c.route(n.Owner())
	seq := c.nextSeq()
	op := "field:" + fieldName

	requestsTotal.WithLabelValues("field").Inc()

	err := c.send(peer, Message{
		Kind:    FieldRequest,
		Seq:     seq,
		Domain:  c.tree.DomainOf(n),
		Address: n.Address(),
		Field:   fieldName,
	})
	if err != nil {
		c.logger.WithError(err).Warn("RequestFieldValue")
		return false
	}

	env, err := c.await(peer, seq, op)
	if err != nil {
		if common.IsSyncErr(err, common.Timeout) {
			timeoutsTotal.WithLabelValues("field").Inc()
		}
		c.logger.WithError(err).Debug("RequestFieldValue")
		return false
	}

	if !env.OK {
		c.logger.WithFields(logrus.Fields{
			"peer":  peer,
			"error": env.Error,
		}).Debug("RequestFieldValue refused")
		return false
	}

	s, ok := snapshot.AsSnapshot(env.Value)
	if !ok {
		discardedTotal.WithLabelValues("malformed").Inc()
		return false
	}

	snapshot.Reconcile(s, n, nil)

	c.fresh.mark(n.Address(), fieldName)
	for _, name := range snapshot.Observed(s) {
		c.fresh.markPushed(n.Address(), name)
	}

	return true
}

// RequestMethodCall implements node.Synchronizer. An error raised by the
// owner is logged and yields invalid.
func (c *Conn) RequestMethodCall(n *node.Node, method string, args []interface{}) (interface{}, bool) {
	peer := c.route(n.Owner())
	seq := c.nextSeq()
	op := "method:" + method

	requestsTotal.WithLabelValues("method").Inc()

	encoded := make([]interface{}, len(args))
	for i, a := range args {
		encoded[i] = snapshot.EncodeValue(a, snapshot.Options{})
	}

	err := c.send(peer, Message{
		Kind:    MethodRequest,
		Seq:     seq,
		Domain:  c.tree.DomainOf(n),
		Address: n.Address(),
		Method:  method,
		Args:    encoded,
	})
	if err != nil {
		c.logger.WithError(err).Warn("RequestMethodCall")
		return nil, false
	}

	env, err := c.await(peer, seq, op)
	if err != nil {
		if common.IsSyncErr(err, common.Timeout) {
			timeoutsTotal.WithLabelValues("method").Inc()
		}
		c.logger.WithError(err).Debug("RequestMethodCall")
		return nil, false
	}

	if !env.OK {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"error":  env.Error,
		}).Warn("Remote method call failed")
		return field.Invalid, true
	}

	res := snapshot.DecodeValue(env.Value, c.tree, nil, false)
	if method == node.MethodGetChildCount {
		if v, ok := field.Convert(field.KindInteger, res); ok {
			res = v
		}
	}
	return res, true
}

// SendUpdate implements node.Synchronizer.
func (c *Conn) SendUpdate(thread int, n *node.Node, fieldName string, value interface{}) {
	err := c.send(c.route(thread), Message{
		Kind: Update,
		Update: ThreadUpdate{
			Target:  thread,
			Domain:  c.tree.DomainOf(n),
			Address: n.Address(),
			Field:   fieldName,
			Value:   snapshot.EncodeValue(value, snapshot.Options{Deep: true}),
		},
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"target": thread,
			"field":  fieldName,
		}).Warn("SendUpdate")
		return
	}
	updatesTotal.WithLabelValues("sent").Inc()
}

// Observe implements node.Synchronizer.
func (c *Conn) Observe(n *node.Node, fieldName string, remove bool) {
	if remove {
		c.fresh.unpush(n.Address(), fieldName)
	}

	err := c.send(c.route(n.Owner()), Message{
		Kind:    Observe,
		Domain:  c.tree.DomainOf(n),
		Address: n.Address(),
		Field:   fieldName,
		Remove:  remove,
	})
	if err != nil {
		c.logger.WithError(err).Warn("Observe")
	}
}
