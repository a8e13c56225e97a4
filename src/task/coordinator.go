package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/scenegraph/src/channel"
	"github.com/mosaicnetworks/scenegraph/src/config"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/registry"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

var (
	// ErrShutdown is returned by Do after Shutdown.
	ErrShutdown = errors.New("coordinator shut down")

	// ErrNotFound is wrapped by the inspection methods when a node or field
	// does not exist.
	ErrNotFound = errors.New("not found")
)

// Coordinator is the coordinating thread. It owns the main tree, including
// the global and scene nodes, starts a worker when a task node is first set
// to run, and answers the requests of the workers.
type Coordinator struct {
	conf      *config.Config
	factory   *node.Factory
	registry  *registry.Registry
	functions *Functions
	codec     snapshot.Codec

	tree      *node.Tree
	conn      *channel.Conn
	inbox     chan channel.Message
	scheduler *Scheduler

	// only touched on the coordinator goroutine
	attached map[string]bool
	tasks    map[string]int
	workers  map[int]*Worker
	spawns   []*node.Node
	watchers int

	doCh         chan func(*node.Tree)
	shutdownCh   chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once
	started      int32

	logger *logrus.Entry
}

// NewCoordinator creates the coordinating thread and its tree, holding a
// global node. Run starts it.
func NewCoordinator(conf *config.Config,
	factory *node.Factory,
	reg *registry.Registry,
	functions *Functions) (*Coordinator, error) {

	codec, err := snapshot.NewCodec(conf.Codec)
	if err != nil {
		return nil, err
	}

	logger := conf.Logger().WithField("thread", registry.Coordinator)

	c := &Coordinator{
		conf:       conf,
		factory:    factory,
		registry:   reg,
		functions:  functions,
		codec:      codec,
		tree:       node.NewTree(registry.Coordinator, factory, logger),
		inbox:      make(chan channel.Message, conf.InboxCapacity),
		scheduler:  NewScheduler(conf.MaxWorkers, logger),
		attached:   make(map[string]bool),
		tasks:      make(map[string]int),
		workers:    make(map[int]*Worker),
		doCh:       make(chan func(*node.Tree)),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		logger:     logger,
	}

	c.conn = channel.NewConn(channel.Config{
		Thread:   registry.Coordinator,
		Tree:     c.tree,
		Registry: reg,
		Codec:    codec,
		Timeout:  conf.RendezvousTimeout,
		Inbox:    c.inbox,
		Done:     c.shutdownCh,
		Logger:   logger,
	})
	c.conn.SetControlHandler(c.onControlMessage)

	c.tree.NewNode(node.TypeGlobal, "", registry.Coordinator)

	return c, nil
}

// Registry ...
func (c *Coordinator) Registry() *registry.Registry {
	return c.registry
}

// Functions ...
func (c *Coordinator) Functions() *Functions {
	return c.functions
}

/*******************************************************************************
Thread loop
*******************************************************************************/

// Run is the coordinator thread loop. It returns after Shutdown.
func (c *Coordinator) Run() {
	atomic.StoreInt32(&c.started, 1)
	defer close(c.doneCh)

	c.logger.Debug("Coordinator running")

	for {
		c.conn.BeginTurn()
		c.flushSpawns()

		select {
		case msg := <-c.inbox:
			c.conn.Handle(msg)
		case fn := <-c.doCh:
			fn(c.tree)
		case <-c.shutdownCh:
			c.stopWorkers()
			c.logger.Debug("Coordinator stopped")
			return
		}

		c.flushSpawns()
	}
}

// RunAsync runs the coordinator thread loop in a goroutine. Do calls made
// after RunAsync returns go through the loop.
func (c *Coordinator) RunAsync() {
	atomic.StoreInt32(&c.started, 1)
	go c.Run()
}

// Do runs fn on the coordinator thread and waits for it to return. Before
// Run, fn is called directly.
func (c *Coordinator) Do(fn func(*node.Tree)) error {
	if atomic.LoadInt32(&c.started) == 0 {
		fn(c.tree)
		c.flushSpawns()
		return nil
	}

	ran := make(chan struct{})
	wrapped := func(t *node.Tree) {
		defer close(ran)
		fn(t)
	}

	select {
	case c.doCh <- wrapped:
	case <-c.doneCh:
		return ErrShutdown
	}

	<-ran
	return nil
}

// Shutdown stops the workers and the thread loop, and waits for the worker
// goroutines to return.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.logger.Debug("Shutdown")
		close(c.shutdownCh)

		if atomic.LoadInt32(&c.started) == 1 {
			<-c.doneCh
		} else {
			c.stopWorkers()
		}

		if err := c.scheduler.Wait(); err != nil {
			c.logger.WithError(err).Debug("Worker error")
		}
	})
}

/*******************************************************************************
Tasks
*******************************************************************************/

// CreateTask creates a task node with the given entry point and attaches it.
// It must run on the coordinator thread.
func (c *Coordinator) CreateTask(subtype string, function string) *node.Node {
	n := c.tree.Create(subtype)
	if !n.IsSubtype(node.TypeTask) {
		c.logger.WithField("subtype", subtype).Warn("CreateTask: not a task subtype")
		return n
	}
	n.SetValue(node.FieldFunctionName, function)
	c.AttachTask(n)
	return n
}

// AttachTask installs the lifecycle observer on the control field of a task
// node. It must run on the coordinator thread.
func (c *Coordinator) AttachTask(n *node.Node) bool {
	if n == nil || !n.IsSubtype(node.TypeTask) {
		return false
	}
	if c.attached[n.Address()] {
		return true
	}

	f, ok := n.Field(node.FieldControl)
	if !ok {
		return false
	}
	f.AddObserver(field.Permanent, "", field.Callback(func(ev field.Event) {
		c.onControlField(n, ev.Value)
	}), "", nil)

	c.attached[n.Address()] = true
	return true
}

// AttachTasks attaches every task node of a subtree and returns how many it
// found.
func (c *Coordinator) AttachTasks(root *node.Node) int {
	if root == nil {
		return 0
	}
	count := 0
	if c.AttachTask(root) {
		count++
	}
	for _, child := range root.Children() {
		count += c.AttachTasks(child)
	}
	return count
}

func (c *Coordinator) onControlField(n *node.Node, value interface{}) {
	cmd, _ := value.(string)

	logger := c.logger.WithFields(logrus.Fields{
		"task":    n.Address(),
		"control": cmd,
	})

	switch strings.ToLower(cmd) {
	case channel.CommandRun:
		name := c.functionName(n)
		if name == "" {
			logger.Warn("No function name, stopping task")
			n.SetValue(node.FieldControl, channel.CommandStop)
			c.setState(n, Stop)
			return
		}

		if th, ok := c.tasks[n.Address()]; ok && c.registry.IsAlive(th) {
			// the worker sees the control write
			c.setState(n, Run)
			return
		}

		if _, ok := c.functions.Lookup(name); !ok {
			logger.WithField("function", name).Warn("Unknown function, stopping task")
			c.setState(n, Stop)
			return
		}

		c.queueSpawn(n)
		c.setState(n, Run)

	case channel.CommandStop:
		c.setState(n, Stop)

	case "", Init.String():

	default:
		logger.Warn("Unknown control command")
	}
}

func (c *Coordinator) functionName(n *node.Node) string {
	v, _ := n.GetValue(node.FieldFunctionName)
	name, _ := v.(string)
	return name
}

func (c *Coordinator) setState(n *node.Node, s State) {
	n.SetValue(node.FieldState, s.String())
}

func (c *Coordinator) queueSpawn(n *node.Node) {
	for _, q := range c.spawns {
		if q == n {
			return
		}
	}
	c.spawns = append(c.spawns, n)
}

// flushSpawns starts the workers requested during the turn. A task stopped
// again within the same turn is not started.
func (c *Coordinator) flushSpawns() {
	spawns := c.spawns
	c.spawns = nil

	for _, n := range spawns {
		if n.Destroyed() {
			continue
		}
		if v, _ := n.GetValue(node.FieldState); v != Run.String() {
			continue
		}
		c.spawn(n)
	}
}

// spawn builds the start payload of a task and hands a new worker to the
// scheduler.
func (c *Coordinator) spawn(n *node.Node) {
	name := c.functionName(n)
	id := c.registry.Register(name, n.Address())

	link := channel.NewLink(id, c.inbox, c.conf.InboxCapacity)
	c.conn.AddLink(link)

	c.tree.AddRemoteObserver(n.Address(), node.AllFields, id)

	data := Data{
		ID:       id,
		Address:  n.Address(),
		Subtype:  n.Subtype(),
		Function: name,
		M:        snapshot.Serialize(n, snapshot.Options{}, nil),
		Link:     link,
	}

	if global := c.tree.Global(); global != nil {
		data.Observed = c.tree.ObservedFields(global.Address())
		for _, f := range data.Observed {
			c.tree.AddRemoteObserver(global.Address(), f, id)
		}
		data.Global = snapshot.Serialize(global, snapshot.Options{Deep: true}, nil)
	}
	if scene := c.tree.Scene(); scene != nil {
		data.Scene = snapshot.Serialize(scene, snapshot.Options{Deep: true}, nil)
	}

	w := NewWorker(data, c.conf, c.factory, c.registry, c.functions, c.codec)

	if !c.scheduler.Spawn(w) {
		c.logger.WithFields(logrus.Fields{
			"task":        n.Address(),
			"max-workers": c.conf.MaxWorkers,
		}).Warn("Too many workers, stopping task")
		c.removeWorker(id)
		c.setState(n, Stop)
		return
	}

	c.tasks[n.Address()] = id
	c.workers[id] = w

	c.logger.WithFields(logrus.Fields{
		"task":     n.Address(),
		"function": name,
		"worker":   id,
	}).Debug("Worker started")
}

func (c *Coordinator) removeWorker(id int) {
	c.conn.RemoveLink(id)
	c.registry.Unregister(id)
	delete(c.workers, id)
	for address, th := range c.tasks {
		if th == id {
			delete(c.tasks, address)
		}
	}
}

func (c *Coordinator) stopWorkers() {
	ids := make([]int, 0, len(c.workers))
	for id := range c.workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if err := c.conn.SendControl(id, channel.CommandStop); err != nil {
			c.logger.WithError(err).WithField("worker", id).Debug("Sending stop")
		}
	}
	for _, id := range ids {
		c.removeWorker(id)
	}
}

func (c *Coordinator) onControlMessage(msg channel.Message) {
	logger := c.logger.WithFields(logrus.Fields{
		"from":    msg.From,
		"command": msg.Command,
	})

	var next State
	switch msg.Command {
	case channel.CommandDone:
		next = Done
	case channel.CommandStop:
		// the worker found no free slot for a new run
		next = Stop
	default:
		logger.Debug("Ignoring control message")
		return
	}

	th, ok := c.registry.Lookup(msg.From)
	if !ok {
		logger.Debug("Control from unknown thread")
		return
	}
	n, ok := c.tree.Lookup(th.Task)
	if !ok {
		logger.Debug("Control for unknown task node")
		return
	}

	if v, _ := n.GetValue(node.FieldState); v == Run.String() {
		c.setState(n, next)
	}
	logger.WithField("task", th.Task).Debug("Task control")
}

/*******************************************************************************
Inspection
*******************************************************************************/

// Stats describes the coordinator thread.
type Stats struct {
	Nodes     int                 `json:"nodes"`
	Threads   int                 `json:"threads"`
	Workers   int                 `json:"workers"`
	Executing int                 `json:"executing"`
	Pending   int                 `json:"pending"`
	Links     []channel.LinkStats `json:"links"`
	Functions []string            `json:"functions"`
}

// Stats ...
func (c *Coordinator) Stats() (Stats, error) {
	var s Stats
	err := c.Do(func(t *node.Tree) {
		s.Nodes = t.Len()
		s.Threads = c.registry.AliveCount()
		s.Workers = c.scheduler.Running()
		s.Executing = c.scheduler.Executing()
		s.Pending = c.conn.Pending()
		for _, l := range c.conn.Links() {
			s.Links = append(s.Links, l.Stats())
		}
		s.Functions = c.functions.Names()
	})
	return s, err
}

// NodeSnapshot serializes the node at address.
func (c *Coordinator) NodeSnapshot(address string, deep bool) (snapshot.Snapshot, error) {
	var res snapshot.Snapshot
	var err error
	if doErr := c.Do(func(t *node.Tree) {
		n, ok := t.Lookup(address)
		if !ok {
			err = fmt.Errorf("node %s: %w", address, ErrNotFound)
			return
		}
		res = snapshot.Serialize(n, snapshot.Options{Deep: deep}, nil)
	}); doErr != nil {
		return nil, doErr
	}
	return res, err
}

// SceneSnapshot serializes the whole scene.
func (c *Coordinator) SceneSnapshot() (snapshot.Snapshot, error) {
	var res snapshot.Snapshot
	var err error
	if doErr := c.Do(func(t *node.Tree) {
		scene := t.Scene()
		if scene == nil {
			err = fmt.Errorf("scene: %w", ErrNotFound)
			return
		}
		res = snapshot.Serialize(scene, snapshot.Options{Deep: true}, nil)
	}); doErr != nil {
		return nil, doErr
	}
	return res, err
}

// LoadScene materializes a scene snapshot into the coordinator's tree and
// attaches its task nodes.
func (c *Coordinator) LoadScene(s snapshot.Snapshot) (string, error) {
	var address string
	var err error
	if doErr := c.Do(func(t *node.Tree) {
		scene := snapshot.Materialize(s, t, nil, true)
		if scene == nil {
			err = fmt.Errorf("invalid scene snapshot")
			return
		}
		if !scene.IsSubtype(node.TypeScene) {
			c.logger.WithField("subtype", scene.Subtype()).Warn("Loaded scene root is not a Scene")
		}
		t.SetScene(scene)
		address = scene.Address()
		c.AttachTasks(scene)
	}); doErr != nil {
		return "", doErr
	}
	return address, err
}

// Watch streams the writes to a field of the node at address. Events carry
// the transferable form of the values. cancel removes the observer.
func (c *Coordinator) Watch(address, fieldName string) (*field.Port, func(), error) {
	port := field.NewPort(c.conf.PortCapacity)

	var subscriber string
	var err error
	if doErr := c.Do(func(t *node.Tree) {
		n, ok := t.Lookup(address)
		if !ok {
			err = fmt.Errorf("node %s: %w", address, ErrNotFound)
			return
		}

		c.watchers++
		subscriber = fmt.Sprintf("watch-%d", c.watchers)

		target := field.Callback(func(ev field.Event) {
			port.Post(field.Event{
				Field: ev.Field,
				Value: snapshot.EncodeValue(ev.Value, snapshot.Options{}),
			})
		})
		if !n.ObserveField(fieldName, field.Scoped, subscriber, target, "", nil) {
			err = fmt.Errorf("field %s.%s: %w", address, fieldName, ErrNotFound)
		}
	}); doErr != nil {
		return nil, nil, doErr
	}
	if err != nil {
		return nil, nil, err
	}

	cancel := func() {
		c.Do(func(t *node.Tree) {
			if n, ok := t.Lookup(address); ok {
				n.UnobserveField(fieldName, field.Scoped, subscriber)
			}
		})
	}

	return port, cancel, nil
}
