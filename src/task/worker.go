package task

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/scenegraph/src/channel"
	"github.com/mosaicnetworks/scenegraph/src/config"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/registry"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

// Worker is a task thread. It owns a tree materialized from the Data it was
// started with, runs the task's Function, and then keeps serving the
// coordinator until its link is closed. A later run control runs the
// Function again.
type Worker struct {
	id        int
	data      Data
	conf      *config.Config
	functions *Functions
	registry  *registry.Registry

	tree *node.Tree
	conn *channel.Conn
	link *channel.Link

	state stateManager

	// set by Scheduler.Spawn before the worker goroutine starts
	scheduler *Scheduler

	// only touched on the worker goroutine
	held     bool
	running  bool
	stopping bool
	rerun    bool

	logger *logrus.Entry
}

// NewWorker creates the worker described by data. Nothing happens until Run
// is called.
func NewWorker(data Data,
	conf *config.Config,
	factory *node.Factory,
	reg *registry.Registry,
	functions *Functions,
	codec snapshot.Codec) *Worker {

	logger := conf.Logger().WithFields(logrus.Fields{
		"thread": data.ID,
		"task":   data.Address,
	})

	tree := node.NewTree(data.ID, factory, logger)

	conn := channel.NewConn(channel.Config{
		Thread:   data.ID,
		Tree:     tree,
		Registry: reg,
		Codec:    codec,
		Timeout:  conf.RendezvousTimeout,
		Inbox:    data.Link.WorkerInbox(),
		Uplink:   data.Link,
		Done:     data.Link.Closed(),
		Logger:   logger,
	})

	w := &Worker{
		id:        data.ID,
		data:      data,
		conf:      conf,
		functions: functions,
		registry:  reg,
		tree:      tree,
		conn:      conn,
		link:      data.Link,
		logger:    logger,
	}

	conn.SetControlHandler(w.onControlMessage)

	return w
}

// ID ...
func (w *Worker) ID() int {
	return w.id
}

// State returns the lifecycle state of the worker. It is safe to call from
// any goroutine.
func (w *Worker) State() State {
	return w.state.GetState()
}

// Run is the worker thread. It returns when the link is closed.
func (w *Worker) Run() error {
	defer w.registry.Unregister(w.id)
	defer w.releaseSlot()

	ctx, err := w.materialize()
	if err != nil {
		w.releaseSlot()
		w.sendDone()
		return err
	}

	fn, ok := w.functions.Lookup(w.data.Function)
	if !ok {
		w.state.SetState(Stop)
		w.releaseSlot()
		w.sendDone()
		return fmt.Errorf("task %s: unknown function %q", w.data.Address, w.data.Function)
	}

	w.rerun = true
	for {
		if w.rerun && !w.link.IsClosed() {
			w.rerun = false
			w.execute(fn, ctx)
		}

		w.conn.BeginTurn()
		if w.rerun {
			continue
		}

		if !w.conn.Next(0) && w.link.IsClosed() {
			w.logger.Debug("Worker stopped")
			return nil
		}
	}
}

// materialize builds the worker's tree from the start payload.
func (w *Worker) materialize() (*Context, error) {
	addressMap := make(map[string]*node.Node)

	var global, scene *node.Node
	if w.data.Global != nil {
		global = snapshot.Materialize(w.data.Global, w.tree, addressMap, true)
	}
	if w.data.Scene != nil {
		scene = snapshot.Materialize(w.data.Scene, w.tree, addressMap, true)
	}

	top := snapshot.Materialize(w.data.M, w.tree, addressMap, true)
	if top == nil {
		return nil, fmt.Errorf("task %s: invalid task snapshot", w.data.Address)
	}

	// the coordinator pushes every write to the task node
	w.conn.MarkPushed(top, node.AllFields)
	if global != nil {
		for _, name := range w.data.Observed {
			w.conn.MarkPushed(global, name)
		}
	}

	if f, ok := top.Field(node.FieldControl); ok {
		f.AddObserver(field.Permanent, "", field.Callback(w.onControlField), "", nil)
	}

	w.logger.WithFields(logrus.Fields{
		"function": w.data.Function,
		"nodes":    w.tree.Len(),
	}).Debug("Worker tree materialized")

	return &Context{
		Top:    top,
		Global: global,
		Scene:  scene,
		Tree:   w.tree,
		Logger: w.logger,
		worker: w,
	}, nil
}

func (w *Worker) execute(fn Function, ctx *Context) {
	if !w.acquireSlot() {
		w.logger.WithField("max-workers", w.conf.MaxWorkers).Warn("Too many workers, stopping task")
		w.state.SetState(Stop)
		w.sendControl(channel.CommandStop)
		return
	}

	w.stopping = false
	w.running = true
	w.state.SetState(Run)

	w.logger.WithField("function", w.data.Function).Debug("Running task function")

	err := w.call(fn, ctx)

	w.running = false
	// free the slot before the coordinator hears about it
	w.releaseSlot()
	if err != nil {
		w.logger.WithError(err).Error("Task function failed")
	}

	if w.stopping {
		w.state.SetState(Stop)
	} else {
		w.state.SetState(Done)
	}

	w.sendDone()
}

func (w *Worker) call(fn Function, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s: function %q panicked: %v", w.data.Address, w.data.Function, r)
		}
	}()
	return fn(ctx)
}

// acquireSlot takes an execution slot unless the worker already holds the
// one taken by Spawn.
func (w *Worker) acquireSlot() bool {
	if w.scheduler == nil || w.held {
		return true
	}
	w.held = w.scheduler.Acquire()
	return w.held
}

func (w *Worker) releaseSlot() {
	if w.held {
		w.held = false
		w.scheduler.Release()
	}
}

func (w *Worker) sendDone() {
	w.sendControl(channel.CommandDone)
}

func (w *Worker) sendControl(cmd string) {
	if err := w.conn.SendControl(registry.Coordinator, cmd); err != nil {
		w.logger.WithError(err).WithField("command", cmd).Debug("Sending control")
	}
}

// onControlField observes the control field of the task node.
func (w *Worker) onControlField(ev field.Event) {
	cmd, _ := ev.Value.(string)
	w.command(cmd)
}

func (w *Worker) onControlMessage(msg channel.Message) {
	w.command(msg.Command)
}

func (w *Worker) command(cmd string) {
	switch strings.ToLower(cmd) {
	case channel.CommandRun:
		if !w.running {
			w.rerun = true
		}
	case channel.CommandStop:
		w.stopping = true
	}
}
