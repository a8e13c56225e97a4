package commands

import (
	"time"

	"github.com/mosaicnetworks/scenegraph/src/channel"
	"github.com/mosaicnetworks/scenegraph/src/engine"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/task"
)

const (
	tickerType     = "Ticker"
	tickerFunction = "ticker"
	tickerID       = "ticker"
	clockID        = "clock"
)

// registerDemo adds the demo subtype and task function to the engine. It must
// be called before Init so that a bootstrapped scene finds them.
func registerDemo(e *engine.Engine, interval time.Duration) error {
	err := e.Factory.Register(node.Subtype{
		Name:    tickerType,
		Extends: node.TypeTask,
		Fields: []node.FieldDef{
			{Name: "interval", Kind: field.KindInteger, Value: int32(interval / time.Millisecond)},
			{Name: "ticks", Kind: field.KindInteger, Value: int32(0)},
		},
	})
	if err != nil {
		return err
	}

	return e.Functions.Register(tickerFunction, ticker)
}

// populateDemo adds a clock group and a ticker task to an empty scene. With
// start set, the ticker is run, whether it was just created or loaded from
// the store.
func populateDemo(e *engine.Engine, start bool) error {
	return e.Coordinator.Do(func(t *node.Tree) {
		scene := t.Scene()

		tick := scene.FindNode(tickerID)
		if tick == nil && scene.ChildCount() == 0 {
			clock := t.Create(node.TypeGroup)
			clock.SetValue(node.FieldID, clockID)
			scene.AppendChild(clock)

			tick = e.Coordinator.CreateTask(tickerType, tickerFunction)
			tick.SetValue(node.FieldID, tickerID)
			scene.AppendChild(tick)
		}

		if start && tick != nil {
			tick.SetValue(node.FieldControl, channel.CommandRun)
		}
	})
}

// ticker counts in its "ticks" field and blinks the clock node until the
// task is stopped.
func ticker(ctx *task.Context) error {
	interval := 500 * time.Millisecond
	if v, ok := ctx.Top.GetValue("interval"); ok {
		if ms, ok := v.(int32); ok && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	var clock *node.Node
	if ctx.Scene != nil {
		clock = ctx.Scene.FindNode(clockID)
	}

	v, _ := ctx.Top.GetValue("ticks")
	count, _ := v.(int32)

	for !ctx.Stopped() {
		if _, ok := ctx.Wait(nil, interval); ok {
			continue
		}
		if ctx.Stopped() {
			break
		}

		count++
		ctx.Top.SetValue("ticks", count)
		if clock != nil {
			clock.SetValue("visible", count%2 == 0)
		}

		ctx.Logger.WithField("ticks", count).Debug("Tick")
	}

	return nil
}
