package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	cm "github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/config"
	"github.com/mosaicnetworks/scenegraph/src/node"
	"github.com/mosaicnetworks/scenegraph/src/registry"
	"github.com/mosaicnetworks/scenegraph/src/service"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
	"github.com/mosaicnetworks/scenegraph/src/store"
	"github.com/mosaicnetworks/scenegraph/src/task"
)

// Engine wires the components of a scene graph together. Subtypes and task
// functions must be registered in Factory and Functions before Init.
type Engine struct {
	Config      *config.Config
	Factory     *node.Factory
	Functions   *task.Functions
	Registry    *registry.Registry
	Store       store.Store
	Coordinator *task.Coordinator
	Service     *service.Service

	// SceneAddress is the address of the scene node after Init.
	SceneAddress string

	logger *logrus.Entry
}

// NewEngine creates an engine with an empty factory and function registry.
func NewEngine(conf *config.Config) *Engine {
	engine := &Engine{
		Config:    conf,
		Factory:   node.NewFactory(),
		Functions: task.NewFunctions(),
		Registry:  registry.New(),
		logger:    conf.Logger(),
	}

	return engine
}

func (e *Engine) initStore() error {
	codec, err := snapshot.NewCodec(e.Config.Codec)
	if err != nil {
		return err
	}

	if !e.Config.Store {
		e.Store = store.NewInmemStore(codec)
		e.logger.Debug("created new in-mem store")
		return nil
	}

	dbPath := e.Config.DatabaseDir
	e.logger.WithField("path", dbPath).Debug("Attempting to load or create database")

	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return err
	}

	e.Store, err = store.NewBadgerStore(dbPath, codec, e.logger)
	if err != nil {
		return err
	}

	return nil
}

func (e *Engine) initCoordinator() error {
	c, err := task.NewCoordinator(e.Config, e.Factory, e.Registry, e.Functions)
	if err != nil {
		return err
	}
	e.Coordinator = c
	return nil
}

// initScene loads the scene from the store when bootstrapping, and creates
// an empty one otherwise.
func (e *Engine) initScene() error {
	if e.Config.Bootstrap {
		s, err := e.Store.LoadSnapshot(store.SceneKey)
		switch {
		case err == nil:
			address, err := e.Coordinator.LoadScene(s)
			if err != nil {
				return fmt.Errorf("failed to bootstrap scene: %w", err)
			}
			e.SceneAddress = address
			e.logger.WithField("scene", address).Debug("Scene loaded from store")
			return nil
		case cm.IsStore(err, cm.KeyNotFound):
			e.logger.Debug("No scene in store, starting empty")
		default:
			return err
		}
	}

	return e.Coordinator.Do(func(t *node.Tree) {
		scene := t.NewNode(node.TypeScene, "", registry.Coordinator)
		e.SceneAddress = scene.Address()
	})
}

func (e *Engine) initService() error {
	if !e.Config.NoService && e.Config.ServiceAddr != "" {
		e.Service = service.NewService(e.Config.ServiceAddr, e.Coordinator, e.logger)
	}
	return nil
}

// Init initializes all the components. Bootstrap implies Store.
func (e *Engine) Init() error {
	if e.Config.Bootstrap {
		e.Config.Store = true
	}

	if err := e.initStore(); err != nil {
		e.logger.WithError(err).Error("engine.go:Init() initStore")
		return err
	}

	if err := e.initCoordinator(); err != nil {
		e.logger.WithError(err).Error("engine.go:Init() initCoordinator")
		return err
	}

	if err := e.initScene(); err != nil {
		e.logger.WithError(err).Error("engine.go:Init() initScene")
		return err
	}

	if err := e.initService(); err != nil {
		e.logger.WithError(err).Error("engine.go:Init() initService")
		return err
	}

	return nil
}

// Run starts the service, if any, and runs the coordinator thread. It blocks
// until Shutdown.
func (e *Engine) Run() {
	if e.Service != nil {
		go e.Service.Serve()
	}
	e.Coordinator.Run()
}

// RunAsync starts the service, if any, and the coordinator thread, and
// returns.
func (e *Engine) RunAsync() {
	if e.Service != nil {
		go e.Service.Serve()
	}
	e.Coordinator.RunAsync()
}

// Shutdown saves the scene in the store, stops the threads and the service,
// and closes the store.
func (e *Engine) Shutdown() {
	e.logger.Debug("Shutdown")

	if err := e.SaveScene(); err != nil {
		e.logger.WithError(err).Error("Saving scene")
	}

	e.Coordinator.Shutdown()

	if e.Service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Service.Shutdown(ctx); err != nil {
			e.logger.WithError(err).Error("Stopping service")
		}
	}

	if err := e.Store.Close(); err != nil {
		e.logger.WithError(err).Error("Closing store")
	}
}

// SaveScene writes a snapshot of the scene to the store.
func (e *Engine) SaveScene() error {
	s, err := e.Coordinator.SceneSnapshot()
	if err != nil {
		return err
	}
	return e.Store.SaveSnapshot(store.SceneKey, s)
}
