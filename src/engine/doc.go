// Package engine assembles a scene graph: configuration, thread registry,
// subtype factory, coordinator, snapshot store and HTTP inspector.
//
//	e := engine.NewEngine(conf)
//	e.Functions.Register("loader", loader)
//	if err := e.Init(); err != nil {
//		...
//	}
//	e.RunAsync()
//	defer e.Shutdown()
package engine
