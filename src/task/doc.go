// Package task runs the threads of a scene graph: one Coordinator owning the
// main tree and one Worker per started task node.
//
// A task node moves through the states init, run, stop and done, stored in
// its state field. Writing run to its control field for the first time makes
// the coordinator serialize the task node, the global node and the scene
// into a Data payload and hand a new Worker to the Scheduler. Later run and
// stop writes only reach the worker as field updates. A run write on a task
// without a functionName forces stop.
//
// Entry points are Go functions registered by name in Functions.
package task
