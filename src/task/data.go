package task

import (
	"github.com/mosaicnetworks/scenegraph/src/channel"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
)

// Data is the one-shot payload used to start a worker thread. It only holds
// snapshots and the link, never pointers into the coordinator's tree.
type Data struct {
	// ID is the thread id allocated in the registry.
	ID int

	// Address and Subtype identify the task node.
	Address string
	Subtype string

	// Function is the entry point to run.
	Function string

	// M is a snapshot of the task node.
	M snapshot.Snapshot

	// Scene and Global are deep snapshots of the scene and global nodes.
	Scene  snapshot.Snapshot
	Global snapshot.Snapshot

	// Observed lists the global fields the coordinator pushes to the worker.
	Observed []string

	Link *channel.Link
}
