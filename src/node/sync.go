package node

// Domain tells the receiver of a cross-thread message which node of its tree
// a message is about.
type Domain string

// Domains.
const (
	DomainNode   Domain = "node"
	DomainGlobal Domain = "global"
	DomainScene  Domain = "scene"
)

// Synchronizer connects a tree to the other threads. A tree without a
// Synchronizer treats every node as local.
type Synchronizer interface {
	// IsFresh reports whether the local copy of a field of a node owned by
	// another thread can be read without a rendezvous.
	IsFresh(n *Node, field string) bool

	// IsAlive reports whether a thread is still running.
	IsAlive(thread int) bool

	// RequestFieldValue blocks until the owner of n publishes a snapshot of n,
	// which is reconciled into n. It returns false on timeout.
	RequestFieldValue(n *Node, field string) bool

	// RequestMethodCall runs an introspection method on the owner of n.
	RequestMethodCall(n *Node, method string, args []interface{}) (interface{}, bool)

	// SendUpdate pushes a field write to another thread.
	SendUpdate(thread int, n *Node, field string, value interface{})

	// Observe registers, or with remove unregisters, this thread as a remote
	// observer of a field on the owner of n.
	Observe(n *Node, field string, remove bool)
}
