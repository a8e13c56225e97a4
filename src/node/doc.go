// Package node implements the node tree: addressable nodes holding typed
// fields and an ordered list of children, grouped in one Tree per thread.
//
// A node is owned by exactly one thread. Reading a field of a node owned by
// another thread goes through the tree's Synchronizer, which blocks until the
// owner publishes a fresh copy, unless the local copy is known to be fresh.
// Writes are applied locally and pushed to the owner and to the threads that
// observe the field.
//
// Structural mutations write a change record to the "change" field, but only
// when that field has observers:
//
//  {"operation": "add", "index1": 0, "index2": 0}
//
// Subtypes are declared in a Factory, created once at startup and shared by
// every tree.
package node
