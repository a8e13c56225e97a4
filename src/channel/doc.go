// Package channel connects the trees of the coordinator and the worker
// threads.
//
// Each worker is joined to the coordinator by a Link made of two inboxes
// carrying Messages and two Buffers, one per direction, carrying encoded
// responses. A Buffer holds at most one payload and a version word: 0 when
// idle, 1 when a payload is ready. Publishing stores the payload and sets the
// word to 1; consuming swaps it back to 0 and returns the payload exactly
// once.
//
// A thread reading a field of a node owned by another thread sends a
// FieldRequest and blocks on the Buffer of its link until the owner
// publishes a snapshot of the node, or the rendezvous timeout elapses. While
// it waits it keeps answering requests addressed to it, so two threads
// requesting from each other do not deadlock. Writes travel as Update
// messages and are applied at the start of the next loop turn of the
// receiver.
//
// Workers only talk to the coordinator. A worker reading a node owned by
// another worker is served the coordinator's copy of that node.
package channel
