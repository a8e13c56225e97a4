package channel

import (
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// Kind identifies the content of a Message.
type Kind uint8

// Message kinds.
const (
	Control Kind = iota
	Update
	FieldRequest
	MethodRequest
	Observe
)

// String ...
func (k Kind) String() string {
	switch k {
	case Control:
		return "control"
	case Update:
		return "update"
	case FieldRequest:
		return "field"
	case MethodRequest:
		return "method"
	case Observe:
		return "observe"
	}
	return "unknown"
}

// Control commands.
const (
	CommandRun  = "run"
	CommandStop = "stop"
	CommandDone = "done"
)

// ThreadUpdate carries a field write to another thread. Value holds the
// transferable form of the value: nodes are snapshots.
type ThreadUpdate struct {
	Target  int         `json:"target"`
	Domain  node.Domain `json:"domain"`
	Address string      `json:"address"`
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
}

// Message is what threads put in each other's inboxes. Every value it holds
// is plain data, never a pointer into a tree.
type Message struct {
	Kind Kind
	From int
	Seq  uint64

	// Control
	Command string

	// Update
	Update ThreadUpdate

	// FieldRequest, MethodRequest, Observe
	Domain  node.Domain
	Address string
	Field   string
	Method  string
	Args    []interface{}
	Remove  bool
}

// Envelope is the response published in a Buffer. Seq echoes the request it
// answers.
type Envelope struct {
	Seq   uint64      `json:"seq"`
	OK    bool        `json:"ok"`
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}
