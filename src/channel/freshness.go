package channel

import (
	"github.com/mosaicnetworks/scenegraph/src/node"
)

// freshness remembers which fields of remote nodes can be read without a
// rendezvous. Fields fetched or updated during the current loop turn are
// fresh until the next reset; fields the owner pushes stay fresh.
type freshness struct {
	turn   map[string]map[string]bool
	pushed map[string]map[string]bool
}

func newFreshness() *freshness {
	return &freshness{
		turn:   make(map[string]map[string]bool),
		pushed: make(map[string]map[string]bool),
	}
}

func mark(m map[string]map[string]bool, address, fieldName string) {
	fields, ok := m[address]
	if !ok {
		fields = make(map[string]bool)
		m[address] = fields
	}
	fields[fieldName] = true
}

func (f *freshness) mark(address, fieldName string) {
	mark(f.turn, address, fieldName)
}

func (f *freshness) markPushed(address, fieldName string) {
	mark(f.pushed, address, fieldName)
}

func (f *freshness) unpush(address, fieldName string) {
	if fields, ok := f.pushed[address]; ok {
		delete(fields, fieldName)
		if len(fields) == 0 {
			delete(f.pushed, address)
		}
	}
}

func (f *freshness) isFresh(address, fieldName string) bool {
	if p := f.pushed[address]; p[fieldName] || p[node.AllFields] {
		return true
	}
	return f.turn[address][fieldName]
}

func (f *freshness) reset() {
	f.turn = make(map[string]map[string]bool)
}
