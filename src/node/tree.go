package node

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/sirupsen/logrus"
)

// AllFields is the field name used to observe every field of a node remotely.
const AllFields = "*"

// Tree is the arena of nodes belonging to one thread. Nodes of a tree are
// only ever accessed from the goroutine of that thread; other threads see
// them through snapshots.
type Tree struct {
	thread  int
	factory *Factory
	nodes   map[string]*Node
	sync    Synchronizer

	global *Node
	scene  *Node
	focus  *Node

	// address -> field -> threads that want updates pushed
	remote map[string]map[string]map[int]bool

	logger *logrus.Entry
}

// NewTree creates an empty tree for a thread.
func NewTree(thread int, factory *Factory, logger *logrus.Entry) *Tree {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Tree{
		thread:  thread,
		factory: factory,
		nodes:   make(map[string]*Node),
		remote:  make(map[string]map[string]map[int]bool),
		logger:  logger.WithField("thread", thread),
	}
}

// Thread returns the id of the thread owning the tree.
func (t *Tree) Thread() int {
	return t.thread
}

// Factory ...
func (t *Tree) Factory() *Factory {
	return t.factory
}

// Logger ...
func (t *Tree) Logger() *logrus.Entry {
	return t.logger
}

// SetSynchronizer ...
func (t *Tree) SetSynchronizer(s Synchronizer) {
	t.sync = s
}

// Synchronizer ...
func (t *Tree) Synchronizer() Synchronizer {
	return t.sync
}

// Create builds a node of a registered subtype, owned by the tree's thread,
// with a fresh address.
func (t *Tree) Create(subtype string) *Node {
	return t.NewNode(subtype, "", t.thread)
}

// NewNode builds a node with the given address and owner. An empty address
// gets a fresh one. An unknown subtype falls back to a plain Node.
func (t *Tree) NewNode(subtype string, address string, owner int) *Node {
	if address == "" {
		address = uuid.New().String()
	}

	st, ok := t.factory.Lookup(subtype)
	if !ok {
		t.logger.WithField("subtype", subtype).Warn("Unknown subtype, creating Node")
		st, _ = t.factory.Lookup(TypeNode)
	}

	n := &Node{
		tree:     t,
		address:  address,
		nodeType: t.factory.BaseType(st.Name),
		subtype:  st.Name,
		owner:    owner,
		fields:   make(map[string]*field.Field),
		aliases:  make(map[string]alias),
	}

	for _, def := range t.factory.Fields(st.Name) {
		if def.Alias != "" {
			n.addAlias(def.Name, def.Alias)
			continue
		}
		f := field.New(def.Name, def.Kind, field.Copy(def.Value), def.Options)
		f.SetOrigin(n)
		n.fields[def.Name] = f
	}

	switch n.nodeType {
	case TypeGlobal:
		n.owner = 0
		if t.global == nil {
			t.global = n
		}
	case TypeScene:
		n.owner = 0
		if t.scene == nil {
			t.scene = n
		}
	}

	t.nodes[address] = n

	return n
}

// Lookup returns the node registered under an address.
func (t *Tree) Lookup(address string) (*Node, bool) {
	n, ok := t.nodes[address]
	return n, ok
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Addresses returns the registered addresses in sorted order.
func (t *Tree) Addresses() []string {
	res := make([]string, 0, len(t.nodes))
	for a := range t.nodes {
		res = append(res, a)
	}
	sort.Strings(res)
	return res
}

func (t *Tree) unregister(n *Node) {
	if cur, ok := t.nodes[n.address]; ok && cur == n {
		delete(t.nodes, n.address)
	}
	delete(t.remote, n.address)
	if t.focus == n {
		t.focus = nil
	}
	if t.global == n {
		t.global = nil
	}
	if t.scene == n {
		t.scene = nil
	}
}

// Global returns the global node of the tree.
func (t *Tree) Global() *Node {
	return t.global
}

// SetGlobal ...
func (t *Tree) SetGlobal(n *Node) {
	t.global = n
}

// Scene returns the scene node of the tree.
func (t *Tree) Scene() *Node {
	return t.scene
}

// SetScene ...
func (t *Tree) SetScene(n *Node) {
	t.scene = n
}

// Resolve finds the node a cross-thread message refers to.
func (t *Tree) Resolve(domain Domain, address string) (*Node, bool) {
	switch domain {
	case DomainGlobal:
		if t.global != nil {
			return t.global, true
		}
	case DomainScene:
		if t.scene != nil {
			return t.scene, true
		}
	}
	return t.Lookup(address)
}

// DomainOf is the reverse of Resolve.
func (t *Tree) DomainOf(n *Node) Domain {
	switch {
	case n == t.global:
		return DomainGlobal
	case n == t.scene:
		return DomainScene
	}
	return DomainNode
}

// Focused returns the node holding the focus, if any.
func (t *Tree) Focused() *Node {
	return t.focus
}

// AddRemoteObserver records that thread wants writes to a field of the node
// at address pushed to it. AllFields registers every field.
func (t *Tree) AddRemoteObserver(address, fieldName string, thread int) {
	fields, ok := t.remote[address]
	if !ok {
		fields = make(map[string]map[int]bool)
		t.remote[address] = fields
	}
	threads, ok := fields[fieldName]
	if !ok {
		threads = make(map[int]bool)
		fields[fieldName] = threads
	}
	threads[thread] = true
}

// RemoveRemoteObserver ...
func (t *Tree) RemoveRemoteObserver(address, fieldName string, thread int) {
	if fields, ok := t.remote[address]; ok {
		if threads, ok := fields[fieldName]; ok {
			delete(threads, thread)
			if len(threads) == 0 {
				delete(fields, fieldName)
			}
		}
		if len(fields) == 0 {
			delete(t.remote, address)
		}
	}
}

// RemoveThread drops every remote observation made by a thread.
func (t *Tree) RemoveThread(thread int) {
	for address, fields := range t.remote {
		for name := range fields {
			t.RemoveRemoteObserver(address, name, thread)
		}
	}
}

// RemoteObservers returns the threads a write to a field must be pushed to,
// in ascending order.
func (t *Tree) RemoteObservers(address, fieldName string) []int {
	fields, ok := t.remote[address]
	if !ok {
		return nil
	}
	set := make(map[int]bool)
	for th := range fields[fieldName] {
		set[th] = true
	}
	for th := range fields[AllFields] {
		set[th] = true
	}
	res := make([]int, 0, len(set))
	for th := range set {
		res = append(res, th)
	}
	sort.Ints(res)
	return res
}

// ObservedBy returns the names of the fields of a node that thread observes
// remotely, sorted.
func (t *Tree) ObservedBy(address string, thread int) []string {
	var res []string
	for name, threads := range t.remote[address] {
		if threads[thread] {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

// ObservedFields returns the names of the fields of a node that any thread
// observes remotely, sorted.
func (t *Tree) ObservedFields(address string) []string {
	var res []string
	for name := range t.remote[address] {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
