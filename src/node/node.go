package node

import (
	"sort"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/sirupsen/logrus"
)

// Node is an addressable entity of a tree, holding typed fields and an
// ordered list of children. A nil entry in the child list is an invalid
// placeholder.
type Node struct {
	tree     *Tree
	address  string
	nodeType string
	subtype  string
	owner    int

	parent   *Node
	children []*Node

	fields  map[string]*field.Field
	aliases map[string]alias

	changed   bool
	destroyed bool
}

// Address implements field.NodeRef.
func (n *Node) Address() string {
	return n.address
}

// Changed implements field.NodeRef. It reports whether a field or the child
// list changed since the flag was last cleared.
func (n *Node) Changed() bool {
	return n.changed
}

// SetChanged sets or clears the dirty flag.
func (n *Node) SetChanged(changed bool) {
	n.changed = changed
}

// Type returns the built-in type the subtype derives from.
func (n *Node) Type() string {
	return n.nodeType
}

// Subtype ...
func (n *Node) Subtype() string {
	return n.subtype
}

// Owner returns the id of the thread owning the node.
func (n *Node) Owner() int {
	return n.owner
}

// Tree ...
func (n *Node) Tree() *Tree {
	return n.tree
}

// Parent returns nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Destroyed ...
func (n *Node) Destroyed() bool {
	return n.destroyed
}

// IsSubtype reports whether the node's subtype is name or extends it.
func (n *Node) IsSubtype(name string) bool {
	return n.tree.factory.IsSubtype(n.subtype, name)
}

// OwnerLocked reports whether the node's role fixes its owner to the
// coordinating thread.
func (n *Node) OwnerLocked() bool {
	return n.nodeType == TypeGlobal || n.nodeType == TypeScene
}

// SetOwner transfers ownership of the node.
func (n *Node) SetOwner(thread int) error {
	if thread == n.owner {
		return nil
	}
	if n.OwnerLocked() {
		return common.NewFieldErr(n.address, common.OwnerLocked, "")
	}
	n.owner = thread
	return nil
}

func (n *Node) adopt() {
	n.logger().WithField("old_owner", n.owner).Debug("Owner thread gone, adopting node")
	n.owner = n.tree.thread
}

func (n *Node) logger() *logrus.Entry {
	return n.tree.logger.WithFields(logrus.Fields{
		"address": n.address,
		"subtype": n.subtype,
	})
}

// InfoValue implements field.Origin. It reads a local field without any
// synchronization.
func (n *Node) InfoValue(name string) (interface{}, bool) {
	f, ok := n.fields[name]
	if !ok {
		return nil, false
	}
	return f.Value(), true
}

// Field returns the local field cell.
func (n *Node) Field(name string) (*field.Field, bool) {
	f, ok := n.fields[name]
	return f, ok
}

// FieldNames returns the names of the local fields, sorted.
func (n *Node) FieldNames() []string {
	res := make([]string, 0, len(n.fields))
	for name := range n.fields {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// HasField reports whether name is a field or an alias of the node.
func (n *Node) HasField(name string) bool {
	if _, ok := n.fields[name]; ok {
		return true
	}
	_, ok := n.aliases[name]
	return ok
}

// AddField creates a field. It returns false if a field or alias with that
// name already exists.
func (n *Node) AddField(name string, kind field.Kind, value interface{}, opts field.Options) bool {
	if n.HasField(name) {
		return false
	}
	f := field.New(name, kind, value, opts)
	f.SetOrigin(n)
	n.fields[name] = f
	n.changed = true
	return true
}

// AddFields creates a field for each entry of values, with the kind of the
// value. Existing fields are left alone.
func (n *Node) AddFields(values map[string]interface{}) bool {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	added := false
	for _, name := range names {
		v := values[name]
		kind := field.KindOf(v)
		if kind == field.KindInvalid {
			kind = field.KindDynamic
		}
		if n.AddField(name, kind, v, field.Options{}) {
			added = true
		}
	}
	return added
}

// RemoveField deletes a field and its observers. System fields can not be
// removed.
func (n *Node) RemoveField(name string) bool {
	if _, ok := n.aliases[name]; ok {
		delete(n.aliases, name)
		n.changed = true
		return true
	}
	f, ok := n.fields[name]
	if !ok {
		return false
	}
	if f.System() {
		n.logger().WithError(common.NewFieldErr(n.address, common.ReadOnly, name)).Warn("RemoveField")
		return false
	}
	f.Clear()
	delete(n.fields, name)
	n.changed = true
	return true
}

// GetValue reads a field. If another thread owns the node and the local copy
// is not fresh, it blocks until the owner publishes. It returns false if the
// field does not exist or the owner did not answer in time.
func (n *Node) GetValue(name string) (interface{}, bool) {
	if a, ok := n.aliases[name]; ok {
		target, err := n.aliasTarget(name, a)
		if err != nil {
			n.logger().WithError(err).Warn("GetValue")
			return nil, false
		}
		return target.GetValue(a.targetField)
	}

	if !n.ensureFresh(name) {
		return nil, false
	}

	f, ok := n.fields[name]
	if !ok {
		return nil, false
	}
	return f.Get(), true
}

// ensureFresh runs a rendezvous with the owner when needed.
func (n *Node) ensureFresh(name string) bool {
	s := n.tree.sync
	if s == nil || n.owner == n.tree.thread {
		return true
	}
	if s.IsFresh(n, name) {
		return true
	}
	if !s.IsAlive(n.owner) {
		n.adopt()
		return true
	}
	if !s.RequestFieldValue(n, name) {
		n.logger().WithFields(logrus.Fields{
			"field": name,
			"owner": n.owner,
		}).Warn("Rendezvous timeout")
		return false
	}
	return true
}

// SetValue is the validated write. Errors are logged and reported as false;
// the previous value is kept.
func (n *Node) SetValue(name string, value interface{}) bool {
	if err := n.TrySetValue(name, value); err != nil {
		n.logger().WithError(err).Warn("SetValue")
		return false
	}
	return true
}

// TrySetValue is SetValue returning the validation error.
func (n *Node) TrySetValue(name string, value interface{}) error {
	return n.setValue(name, value, false, -1)
}

// ApplyUpdate applies a write received from thread from. Observers are
// notified, the write is not sent back to from. Fields that do not exist yet
// are created.
func (n *Node) ApplyUpdate(name string, value interface{}, from int) error {
	if !n.HasField(name) {
		n.SetValueSilent(name, value)
		f := n.fields[name]
		if f != nil {
			f.Notify()
		}
		n.propagate(name, value, from)
		return nil
	}
	return n.setValue(name, value, true, from)
}

func (n *Node) setValue(name string, value interface{}, loose bool, from int) error {
	if a, ok := n.aliases[name]; ok {
		target, err := n.aliasTarget(name, a)
		if err != nil {
			return err
		}
		return target.setValue(a.targetField, value, loose, from)
	}

	f, ok := n.fields[name]
	if !ok {
		return common.NewFieldErr(n.address, common.UnknownField, name)
	}

	if loose {
		if v, ok := field.Convert(f.Kind(), value); ok {
			value = v
		}
	}

	changed, err := f.Set(value, true, false)
	if err != nil {
		return err
	}
	if changed {
		n.changed = true
	}
	if changed || f.Options().AlwaysNotify {
		n.propagate(name, f.Value(), from)
	}
	return nil
}

// propagate pushes a write to the owner of the node and to the threads that
// observe the field remotely.
func (n *Node) propagate(name string, value interface{}, from int) {
	s := n.tree.sync
	if s == nil {
		return
	}

	var targets []int
	if n.owner != n.tree.thread {
		targets = append(targets, n.owner)
	}
	for _, th := range n.tree.RemoteObservers(n.address, name) {
		if th != n.owner {
			targets = append(targets, th)
		}
	}

	for _, th := range targets {
		if th == from || th == n.tree.thread {
			continue
		}
		s.SendUpdate(th, n, name, value)
	}
}

// SetValueSilent writes without validation, notification or
// synchronization. A missing field is created with the kind of the value.
// Used to build trees programmatically and to apply snapshots.
func (n *Node) SetValueSilent(name string, value interface{}) {
	if a, ok := n.aliases[name]; ok {
		if target, err := n.aliasTarget(name, a); err == nil {
			target.SetValueSilent(a.targetField, value)
		}
		return
	}

	f, ok := n.fields[name]
	if !ok {
		kind := field.KindOf(value)
		if kind == field.KindInvalid {
			kind = field.KindDynamic
		}
		f = field.New(name, kind, value, field.Options{})
		f.SetOrigin(n)
		n.fields[name] = f
		n.changed = true
		return
	}

	v, ok := field.Convert(f.Kind(), value)
	if !ok {
		n.logger().WithFields(logrus.Fields{
			"field": name,
			"kind":  f.Kind().String(),
		}).Debug("Silent write of incompatible value dropped")
		return
	}
	if changed, _ := f.Set(v, false, false); changed {
		n.changed = true
	}
}

// ObserveField registers an observer on a field. Observing a field of a node
// owned by another thread also asks the owner to push writes to that field.
func (n *Node) ObserveField(name string, scope field.Scope, subscriber string, target field.Target, alias string, infoFields []string) bool {
	if a, ok := n.aliases[name]; ok {
		t, err := n.aliasTarget(name, a)
		if err != nil {
			n.logger().WithError(err).Warn("ObserveField")
			return false
		}
		if alias == "" {
			alias = name
		}
		return t.ObserveField(a.targetField, scope, subscriber, target, alias, infoFields)
	}

	f, ok := n.fields[name]
	if !ok {
		n.ensureFresh(name)
		if f, ok = n.fields[name]; !ok {
			n.logger().WithError(common.NewFieldErr(n.address, common.UnknownField, name)).Warn("ObserveField")
			return false
		}
	}

	f.AddObserver(scope, subscriber, target, alias, infoFields)

	if s := n.tree.sync; s != nil && n.owner != n.tree.thread {
		s.Observe(n, name, false)
	}
	return true
}

// Observe registers an unscoped callback.
func (n *Node) Observe(name string, fn func(field.Event)) bool {
	return n.ObserveField(name, field.Unscoped, "", field.Callback(fn), "", nil)
}

// ObservePort registers a queue observer scoped to host.
func (n *Node) ObservePort(name string, host *Node, port *field.Port, infoFields ...string) bool {
	subscriber := ""
	if host != nil {
		subscriber = host.address
	}
	return n.ObserveField(name, field.Scoped, subscriber, field.Queue(port), "", infoFields)
}

// UnobserveField removes unscoped observers, or the scoped observers of
// subscriber.
func (n *Node) UnobserveField(name string, scope field.Scope, subscriber string) bool {
	if a, ok := n.aliases[name]; ok {
		t, err := n.aliasTarget(name, a)
		if err != nil {
			return false
		}
		return t.UnobserveField(a.targetField, scope, subscriber)
	}

	f, ok := n.fields[name]
	if !ok {
		return false
	}
	removed := f.RemoveObservers(scope, subscriber)

	if s := n.tree.sync; s != nil && n.owner != n.tree.thread && !f.HasObservers() {
		s.Observe(n, name, true)
	}
	return removed > 0
}

// Destroy detaches the node from its parent, clears the observers of every
// field and unregisters the node and its subtree from the tree.
func (n *Node) Destroy() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
	n.destroy()
}

func (n *Node) destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true
	for _, c := range n.children {
		if c != nil && c.parent == n {
			c.parent = nil
			c.destroy()
		}
	}
	n.children = nil
	for _, f := range n.fields {
		f.Clear()
	}
	n.tree.unregister(n)
}
