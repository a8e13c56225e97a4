package field

import (
	"github.com/mosaicnetworks/scenegraph/src/common"
)

// Origin is the node a field belongs to. Events carry it and info fields are
// read from it.
type Origin interface {
	NodeRef
	InfoValue(name string) (interface{}, bool)
}

// Options are the flags a field is created with.
type Options struct {
	// AlwaysNotify makes every Set notify, changed or not.
	AlwaysNotify bool
	// System fields are built in and cannot be removed.
	System bool
	// Hidden fields are left out of snapshots until they are first read.
	Hidden bool
	// ValueByRef stores arrays and assocarrays without copying them.
	ValueByRef bool
}

// Field is a typed observable value cell. It is not safe for concurrent use;
// a field is only ever touched by the thread owning its tree.
type Field struct {
	name  string
	kind  Kind
	value interface{}
	opts  Options

	origin Origin

	permanent   []*Observer
	unscoped    []*Observer
	scoped      map[string][]*Observer
	scopedOrder []string
}

// New creates a field. value is coerced to kind, the zero value of the kind
// is used if it can not be.
func New(name string, kind Kind, value interface{}, opts Options) *Field {
	f := &Field{
		name:   name,
		kind:   kind,
		opts:   opts,
		scoped: make(map[string][]*Observer),
	}
	v, ok := Coerce(kind, value)
	if !ok || (value == nil && kind != KindDynamic) {
		v = Zero(kind)
	}
	f.value = v
	return f
}

// Name ...
func (f *Field) Name() string {
	return f.name
}

// Kind ...
func (f *Field) Kind() Kind {
	return f.kind
}

// Options returns the flags the field was created with and the current
// hidden state.
func (f *Field) Options() Options {
	return f.opts
}

// Hidden ...
func (f *Field) Hidden() bool {
	return f.opts.Hidden
}

// System ...
func (f *Field) System() bool {
	return f.opts.System
}

// SetOrigin attaches the field to its node.
func (f *Field) SetOrigin(o Origin) {
	f.origin = o
}

// Get returns the current value and unhides the field.
func (f *Field) Get() interface{} {
	f.opts.Hidden = false
	return f.value
}

// Value returns the current value without side effects.
func (f *Field) Value() interface{} {
	return f.value
}

// CanAccept reports whether Set would accept v.
func (f *Field) CanAccept(v interface{}) bool {
	_, ok := Coerce(f.kind, v)
	return ok
}

// Set writes a value. It returns whether the value changed. Observers are
// notified when notify is true and the field always notifies or the value
// changed. A rejected write keeps the previous value.
func (f *Field) Set(value interface{}, notify bool, byRef bool) (bool, error) {
	v, ok := Coerce(f.kind, value)
	if !ok {
		return false, common.NewFieldErr(f.originAddress(), common.TypeMismatch, f.name)
	}

	if !byRef && !f.opts.ValueByRef {
		v = Copy(v)
	}

	changed := !Equal(f.value, v)
	f.value = v

	if notify && (f.opts.AlwaysNotify || changed) {
		f.Notify()
	}

	return changed, nil
}

func (f *Field) originAddress() string {
	if f.origin == nil {
		return ""
	}
	return f.origin.Address()
}

// AddObserver registers an observer. subscriber only matters for Scoped
// observers. alias, if not empty, replaces the field name in events.
func (f *Field) AddObserver(scope Scope, subscriber string, target Target, alias string, infoFields []string) *Observer {
	o := &Observer{
		Scope:      scope,
		Subscriber: subscriber,
		Target:     target,
		Alias:      alias,
		InfoFields: infoFields,
	}

	switch scope {
	case Permanent:
		f.permanent = append(f.permanent, o)
	case Unscoped:
		f.unscoped = append(f.unscoped, o)
	case Scoped:
		if _, ok := f.scoped[subscriber]; !ok {
			f.scopedOrder = append(f.scopedOrder, subscriber)
		}
		f.scoped[subscriber] = append(f.scoped[subscriber], o)
	}

	return o
}

// RemoveObservers removes unscoped observers, or the scoped observers of one
// subscriber (all of them if subscriber is empty). Permanent observers are
// never removed. It returns the number of observers removed.
func (f *Field) RemoveObservers(scope Scope, subscriber string) int {
	switch scope {
	case Unscoped:
		n := len(f.unscoped)
		f.unscoped = nil
		return n
	case Scoped:
		if subscriber == "" {
			n := 0
			for _, obs := range f.scoped {
				n += len(obs)
			}
			f.scoped = make(map[string][]*Observer)
			f.scopedOrder = nil
			return n
		}
		n := len(f.scoped[subscriber])
		if n == 0 {
			return 0
		}
		delete(f.scoped, subscriber)
		for i, s := range f.scopedOrder {
			if s == subscriber {
				f.scopedOrder = append(f.scopedOrder[:i], f.scopedOrder[i+1:]...)
				break
			}
		}
		return n
	}
	return 0
}

// Clear removes every observer, permanent ones included. Used when the field
// itself goes away.
func (f *Field) Clear() {
	f.permanent = nil
	f.unscoped = nil
	f.scoped = make(map[string][]*Observer)
	f.scopedOrder = nil
}

// HasObservers ...
func (f *Field) HasObservers() bool {
	return len(f.permanent) > 0 || len(f.unscoped) > 0 || len(f.scopedOrder) > 0
}

// ObserverCount returns the number of registered observers.
func (f *Field) ObserverCount() int {
	n := len(f.permanent) + len(f.unscoped)
	for _, obs := range f.scoped {
		n += len(obs)
	}
	return n
}

// Observed reports whether subscriber has a queue observer on the field.
func (f *Field) Observed(subscriber string) bool {
	for _, o := range f.observers() {
		if o.Subscriber == subscriber && o.Target.Kind == TargetQueue {
			return true
		}
	}
	return false
}

// observers returns a copy of all observers in notification order.
func (f *Field) observers() []*Observer {
	all := make([]*Observer, 0, f.ObserverCount())
	all = append(all, f.permanent...)
	all = append(all, f.unscoped...)
	for _, s := range f.scopedOrder {
		all = append(all, f.scoped[s]...)
	}
	return all
}

// Notify invokes every observer: permanent, then unscoped, then scoped by
// subscriber. Observers removed during notification are still invoked in
// this round.
func (f *Field) Notify() {
	for _, o := range f.observers() {
		f.dispatch(o)
	}
}

func (f *Field) dispatch(o *Observer) {
	if o.running {
		return
	}
	o.running = true
	defer func() { o.running = false }()

	ev := f.event(o)

	switch o.Target.Kind {
	case TargetCallback:
		if o.Target.Callback != nil {
			o.Target.Callback(ev)
		}
	case TargetQueue:
		if o.Target.Port != nil {
			o.Target.Port.Post(ev)
		}
	}
}

func (f *Field) event(o *Observer) Event {
	ev := Event{
		Field: f.name,
		Value: f.value,
	}
	if o.Alias != "" {
		ev.Field = o.Alias
	}
	if f.origin != nil {
		ev.Node = f.origin
		if len(o.InfoFields) > 0 {
			ev.Info = make(map[string]interface{}, len(o.InfoFields))
			for _, name := range o.InfoFields {
				if v, ok := f.origin.InfoValue(name); ok {
					ev.Info[name] = v
				}
			}
		}
	}
	return ev
}
