package field

// Scope selects which observer list a registration goes into.
type Scope uint8

const (
	// Permanent observers can never be removed. They run first.
	Permanent Scope = iota
	// Unscoped observers are removed by field name only.
	Unscoped
	// Scoped observers are grouped by subscriber and removed per subscriber.
	Scoped
)

// String ...
func (s Scope) String() string {
	switch s {
	case Permanent:
		return "permanent"
	case Unscoped:
		return "unscoped"
	case Scoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// TargetKind tags the variant held by a Target.
type TargetKind uint8

const (
	// TargetCallback targets are invoked synchronously.
	TargetCallback TargetKind = iota
	// TargetQueue targets receive the event on a Port.
	TargetQueue
)

// Target is where an observer delivers its events: either a callback or a
// queue.
type Target struct {
	Kind     TargetKind
	Callback func(Event)
	Port     *Port
}

// Callback returns a callback target.
func Callback(fn func(Event)) Target {
	return Target{Kind: TargetCallback, Callback: fn}
}

// Queue returns a queue target.
func Queue(p *Port) Target {
	return Target{Kind: TargetQueue, Port: p}
}

// Event is built for every observer invocation. Value is the field value at
// notification time and Info holds the requested info fields of the origin
// node, also read at notification time.
type Event struct {
	Field string
	Value interface{}
	Node  NodeRef
	Info  map[string]interface{}
}

// Observer is one registration on a field.
type Observer struct {
	Scope      Scope
	Subscriber string
	Target     Target
	Alias      string
	InfoFields []string

	running bool
}

// Running reports whether the observer is currently being invoked.
func (o *Observer) Running() bool {
	return o.running
}
