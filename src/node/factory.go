package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mosaicnetworks/scenegraph/src/field"
)

// Base type names.
const (
	TypeNode        = "Node"
	TypeGroup       = "Group"
	TypeScene       = "Scene"
	TypeGlobal      = "Global"
	TypeTask        = "Task"
	TypeContentNode = "ContentNode"
)

// Names of the fields every node has.
const (
	FieldID           = "id"
	FieldFocusedChild = "focusedChild"
	FieldFocusable    = "focusable"
	FieldChange       = "change"
)

// Names of the fields of a Task node.
const (
	FieldFunctionName = "functionName"
	FieldControl      = "control"
	FieldState        = "state"
)

// FieldDef declares a default field of a subtype. A non-empty Alias of the
// form "childId.fieldName" declares an alias field instead.
type FieldDef struct {
	Name    string
	Kind    field.Kind
	Value   interface{}
	Options field.Options
	Alias   string
}

// Subtype is an entry of the subtype hierarchy.
type Subtype struct {
	Name    string
	Extends string
	Fields  []FieldDef
}

// Factory is the subtype hierarchy. It is created once at startup, before any
// thread runs, and shared by handle. Lookups are safe for concurrent use.
type Factory struct {
	sync.RWMutex
	types map[string]*Subtype
}

// NewFactory returns a factory with the base types registered.
func NewFactory() *Factory {
	f := &Factory{
		types: make(map[string]*Subtype),
	}

	f.types[TypeNode] = &Subtype{
		Name: TypeNode,
		Fields: []FieldDef{
			{Name: FieldID, Kind: field.KindString, Value: ""},
			{Name: FieldFocusedChild, Kind: field.KindNode, Value: field.Invalid, Options: field.Options{AlwaysNotify: true, System: true}},
			{Name: FieldFocusable, Kind: field.KindBoolean, Value: false, Options: field.Options{System: true}},
			{Name: FieldChange, Kind: field.KindAssocArray, Options: field.Options{AlwaysNotify: true, System: true, Hidden: true}},
		},
	}
	f.types[TypeGroup] = &Subtype{
		Name:    TypeGroup,
		Extends: TypeNode,
		Fields: []FieldDef{
			{Name: "visible", Kind: field.KindBoolean, Value: true},
			{Name: "opacity", Kind: field.KindFloat, Value: float32(1)},
			{Name: "translation", Kind: field.KindArray, Value: []interface{}{float32(0), float32(0)}},
		},
	}
	f.types[TypeScene] = &Subtype{
		Name:    TypeScene,
		Extends: TypeGroup,
		Fields: []FieldDef{
			{Name: "backgroundColor", Kind: field.KindString, Value: "0x000000FF"},
		},
	}
	f.types[TypeGlobal] = &Subtype{
		Name:    TypeGlobal,
		Extends: TypeNode,
	}
	f.types[TypeTask] = &Subtype{
		Name:    TypeTask,
		Extends: TypeNode,
		Fields: []FieldDef{
			{Name: FieldFunctionName, Kind: field.KindString, Value: ""},
			{Name: FieldControl, Kind: field.KindString, Value: "", Options: field.Options{AlwaysNotify: true}},
			{Name: FieldState, Kind: field.KindString, Value: "init"},
		},
	}
	f.types[TypeContentNode] = &Subtype{
		Name:    TypeContentNode,
		Extends: TypeNode,
		Fields: []FieldDef{
			{Name: "title", Kind: field.KindString, Value: ""},
			{Name: "description", Kind: field.KindString, Value: ""},
			{Name: "url", Kind: field.KindString, Value: ""},
		},
	}

	return f
}

// Register adds a subtype. The parent type must already be registered and the
// name must be new.
func (f *Factory) Register(st Subtype) error {
	f.Lock()
	defer f.Unlock()

	if st.Name == "" {
		return fmt.Errorf("subtype without name")
	}
	if _, ok := f.types[st.Name]; ok {
		return fmt.Errorf("subtype %s already registered", st.Name)
	}
	if st.Extends == "" {
		st.Extends = TypeNode
	}
	if _, ok := f.types[st.Extends]; !ok {
		return fmt.Errorf("subtype %s extends unknown type %s", st.Name, st.Extends)
	}

	f.types[st.Name] = &st

	return nil
}

// Lookup ...
func (f *Factory) Lookup(name string) (*Subtype, bool) {
	f.RLock()
	defer f.RUnlock()
	st, ok := f.types[name]
	return st, ok
}

// Names returns the registered subtype names in sorted order.
func (f *Factory) Names() []string {
	f.RLock()
	defer f.RUnlock()
	res := make([]string, 0, len(f.types))
	for name := range f.types {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Ancestry returns the chain of types from name up to Node, name first.
func (f *Factory) Ancestry(name string) []string {
	f.RLock()
	defer f.RUnlock()

	var chain []string
	for name != "" {
		st, ok := f.types[name]
		if !ok {
			break
		}
		chain = append(chain, name)
		name = st.Extends
	}
	return chain
}

// BaseType returns the first built-in type in the ancestry of name.
func (f *Factory) BaseType(name string) string {
	for _, t := range f.Ancestry(name) {
		switch t {
		case TypeNode, TypeGroup, TypeScene, TypeGlobal, TypeTask, TypeContentNode:
			return t
		}
	}
	return TypeNode
}

// IsSubtype reports whether name is ancestor or extends it.
func (f *Factory) IsSubtype(name, ancestor string) bool {
	for _, t := range f.Ancestry(name) {
		if t == ancestor {
			return true
		}
	}
	return false
}

// Fields returns the default fields of a subtype, ancestors first. A field
// redeclared by a descendant replaces the inherited one in place.
func (f *Factory) Fields(name string) []FieldDef {
	chain := f.Ancestry(name)

	var res []FieldDef
	index := make(map[string]int)

	f.RLock()
	defer f.RUnlock()

	for i := len(chain) - 1; i >= 0; i-- {
		for _, def := range f.types[chain[i]].Fields {
			if j, ok := index[def.Name]; ok {
				res[j] = def
				continue
			}
			index[def.Name] = len(res)
			res = append(res, def)
		}
	}

	return res
}
