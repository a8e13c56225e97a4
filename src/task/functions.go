package task

import (
	"fmt"
	"sort"
	"sync"
)

// Function is the entry point of a task. It runs on the task's thread and
// returns when its work is done or when ctx.Stopped reports true.
type Function func(ctx *Context) error

// Functions maps entry-point names, as stored in the functionName field of
// task nodes, to Functions.
type Functions struct {
	sync.RWMutex
	functions map[string]Function
}

// NewFunctions ...
func NewFunctions() *Functions {
	return &Functions{
		functions: make(map[string]Function),
	}
}

// Register adds an entry point. Names are unique.
func (f *Functions) Register(name string, fn Function) error {
	if name == "" {
		return fmt.Errorf("empty function name")
	}
	if fn == nil {
		return fmt.Errorf("nil function %q", name)
	}

	f.Lock()
	defer f.Unlock()

	if _, ok := f.functions[name]; ok {
		return fmt.Errorf("function %q already registered", name)
	}
	f.functions[name] = fn
	return nil
}

// Lookup ...
func (f *Functions) Lookup(name string) (Function, bool) {
	f.RLock()
	defer f.RUnlock()
	fn, ok := f.functions[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (f *Functions) Names() []string {
	f.RLock()
	defer f.RUnlock()
	res := make([]string, 0, len(f.functions))
	for name := range f.functions {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
