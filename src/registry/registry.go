// Package registry keeps track of the threads of an engine.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Coordinator is the id of the coordinating thread. Workers get ids from 1.
const Coordinator = 0

// Thread describes one registered thread.
type Thread struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Task    string    `json:"task,omitempty"`
	Alive   bool      `json:"alive"`
	Started time.Time `json:"started"`
	Stopped time.Time `json:"stopped,omitempty"`
}

// Registry maps thread ids to threads and task addresses to thread ids. It is
// created once at startup and shared by handle; it is safe for concurrent
// use.
type Registry struct {
	sync.RWMutex
	threads map[int]*Thread
	tasks   map[string]int
	next    int
}

// New returns a registry holding the coordinating thread.
func New() *Registry {
	r := &Registry{
		threads: make(map[int]*Thread),
		tasks:   make(map[string]int),
		next:    Coordinator + 1,
	}
	r.threads[Coordinator] = &Thread{
		ID:      Coordinator,
		Name:    "coordinator",
		Alive:   true,
		Started: time.Now(),
	}
	return r
}

// Register allocates a thread id for a task.
func (r *Registry) Register(name string, taskAddress string) int {
	r.Lock()
	defer r.Unlock()

	id := r.next
	r.next++

	r.threads[id] = &Thread{
		ID:      id,
		Name:    name,
		Task:    taskAddress,
		Alive:   true,
		Started: time.Now(),
	}
	if taskAddress != "" {
		r.tasks[taskAddress] = id
	}

	return id
}

// Unregister marks a thread as stopped. The record is kept so late messages
// from it can be recognized and dropped.
func (r *Registry) Unregister(id int) {
	r.Lock()
	defer r.Unlock()

	if t, ok := r.threads[id]; ok && t.Alive {
		t.Alive = false
		t.Stopped = time.Now()
	}
}

// IsAlive ...
func (r *Registry) IsAlive(id int) bool {
	r.RLock()
	defer r.RUnlock()

	t, ok := r.threads[id]
	return ok && t.Alive
}

// ThreadForTask returns the thread running the task at address.
func (r *Registry) ThreadForTask(address string) (int, bool) {
	r.RLock()
	defer r.RUnlock()

	id, ok := r.tasks[address]
	return id, ok
}

// Lookup ...
func (r *Registry) Lookup(id int) (Thread, bool) {
	r.RLock()
	defer r.RUnlock()

	t, ok := r.threads[id]
	if !ok {
		return Thread{}, false
	}
	return *t, true
}

// Threads returns a copy of every thread record, by id.
func (r *Registry) Threads() []Thread {
	r.RLock()
	defer r.RUnlock()

	res := make([]Thread, 0, len(r.threads))
	for _, t := range r.threads {
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// AliveCount returns the number of running threads, the coordinator
// included.
func (r *Registry) AliveCount() int {
	r.RLock()
	defer r.RUnlock()

	n := 0
	for _, t := range r.threads {
		if t.Alive {
			n++
		}
	}
	return n
}
