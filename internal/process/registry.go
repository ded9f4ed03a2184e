package process

import (
	"maps"
	"slices"
	"sync"
)

// Names of running servers and their process ids.
//
// After the first [Registry.Prune] the registry only accepts the names it was
// last pruned to, so a name dropped by a reload is never added back by a
// request that started before it. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	pids    map[string]int
	allowed map[string]bool // Nil accepts any name.
}

// Creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pids: make(map[string]int)}
}

// Records pid as the process of the named server. Reports false, recording
// nothing, when the name is no longer configured.
func (r *Registry) Set(name string, pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allowed != nil && !r.allowed[name] {
		return false
	}
	r.pids[name] = pid
	return true
}

// Process id of the named server, if tracked.
func (r *Registry) Get(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.pids[name]
	return pid, ok
}

// Forgets the named server.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pids, name)
}

// Forgets the named server only if it is still tracked with pid. Reports
// whether the entry was removed. A concurrent start that recorded a newer
// process is left alone.
func (r *Registry) DeleteIf(name string, pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.pids[name]; ok && cur == pid {
		delete(r.pids, name)
		return true
	}
	return false
}

// Drops every entry whose name is not in keep and returns the dropped
// names, sorted. Later calls to [Registry.Set] accept only names in keep.
func (r *Registry) Prune(keep []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.allowed = make(map[string]bool, len(keep))
	for _, name := range keep {
		r.allowed[name] = true
	}

	var dropped []string
	for name := range r.pids {
		if !r.allowed[name] {
			dropped = append(dropped, name)
			delete(r.pids, name)
		}
	}
	slices.Sort(dropped)
	return dropped
}

// Copy of every entry.
func (r *Registry) Snapshot() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.pids)
}

// Number of tracked servers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pids)
}
