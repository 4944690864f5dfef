// Package pathlock serializes operations on a shared resource identified by
// its canonical filesystem path. Record mutations, archive runs, and watcher
// unpacks all funnel through the same registry so that two goroutines never
// rewrite the same monitoring record concurrently.
package pathlock

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry hands out one mutex per canonical key. Zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// Canonical reduces a path to the form used as the lock key: absolute,
// cleaned, case-folded. Case folding matters because the record files come
// from operating systems with case-insensitive filesystems.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return strings.ToLower(abs)
}

// Lock acquires the mutex for the given path, blocking until it is free, and
// returns the unlock function. Entries are reference counted so the registry
// does not grow with every path ever touched.
func (r *Registry) Lock(path string) func() {
	key := Canonical(path)

	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		e = &entry{}
		r.locks[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
