package registry

import (
	"sync"

	"github.com/pkg/errors"
)

// Process-wide stack of active registries. New nodes that are not given an
// explicit registry are tracked by the top of the stack.
var (
	activeMu sync.Mutex
	active   []*Registry
)

// Push makes r the active registry until the matching Pop.
func Push(r *Registry) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = append(active, r)
}

// Pop removes and returns the active registry, or nil if none is active.
func Pop() *Registry {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(active) == 0 {
		return nil
	}
	r := active[len(active)-1]
	active[len(active)-1] = nil
	active = active[:len(active)-1]
	return r
}

// Active returns the innermost active registry, or nil.
func Active() *Registry {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(active) == 0 {
		return nil
	}
	return active[len(active)-1]
}

// Scope runs fn with a fresh registry pushed as active, then closes it.
//
// The registry is closed even if fn fails; fn's error takes precedence over a
// release error.
func Scope(name string, fn func(r *Registry) error) (err error) {
	r := New(name)
	Push(r)
	defer func() {
		Pop()
		closeErr := r.Close()
		if err == nil && closeErr != nil {
			err = errors.WithMessagef(closeErr, "closing scope %q", name)
		}
	}()
	return fn(r)
}
