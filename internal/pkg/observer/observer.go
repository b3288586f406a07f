// Package observer keeps an ordered list of callbacks and invokes them with
// per-callback failure isolation.
package observer

import (
	"fmt"
	"sync"
)

// Func is a registered callback. A returned error is reported, not fatal.
type Func[T any] func(T) error

// Handle identifies one registration. Callbacks are removed by handle identity
// because Go funcs are not comparable.
type Handle[T any] struct {
	fn Func[T]
}

// Failure records a callback that returned an error or panicked.
type Failure struct {
	Index int
	Err   error
}

// Registry is safe for concurrent use. Notify runs callbacks outside the lock,
// so a callback may add or remove registrations without deadlocking.
type Registry[T any] struct {
	mu      sync.Mutex
	handles []*Handle[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Add appends fn after every existing callback.
func (r *Registry[T]) Add(fn Func[T]) *Handle[T] {
	h := &Handle[T]{fn: fn}
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()
	return h
}

// Remove drops h and reports whether it was registered.
func (r *Registry[T]) Remove(h *Handle[T]) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.handles {
		if existing == h {
			r.handles = append(r.handles[:i:i], r.handles[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every registration.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.handles = nil
	r.mu.Unlock()
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Notify invokes a snapshot of the registered callbacks in registration order.
// Every callback runs even when an earlier one fails or panics.
func (r *Registry[T]) Notify(v T) []Failure {
	r.mu.Lock()
	snapshot := make([]*Handle[T], len(r.handles))
	copy(snapshot, r.handles)
	r.mu.Unlock()

	var failures []Failure
	for i, h := range snapshot {
		if err := invoke(h.fn, v); err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
		}
	}
	return failures
}

func invoke[T any](fn Func[T], v T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("callback panic: %v", rec)
		}
	}()
	return fn(v)
}
