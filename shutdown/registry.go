package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func is a cleanup step run during shutdown.
type Func func(ctx context.Context) error

type entry struct {
	name     string
	fn       Func
	priority int // lower = earlier
}

// Registry holds cleanup functions ordered by priority.
//
// Typical priorities used by the CLI:
//   - 10: close the topic cache and database
//   - 90: flush the logger
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. Registration after Run is a no-op.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || fn == nil {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// Run calls every function once in priority order, registration order
// breaking ties, and returns the failures. Later calls return nil.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := r.sortedLocked()
	r.mu.Unlock()

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown: %s: %w", e.name, err))
		}
	}
	return errs
}

// Names returns the registered names in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedLocked()
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

func (r *Registry) sortedLocked() []entry {
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}
