// Package shutdown handles interrupt signals for the CLI: the first signal
// stops a run between topics, a second one exits immediately, and registered
// cleanup functions run in priority order on the way out.
package shutdown

import "sync"

// SignalCounter counts shutdown signals and calls onForce once the count
// reaches forceAfter.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment adds one signal and returns the new count. onForce runs under
// the lock, so it should exit the process or return quickly.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset sets the count back to zero. Watch mode calls it after each cycle
// that was not interrupted.
func (s *SignalCounter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}
