package naming

import (
	"sync"
	"time"
)

// Namer hands out filenames whose timestamps strictly increase, even when
// the clock has not advanced a full second between calls.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewNamer creates a Namer. now defaults to time.Now.
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// Next returns the filename and timestamp for topic.
func (n *Namer) Next(topic string) (string, time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := n.now().Truncate(time.Second)
	if !n.last.IsZero() && !ts.After(n.last) {
		ts = n.last.Add(time.Second)
	}
	n.last = ts
	return FileName(topic, ts), ts
}
