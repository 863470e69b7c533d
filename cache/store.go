// Package cache remembers when a topic slug last produced a design so repeated
// runs can skip topics generated within a freshness window.
package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultFreshness is how long a recorded topic stays fresh.
const DefaultFreshness = 24 * time.Hour

// ErrClosed is returned by a Store after Close.
var ErrClosed = errors.New("cache: store is closed")

// Store maps a topic slug to the time a design was last written for it.
// Slugs are compared byte for byte. Entries are never evicted.
type Store interface {
	Lookup(ctx context.Context, slug string) (time.Time, bool, error)
	Record(ctx context.Context, slug string, ts time.Time) error
	Close() error
}

// Opener opens a Store for one run. The caller closes it.
type Opener func(ctx context.Context) (Store, error)

// IsFresh reports whether ts falls within window before now. Timestamps in
// the future count as fresh.
func IsFresh(ts, now time.Time, window time.Duration) bool {
	if ts.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(ts) < window
}
