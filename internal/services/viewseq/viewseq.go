// Package viewseq tracks a monotonic sequence per view so that overlapping
// refreshes resolve to the newest request. There is no cancellation; a handler
// that discovers a newer sequence started while it was in flight should drop
// its result instead of rendering stale state.
package viewseq

import "sync"

// Tracker hands out per-view sequence numbers.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]uint64)}
}

// Begin registers a new request for the view and returns its sequence number.
func (t *Tracker) Begin(view string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[view]++
	return t.latest[view]
}

// IsLatest reports whether seq is still the newest request for the view.
func (t *Tracker) IsLatest(view string, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[view] == seq
}
