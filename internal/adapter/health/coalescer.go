package health

import "sync"

// valueCoalescer tracks the last published health value and reports whether
// a new value actually changed, so a steady stream of identical probe
// results can collapse into a single listener notification (spec.md §4.I:
// "a stream of identical values coalesces into a single listener
// notification"). Grounded on the teacher's StatusTransitionTracker, which
// solved the same noise-reduction problem for its discrete status enum.
type valueCoalescer struct {
	mu   sync.Mutex
	has  bool
	last float64
}

// changed records value and reports whether it differs from the last
// recorded value (true unconditionally the first time).
func (c *valueCoalescer) changed(value float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	isChange := !c.has || value != c.last
	c.has = true
	c.last = value
	return isChange
}
