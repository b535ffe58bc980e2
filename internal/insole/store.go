package insole

import "sync"

// Store holds the most recent validated sample. Exactly one writer (the
// decode path) replaces the sample wholesale on each valid frame; any
// number of readers take value snapshots between writes. Readers may see
// a fully-old or fully-new sample, never a torn mix.
type Store struct {
	mu      sync.RWMutex
	current PressureSample
	valid   bool
}

// Publish replaces the current sample. Partial field updates are never
// visible to readers.
func (s *Store) Publish(sample PressureSample) {
	s.mu.Lock()
	s.current = sample
	s.valid = true
	s.mu.Unlock()
}

// Current returns a snapshot of the latest sample. Before the first
// valid frame it returns the zero sample (all points zero, FootUnknown).
func (s *Store) Current() PressureSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// HasSample reports whether at least one valid frame has been published.
func (s *Store) HasSample() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// PointValue returns the value for one-based sensor position n from the
// latest sample, or 0 when n is outside [1, PointCount].
func (s *Store) PointValue(n int) uint16 {
	return s.Current().PointValue(n)
}
