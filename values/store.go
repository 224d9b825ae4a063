// Package values holds the most recent value received for each OSC address.
//
// A Store is written by the network listener and read by the apply loop. One
// mutex guards everything; callers never hold it across host calls because
// every method copies out what it needs before returning.
package values

import "sync"

// Store maps OSC addresses to their latest numeric value.
//
// "current" holds values received since the last EndCycle. "last" keeps every
// value until it is overwritten or the store is cleared, and backs hold-last
// reads. Both are written together by Publish.
type Store struct {
	mu        sync.Mutex
	current   map[string]float64
	last      map[string]float64
	latest    float64
	hasLatest bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		current: make(map[string]float64),
		last:    make(map[string]float64),
	}
}

// Publish records v as the newest value for address.
func (s *Store) Publish(address string, v float64) {
	s.mu.Lock()
	s.current[address] = v
	s.last[address] = v
	s.latest = v
	s.hasLatest = true
	s.mu.Unlock()
}

// Read returns the value received for address during the current cycle. When
// none arrived and holdLast is set, it falls back to the last value ever
// received.
func (s *Store) Read(address string, holdLast bool) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.current[address]; ok {
		return v, true
	}
	if holdLast {
		v, ok := s.last[address]
		return v, ok
	}
	return 0, false
}

// Latest returns the most recent value across all addresses.
func (s *Store) Latest() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLatest
}

// EndCycle forgets the values of the cycle that just ended. Held values stay.
func (s *Store) EndCycle() {
	s.mu.Lock()
	clear(s.current)
	s.mu.Unlock()
}

// Clear drops every value, including held ones and the latest scalar.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.current)
	clear(s.last)
	s.latest = 0
	s.hasLatest = false
	s.mu.Unlock()
}

// Len returns the number of addresses with a held value.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}
