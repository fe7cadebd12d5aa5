// Package store holds client-side state for the library desk: catalog,
// borrow requests, users, favorites and the persisted session.
package store

import (
	"errors"
	"sync"
)

// ErrStale is returned when a response arrived after a newer request for the
// same slot was issued; the response is discarded.
var ErrStale = errors.New("store: response superseded by a newer request")

// Ticket identifies one request within a slot.
type Ticket struct {
	slot string
	n    uint64
}

// Sequencer implements last-request-wins per slot: only the newest ticket's
// response may be applied.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func (s *Sequencer) Next(slot string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		s.latest = map[string]uint64{}
	}
	s.latest[slot]++
	return Ticket{slot: slot, n: s.latest[slot]}
}

// Current reports whether t is still the newest ticket of its slot.
func (s *Sequencer) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[t.slot] == t.n
}
