// Package motion owns the commanded velocity and the safety loop that relays
// it to the robot.
package motion

import (
	"sync"
	"time"
)

// Velocity is a consistent snapshot of the commanded velocity. LastSetAt is
// updated in the same critical section as the vector, so a snapshot never
// mixes an old vector with a new timestamp.
type Velocity struct {
	Vx, Vy, Vyaw float64
	LastSetAt    time.Time
}

// Zero reports whether the vector is all zero.
func (v Velocity) Zero() bool {
	return v.Vx == 0 && v.Vy == 0 && v.Vyaw == 0
}

// State holds the single shared velocity. The dispatcher writes it, the
// safety loop reads it; one mutex covers both.
type State struct {
	mu sync.Mutex
	v  Velocity
}

// NewState returns a State with zero velocity and no deadline.
func NewState() *State {
	return &State{}
}

// Set overwrites the velocity and refreshes the watchdog deadline. Last
// write wins between concurrent callers.
func (s *State) Set(vx, vy, vyaw float64) {
	s.mu.Lock()
	s.v = Velocity{Vx: vx, Vy: vy, Vyaw: vyaw, LastSetAt: time.Now()}
	s.mu.Unlock()
}

// ForceZero clears the vector and the deadline.
func (s *State) ForceZero() {
	s.mu.Lock()
	s.v = Velocity{}
	s.mu.Unlock()
}

// Snapshot returns the current velocity tuple.
func (s *State) Snapshot() Velocity {
	s.mu.Lock()
	v := s.v
	s.mu.Unlock()
	return v
}
