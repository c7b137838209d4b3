// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/zentypes/ports"
)

// System reads the wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.Clock = System{}

// Stepping returns a fixed start time and moves forward by Step on every read.
// Durations measured with it are deterministic.
type Stepping struct {
	mu   sync.Mutex
	next time.Time
	Step time.Duration
}

// NewStepping creates a clock starting at start.
func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{next: start, Step: step}
}

// Now returns the current reading and advances the clock.
func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next = s.next.Add(s.Step)
	return t
}

var _ ports.Clock = (*Stepping)(nil)
