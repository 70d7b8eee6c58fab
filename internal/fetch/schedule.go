package fetch

import (
	"math"
	"time"
)

// Schedule yields retry delays that start at an initial value and double on
// every call. It never runs out; Reset starts it over.
type Schedule struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

// NewSchedule returns a schedule starting at initial. A positive max caps the
// delay; zero leaves it uncapped (it saturates instead of overflowing).
func NewSchedule(initial, max time.Duration) *Schedule {
	if initial <= 0 {
		initial = time.Second
	}
	return &Schedule{initial: initial, max: max, next: initial}
}

// Next returns the current delay and advances the schedule.
func (s *Schedule) Next() time.Duration {
	d := s.next
	if s.max > 0 && d > s.max {
		d = s.max
	}
	if s.next > math.MaxInt64/2 {
		s.next = math.MaxInt64
	} else {
		s.next *= 2
	}
	return d
}

// Reset rewinds the schedule to its initial delay.
func (s *Schedule) Reset() {
	s.next = s.initial
}
