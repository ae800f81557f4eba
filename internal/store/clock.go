package store

import (
	"sync"
	"time"
)

// Clock is the time source for write stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// stamper turns a Clock into strictly increasing UTC instants at microsecond
// precision, the resolution both drivers store. A clock that stalls or steps
// back yields last+1µs.
type stamper struct {
	mu    sync.Mutex
	clock Clock
	last  time.Time
}

func newStamper(c Clock) *stamper {
	return &stamper{clock: c}
}

func (s *stamper) next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}
