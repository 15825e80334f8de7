package drive

import (
	"math"
	"sync"
	"time"
)

// Source is polled by the command tick, x and y are in [-1, 1].
type Source interface {
	SampleDirection() (x, y float64)
}

// Stick is a virtual analog stick set from the API. It springs back to the
// center when not updated for Hold.
type Stick struct {
	Hold time.Duration
	Now  func() time.Time

	mu      sync.Mutex
	x, y    float64
	updated time.Time
}

func (s *Stick) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Set moves the stick, values are clamped to [-1, 1], NaN is the center.
func (s *Stick) Set(x, y float64) {
	s.mu.Lock()
	s.x, s.y = clamp(x), clamp(y)
	s.updated = s.now()
	s.mu.Unlock()
}

func (s *Stick) Center() {
	s.Set(0, 0)
}

func (s *Stick) SampleDirection() (x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Hold > 0 && s.now().Sub(s.updated) > s.Hold {
		return 0, 0
	}
	return s.x, s.y
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
