package pistonpress

import (
	"fmt"
	"time"
)

// Stopwatch measures the phases of a print job.
// Mark is not safe for concurrent use; Elapsed may be called from any goroutine.
type Stopwatch struct {
	now   func() time.Time
	start time.Time
	last  time.Time
}

// Lap is the time since the previous mark and since start.
type Lap struct {
	Section time.Duration
	Total   time.Duration
}

// String renders the lap as "section(total)ms".
func (l Lap) String() string {
	return fmt.Sprintf("%d(%d)ms", l.Section.Milliseconds(), l.Total.Milliseconds())
}

// NewStopwatch starts a stopwatch.
func NewStopwatch() *Stopwatch {
	return newStopwatchWithClock(time.Now)
}

func newStopwatchWithClock(now func() time.Time) *Stopwatch {
	t := now()
	return &Stopwatch{now: now, start: t, last: t}
}

// Mark records a lap and resets the section timer.
func (s *Stopwatch) Mark() Lap {
	t := s.now()
	lap := Lap{Section: t.Sub(s.last), Total: t.Sub(s.start)}
	s.last = t
	return lap
}

// Elapsed returns the time since start without recording a lap.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}
