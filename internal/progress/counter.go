package progress

import (
	"errors"
	"fmt"
)

// ErrAlreadyResized is returned when the step total is recomputed a second time.
var ErrAlreadyResized = errors.New("step total already recomputed")

// StepCounter tracks (current, total) for one run. Current never decreases and never
// exceeds total. Total starts as a provisional estimate and is recomputed at most once,
// after the run's download or extraction targets have been discovered.
type StepCounter struct {
	current int
	total   int
	resized bool
}

// NewStepCounter creates a counter with a provisional total.
func NewStepCounter(provisionalTotal int) *StepCounter {
	if provisionalTotal < 1 {
		provisionalTotal = 1
	}
	return &StepCounter{total: provisionalTotal}
}

// Current returns the number of completed steps.
func (c *StepCounter) Current() int { return c.current }

// Total returns the latest step total.
func (c *StepCounter) Total() int { return c.total }

// Resized reports whether the total has been recomputed.
func (c *StepCounter) Resized() bool { return c.resized }

// Advance counts one completed step. If the provisional total is reached before the
// recomputation, the total grows with current so the invariant current <= total holds.
func (c *StepCounter) Advance() {
	c.current++
	if c.current > c.total {
		c.total = c.current
	}
}

// Resize sets total to current plus the number of steps still to run.
func (c *StepCounter) Resize(remaining int) error {
	if c.resized {
		return ErrAlreadyResized
	}
	if remaining < 0 {
		return fmt.Errorf("remaining steps must be non-negative, got %d", remaining)
	}
	c.resized = true
	c.total = c.current + remaining
	return nil
}

// Done reports whether every counted step has completed.
func (c *StepCounter) Done() bool { return c.current == c.total }
