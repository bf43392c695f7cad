package core

import (
	"fmt"
	"sync"
)

// StepLimiter enforces a maximum number of executed steps per turn, so a
// misconfigured cycle (a repeat-dialog without an end-turn, rules emitting
// each other) faults deterministically instead of spinning forever.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter allowing up to max steps.
// A max of 0 means unlimited.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment counts one executed step.
// Returns an error once the budget is exceeded.
func (sl *StepLimiter) Increment() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count++
	if sl.max > 0 && sl.count > sl.max {
		return fmt.Errorf("exceeded maximum steps per turn: %d", sl.max)
	}

	return nil
}

// Count returns the number of steps executed so far.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Remaining returns how many steps are left in the budget.
// Returns -1 when the limiter is unlimited.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max <= 0 {
		return -1
	}

	remaining := sl.max - sl.count
	if remaining < 0 {
		return 0
	}

	return remaining
}
