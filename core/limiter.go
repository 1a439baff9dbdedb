package core

import (
	"fmt"
	"sync"
)

// TurnLimitError is returned by TurnLimiter.Increment once the configured
// maximum number of agent turns has been used up.
type TurnLimitError struct {
	Max int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("exceeded max turns: %d", e.Max)
}

// TurnLimiter enforces a maximum number of model turns per run. One limiter is
// shared by every agent participating in a run, so handoffs do not reset it.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a new limiter with a max number of turns.
// If max == 0, unlimited turns are allowed.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Increment increases the turn counter and returns a *TurnLimitError if the limit is exceeded.
func (tl *TurnLimiter) Increment() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.count++
	if tl.max > 0 && tl.count > tl.max {
		return &TurnLimitError{Max: tl.max}
	}

	return nil
}

// Count returns the number of turns taken so far.
func (tl *TurnLimiter) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.count
}

// Remaining returns how many turns are left before hitting the limit.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.max == 0 {
		return -1 // unlimited
	}

	if tl.count >= tl.max {
		return 0
	}
	return tl.max - tl.count
}
