package tasks

import (
	"sync"
	"time"
)

// Event bits the publisher waits on.
const (
	BitStateReady uint32 = 1 << 0
	BitLogReady   uint32 = 1 << 1
)

// EventGroup is a small set of independent wake flags. Setters never
// block; a waiter blocks until any requested bit is set or the timeout
// elapses, and consumes the bits it observed.
type EventGroup struct {
	mu     sync.Mutex
	bits   uint32
	signal chan struct{}
}

// NewEventGroup creates an empty group.
func NewEventGroup() *EventGroup {
	return &EventGroup{signal: make(chan struct{}, 1)}
}

// Set raises the given bits and wakes at most one waiter.
func (g *EventGroup) Set(bits uint32) {
	g.mu.Lock()
	g.bits |= bits
	g.mu.Unlock()

	select {
	case g.signal <- struct{}{}:
	default:
	}
}

// WaitAny blocks until any bit in mask is set or timeout elapses. The
// returned bits are cleared from the group; zero means timeout.
func (g *EventGroup) WaitAny(mask uint32, timeout time.Duration) uint32 {
	deadline := time.Now().Add(timeout)
	for {
		g.mu.Lock()
		if got := g.bits & mask; got != 0 {
			g.bits &^= got
			g.mu.Unlock()
			return got
		}
		g.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0
		}
		timer := time.NewTimer(remaining)
		select {
		case <-g.signal:
			timer.Stop()
		case <-timer.C:
			return 0
		}
	}
}
