package project

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/marmos91/refperm/internal/logger"
)

// Clock hands out cache generations. A state checked at the current
// generation is served without asking the store for its revision.
type Clock interface {
	Generation() int64
}

// TickingClock advances its generation every interval.
//
// An interval of zero yields a constant generation of 0, so every lookup
// re-checks the revision. A negative interval yields a constant generation
// of 1, so a loaded state is never re-checked and only explicit eviction
// refreshes it.
type TickingClock struct {
	interval   time.Duration
	generation atomic.Int64
	started    atomic.Bool

	stopCh  chan struct{}
	stopped chan struct{}
}

// NewTickingClock creates a clock. Call Start to begin ticking.
func NewTickingClock(interval time.Duration) *TickingClock {
	c := &TickingClock{
		interval: interval,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if interval != 0 {
		c.generation.Store(1)
	}
	return c
}

// Generation implements Clock.
func (c *TickingClock) Generation() int64 {
	return c.generation.Load()
}

// Interval returns the configured tick interval.
func (c *TickingClock) Interval() time.Duration { return c.interval }

// Start launches the ticking goroutine. It is a no-op for clocks with a
// non-positive interval. The goroutine runs until Stop is called or ctx is
// cancelled.
func (c *TickingClock) Start(ctx context.Context) {
	if c.interval <= 0 || !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.stopped)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		logger.Debug("Generation clock started", "interval", c.interval)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.generation.Add(1)
			}
		}
	}()
}

// Stop halts the goroutine and waits for it to exit.
func (c *TickingClock) Stop() {
	select {
	case <-c.stopCh:
		return
	default:
		close(c.stopCh)
	}
	if c.started.Load() {
		<-c.stopped
	}
	logger.Debug("Generation clock stopped")
}

// ManualClock is a Clock advanced explicitly, for tests and tools.
type ManualClock struct {
	generation atomic.Int64
}

// NewManualClock returns a clock at generation.
func NewManualClock(generation int64) *ManualClock {
	c := &ManualClock{}
	c.generation.Store(generation)
	return c
}

// Generation implements Clock.
func (c *ManualClock) Generation() int64 { return c.generation.Load() }

// Advance moves to the next generation and returns it.
func (c *ManualClock) Advance() int64 { return c.generation.Add(1) }

// Set jumps to generation.
func (c *ManualClock) Set(generation int64) { c.generation.Store(generation) }
