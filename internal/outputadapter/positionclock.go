package outputadapter

import (
	"sync"
	"time"
)

// PositionClock tracks elapsed playback position as wall-clock time since
// a baseline, with an accumulated-pause correction, and can be hard-
// corrected toward a receiver-reported position. Per spec.md's open
// question on position authority, this implementation treats the local
// clock as authoritative between corrections and snaps fully to the
// receiver's value whenever one arrives, rather than blending the two.
type PositionClock struct {
	mu          sync.Mutex
	base        time.Time
	baseSeconds float64
	paused      bool
	frozenAt    float64
}

// NewPositionClock returns a clock that has not yet been started.
func NewPositionClock() *PositionClock {
	return &PositionClock{}
}

// Start (re)bases the clock so Position() reports atSeconds now and
// advances from there.
func (c *PositionClock) Start(atSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = time.Now()
	c.baseSeconds = atSeconds
	c.paused = false
}

// Position returns the current estimated playback position, in seconds.
func (c *PositionClock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.frozenAt
	}
	return c.baseSeconds + time.Since(c.base).Seconds()
}

// Pause freezes the position at its current value.
func (c *PositionClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.frozenAt = c.baseSeconds + time.Since(c.base).Seconds()
	c.paused = true
}

// Resume unfreezes the clock, continuing from the frozen position.
func (c *PositionClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.base = time.Now()
	c.baseSeconds = c.frozenAt
	c.paused = false
}

// Rebase sets the current position to atSeconds, used after a local seek.
func (c *PositionClock) Rebase(atSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = time.Now()
	c.baseSeconds = atSeconds
	c.frozenAt = atSeconds
}

// CorrectToward hard-corrects the clock to the receiver's reported
// currentTime, without disturbing the paused/running state.
func (c *PositionClock) CorrectToward(receiverSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.frozenAt = receiverSeconds
		return
	}
	c.base = time.Now()
	c.baseSeconds = receiverSeconds
}
