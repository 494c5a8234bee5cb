package control

import (
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
)

// Gate enforces the per-device minimum interval between command attempts.
// The window is a hard floor: it applies whether the previous attempt
// succeeded or failed, and whether the new desired state matches or
// reverses the last one.
type Gate struct {
	Window time.Duration

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewGate creates a Gate with the given window.
func NewGate(window time.Duration) *Gate {
	return &Gate{Window: window, now: time.Now}
}

// Allow reports whether a command attempt to the device is permitted now.
// A device that has never been commanded is always allowed.
func (g *Gate) Allow(state entity.ControlState) bool {
	if state.LastCommandAt.IsZero() {
		return true
	}
	nowFn := g.now
	if nowFn == nil {
		nowFn = time.Now
	}
	return nowFn().Sub(state.LastCommandAt) >= g.Window
}

// Remaining returns how long until the device may be commanded again.
// Zero means an attempt is permitted now.
func (g *Gate) Remaining(state entity.ControlState) time.Duration {
	if state.LastCommandAt.IsZero() {
		return 0
	}
	nowFn := g.now
	if nowFn == nil {
		nowFn = time.Now
	}
	left := g.Window - nowFn().Sub(state.LastCommandAt)
	if left < 0 {
		return 0
	}
	return left
}
