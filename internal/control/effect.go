// Package control turns schedule targets and sensor readings into device
// commands: a per-property decision, per-device desired states combined
// across properties, a debounce gate, and read-compare-command-verify
// convergence against the device's real power state.
package control

import (
	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/schedule"
)

// Decision is the per-property verdict against a numeric band.
type Decision string

const (
	// DecisionIncrease means the value is below the band's minimum.
	DecisionIncrease Decision = "increase"

	// DecisionDecrease means the value is above the band's maximum.
	DecisionDecrease Decision = "decrease"

	// DecisionStable means the value sits inside the band, or the only
	// declared bound is satisfied.
	DecisionStable Decision = "stable"
)

// Decide compares a current value to a numeric band target.
//
// A missing bound never produces a correction in its direction: a target
// with only a min treats any value at or above it as stable, and likewise
// for a max-only target below the max.
func Decide(value float64, target schedule.Target) Decision {
	if target.Min != nil && value < *target.Min {
		return DecisionIncrease
	}
	if target.Max != nil && value > *target.Max {
		return DecisionDecrease
	}
	return DecisionStable
}

// DesiredForEffect maps a property decision to the desired power state of
// a device with the given effect on that property.
//
// Devices that push the wrong way for the current decision are desired
// off; at stable every corrective device is desired off. Returns ok=false
// when the effect cannot serve numeric decisions (a state effect).
func DesiredForEffect(decision Decision, effect entity.EffectKind) (desired bool, ok bool) {
	switch effect {
	case entity.EffectIncrease:
		return decision == DecisionIncrease, true
	case entity.EffectDecrease:
		return decision == DecisionDecrease, true
	case entity.EffectDynamic:
		return decision != DecisionStable, true
	default:
		return false, false
	}
}

// CombineDesired merges per-property desired states for one device into a
// single command decision for the tick. Any property wanting the device on
// wins: running when one consumer needs it is the safe default for
// corrective hardware, while off requires unanimity.
func CombineDesired(contributions []bool) bool {
	for _, on := range contributions {
		if on {
			return true
		}
	}
	return false
}
