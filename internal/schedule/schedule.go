// Package schedule resolves wall-clock windows to control targets.
//
// A Schedule pairs a daily TimeRange with the targets it carries per
// property. Resolution walks a property's candidate schedules in declared
// order and returns the first one that is both active at the given instant
// and declares a target for that property.
package schedule

import "time"

// Target is what a schedule asks of a property: either a numeric band
// (Min and/or Max set) or a discrete on/off state.
type Target struct {
	Min   *float64
	Max   *float64
	State *bool
}

// IsState reports whether the target is a discrete on/off state.
func (t Target) IsState() bool {
	return t.State != nil
}

// Schedule is a named daily window carrying per-property targets.
type Schedule struct {
	ID      string
	Range   TimeRange
	Targets map[string]Target
}

// Active reports whether the schedule's window contains the instant.
func (s *Schedule) Active(now time.Time) bool {
	return s.Range.Contains(now)
}

// Resolve returns the governing schedule and target for a property at the
// given instant.
//
// Candidates are consulted in the order given; the first schedule that is
// active and declares a target for the property wins. Later active
// schedules are ignored, which makes declaration order the override
// mechanism. If no candidate qualifies the property is uncontrolled for
// this instant and ok is false.
func Resolve(property string, candidates []string, byID map[string]*Schedule, now time.Time) (*Schedule, Target, bool) {
	for _, id := range candidates {
		s, exists := byID[id]
		if !exists {
			continue
		}
		if !s.Active(now) {
			continue
		}
		target, declared := s.Targets[property]
		if !declared {
			continue
		}
		return s, target, true
	}
	return nil, Target{}, false
}
