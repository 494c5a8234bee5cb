package schedule

import (
	"fmt"
	"time"
)

// TimeRange is a daily wall-clock window expressed in seconds since
// midnight. When End is earlier than Start the window spans midnight:
// 18:00-06:00 is active from evening through the following morning.
type TimeRange struct {
	Start int // seconds since midnight, inclusive
	End   int // seconds since midnight
}

const secondsPerDay = 24 * 60 * 60

// ParseTimeRange parses "HH:MM-HH:MM" into a TimeRange.
func ParseTimeRange(s string) (TimeRange, error) {
	var sh, sm, eh, em int
	if _, err := fmt.Sscanf(s, "%d:%d-%d:%d", &sh, &sm, &eh, &em); err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	if sh < 0 || sh > 23 || eh < 0 || eh > 23 || sm < 0 || sm > 59 || em < 0 || em > 59 {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	return TimeRange{
		Start: sh*3600 + sm*60,
		End:   eh*3600 + em*60,
	}, nil
}

// Contains reports whether the instant falls inside the window, using the
// local wall clock of t.
//
// A non-wrapping window is inclusive at both ends. A wrapping window
// (End < Start) is active from Start through midnight and from midnight
// up to but excluding End, so back-to-back wrapping windows never overlap
// at the boundary.
func (r TimeRange) Contains(t time.Time) bool {
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	if r.Start <= r.End {
		return sec >= r.Start && sec <= r.End
	}
	return sec >= r.Start || sec < r.End
}

// Wraps reports whether the window spans midnight.
func (r TimeRange) Wraps() bool {
	return r.End < r.Start
}

// String formats the range as "HH:MM-HH:MM".
func (r TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		r.Start/3600, (r.Start%3600)/60,
		r.End/3600, (r.End%3600)/60)
}
