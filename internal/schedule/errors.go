package schedule

import "errors"

// ErrInvalidTimeRange indicates a time range string that does not parse
// as "HH:MM-HH:MM" with valid hour/minute values.
var ErrInvalidTimeRange = errors.New("schedule: invalid time range")
