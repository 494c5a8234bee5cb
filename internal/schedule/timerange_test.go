package schedule

import (
	"testing"
	"time"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 14, hour, min, sec, 0, time.UTC)
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{
			name:      "daytime window",
			input:     "06:00-18:00",
			wantStart: 6 * 3600,
			wantEnd:   18 * 3600,
		},
		{
			name:      "overnight window",
			input:     "18:00-06:00",
			wantStart: 18 * 3600,
			wantEnd:   6 * 3600,
		},
		{
			name:      "minutes preserved",
			input:     "08:30-17:45",
			wantStart: 8*3600 + 30*60,
			wantEnd:   17*3600 + 45*60,
		},
		{
			name:    "missing separator",
			input:   "06:00",
			wantErr: true,
		},
		{
			name:    "hour out of range",
			input:   "25:00-06:00",
			wantErr: true,
		},
		{
			name:    "minute out of range",
			input:   "06:61-18:00",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseTimeRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Start != tt.wantStart || r.End != tt.wantEnd {
				t.Errorf("got %d-%d, want %d-%d", r.Start, r.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestTimeRangeContains(t *testing.T) {
	day := TimeRange{Start: 6 * 3600, End: 18 * 3600}
	night := TimeRange{Start: 18 * 3600, End: 6 * 3600}

	tests := []struct {
		name  string
		r     TimeRange
		t     time.Time
		wantd bool
	}{
		{"day: inside", day, at(12, 0, 0), true},
		{"day: at start", day, at(6, 0, 0), true},
		{"day: at end inclusive", day, at(18, 0, 0), true},
		{"day: before start", day, at(5, 59, 59), false},
		{"day: after end", day, at(18, 0, 1), false},

		{"night: at start", night, at(18, 0, 0), true},
		{"night: before midnight", night, at(23, 59, 59), true},
		{"night: at midnight", night, at(0, 0, 0), true},
		{"night: one second before end", night, at(5, 59, 59), true},
		{"night: at end exclusive", night, at(6, 0, 0), false},
		{"night: midday", night, at(12, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.t); got != tt.wantd {
				t.Errorf("Contains(%s) = %v, want %v", tt.t.Format("15:04:05"), got, tt.wantd)
			}
		})
	}
}

func TestWrappingWindowsDoNotOverlap(t *testing.T) {
	// An overnight window handing off to a daytime window at 06:00 must
	// give exactly one of them the 06:00:00 instant.
	night := TimeRange{Start: 18 * 3600, End: 6 * 3600}
	day := TimeRange{Start: 6 * 3600, End: 18 * 3600}

	boundary := at(6, 0, 0)
	if night.Contains(boundary) {
		t.Error("overnight window should exclude its end instant")
	}
	if !day.Contains(boundary) {
		t.Error("daytime window should include its start instant")
	}
}

func TestTimeRangeString(t *testing.T) {
	r := TimeRange{Start: 18 * 3600, End: 6*3600 + 30*60}
	if got := r.String(); got != "18:00-06:30" {
		t.Errorf("String() = %q, want %q", got, "18:00-06:30")
	}
}
