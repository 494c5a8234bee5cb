package sensor

import (
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
)

// Watchdog flags sensors whose last fresh reading is older than their
// timeout. Warnings are edge-triggered: one on the fresh-to-stale
// transition, one info on recovery (recovery is reported by the poller
// when a fresh reading lands). Last-known values stay in the cache and
// keep feeding decisions while stale.
type Watchdog struct {
	sensors  map[string]*entity.Sensor
	recorder Recorder
}

// NewWatchdog creates a Watchdog over the arena's sensor records.
func NewWatchdog(sensors map[string]*entity.Sensor, recorder Recorder) *Watchdog {
	return &Watchdog{sensors: sensors, recorder: recorder}
}

// Check scans every sensor against its timeout at the given instant and
// returns how many feeds are currently stale.
func (w *Watchdog) Check(now time.Time) int {
	stale := 0
	for _, s := range w.sensors {
		if !s.Available() {
			continue
		}
		st := s.State()
		if st.LastUpdate.IsZero() {
			// Never produced a reading; the poller's failure events cover
			// this until the first sample lands.
			continue
		}
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = 300 * time.Second
		}
		if now.Sub(st.LastUpdate) < timeout {
			continue
		}
		stale++
		if edge := s.MarkStale(); edge {
			w.recorder.Record(event.New(event.ComponentSensor, s.ID, event.LevelWarning,
				"sensor feed stale", map[string]any{
					"last_update": st.LastUpdate.UTC().Format(time.RFC3339),
					"last_values": st.LastValues,
					"timeout":     timeout.String(),
				}))
		}
	}
	return stale
}
