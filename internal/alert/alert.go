// Package alert evaluates observational threshold conditions against the
// sensor cache. Alerts only record events; actuation stays exclusively
// with the control path.
package alert

import (
	"strings"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
)

// Recorder receives structured events from the evaluator.
type Recorder interface {
	Record(event.Event)
}

// Evaluator checks every configured alert each tick.
type Evaluator struct {
	alerts   []*entity.Alert
	sensors  map[string]*entity.Sensor
	recorder Recorder
}

// NewEvaluator creates an Evaluator over the arena's alerts and sensors.
func NewEvaluator(alerts []*entity.Alert, sensors map[string]*entity.Sensor, recorder Recorder) *Evaluator {
	return &Evaluator{
		alerts:   alerts,
		sensors:  sensors,
		recorder: recorder,
	}
}

// Evaluate checks all alerts against last-known sensor values and returns
// how many are currently firing. Transitions are recorded as events; a
// condition that keeps holding stays silent after its first event.
func (e *Evaluator) Evaluate() int {
	firing := 0
	for _, a := range e.alerts {
		s, ok := e.sensors[a.SensorID]
		if !ok {
			continue
		}
		value, ok := s.Value(s.What)
		if !ok {
			// Fall back to the sensor id as value key for single-value
			// feeds configured without a measurement name.
			if value, ok = s.Value(a.SensorID); !ok {
				continue
			}
		}

		fired, cleared := a.Update(value)
		if fired {
			e.recorder.Record(event.New(event.ComponentSensor, a.SensorID, severityLevel(a.Severity),
				a.Message, map[string]any{
					"alert":     a.ID,
					"value":     value,
					"operator":  a.Operator,
					"threshold": a.Threshold,
				}))
		}
		if cleared {
			e.recorder.Record(event.New(event.ComponentSensor, a.SensorID, event.LevelInfo,
				"alert cleared", map[string]any{
					"alert": a.ID,
					"value": value,
				}))
		}
		if a.Firing() {
			firing++
		}
	}
	return firing
}

func severityLevel(severity string) event.Level {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return event.LevelCritical
	case "ERROR":
		return event.LevelError
	case "INFO":
		return event.LevelInfo
	default:
		return event.LevelWarning
	}
}
