package alert

import (
	"sync"
	"testing"
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureRecorder) Record(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureRecorder) all() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func newEvaluator(rec Recorder) (*Evaluator, *entity.Sensor) {
	s := &entity.Sensor{ID: "temp-1", What: "temperature"}
	s.SetAvailable(true)
	alerts := []*entity.Alert{
		{ID: "overheat", SensorID: "temp-1", Operator: ">", Threshold: 35, Message: "canopy too hot", Severity: "CRITICAL"},
	}
	return NewEvaluator(alerts, map[string]*entity.Sensor{"temp-1": s}, rec), s
}

func TestEvaluatorFiresOnceAndClears(t *testing.T) {
	rec := &captureRecorder{}
	e, s := newEvaluator(rec)

	s.SetReading(map[string]float64{"temperature": 30}, time.Now())
	if firing := e.Evaluate(); firing != 0 {
		t.Errorf("firing = %d, want 0", firing)
	}

	s.SetReading(map[string]float64{"temperature": 40}, time.Now())
	if firing := e.Evaluate(); firing != 1 {
		t.Errorf("firing = %d, want 1", firing)
	}
	// Still hot: no repeated event.
	e.Evaluate()
	e.Evaluate()

	s.SetReading(map[string]float64{"temperature": 28}, time.Now())
	if firing := e.Evaluate(); firing != 0 {
		t.Errorf("firing = %d, want 0 after clearing", firing)
	}

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (fire + clear)", len(events))
	}
	if events[0].Level != event.LevelCritical {
		t.Errorf("fire level = %v, want CRITICAL", events[0].Level)
	}
	if events[0].Message != "canopy too hot" {
		t.Errorf("fire message = %q", events[0].Message)
	}
	if events[1].Message != "alert cleared" {
		t.Errorf("clear message = %q", events[1].Message)
	}
}

func TestEvaluatorSkipsSensorWithoutData(t *testing.T) {
	rec := &captureRecorder{}
	e, _ := newEvaluator(rec)

	if firing := e.Evaluate(); firing != 0 {
		t.Errorf("firing = %d, want 0 with no data", firing)
	}
	if len(rec.all()) != 0 {
		t.Error("no events expected without data")
	}
}
