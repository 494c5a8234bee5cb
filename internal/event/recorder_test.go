package event

import (
	"sync"
	"testing"
)

type captureLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
	infos []string
}

func (c *captureLogger) Debug(msg string, _ ...any) {}
func (c *captureLogger) Info(msg string, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = append(c.infos, msg)
}
func (c *captureLogger) Warn(msg string, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warns = append(c.warns, msg)
}
func (c *captureLogger) Error(msg string, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, msg)
}

func TestRecorderFansOut(t *testing.T) {
	logger := &captureLogger{}
	r := NewRecorder(logger)

	var captured []Event
	r.AddSink(SinkFunc(func(e Event) {
		captured = append(captured, e)
	}))

	r.Record(New(ComponentSensor, "temp-1", LevelWarning, "sensor stale", map[string]any{"last_value": 23.5}))
	r.Record(New(ComponentControl, "heater-1", LevelInfo, "commanded on", nil))
	r.Record(New(ComponentSystem, "sprigd", LevelCritical, "shutdown", nil))

	if len(captured) != 3 {
		t.Fatalf("sink captured %d events, want 3", len(captured))
	}
	if captured[0].ID == "" || captured[0].ID == captured[1].ID {
		t.Error("events should carry unique ids")
	}
	if len(logger.warns) != 1 || len(logger.infos) != 1 || len(logger.errs) != 1 {
		t.Errorf("log routing wrong: warns=%d infos=%d errs=%d", len(logger.warns), len(logger.infos), len(logger.errs))
	}
}

func TestRecorderNilLogger(t *testing.T) {
	r := NewRecorder(nil)
	// Must not panic.
	r.Record(New(ComponentSystem, "sprigd", LevelInfo, "started", nil))
}
