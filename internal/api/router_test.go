package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spriggler/sprig-core/internal/daemon"
	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

type stubEvents struct {
	events []event.Event
}

func (s *stubEvents) Recent(_ context.Context, limit int) ([]event.Event, error) {
	if limit > len(s.events) {
		limit = len(s.events)
	}
	return s.events[:limit], nil
}

type nopRecorder struct{}

func (nopRecorder) Record(event.Event) {}

func testDeps() Deps {
	arena := &entity.Arena{
		Environments: []*entity.Environment{{ID: "tent-1", Name: "Tent"}},
		Sensors:      map[string]*entity.Sensor{},
		Devices:      map[string]*entity.Device{},
	}
	d := daemon.New(config.RuntimeConfig{
		LoopIntervalSeconds:      1,
		HeartbeatIntervalSeconds: 5,
		DriverTimeoutSeconds:     1,
	}, arena, nopRecorder{}, nil)

	return Deps{
		Daemon: d,
		Events: &stubEvents{events: []event.Event{
			event.New(event.ComponentSystem, "sprigd", event.LevelInfo, "started", nil),
		}},
		Version: "test",
	}
}

func TestHealthz(t *testing.T) {
	router := newRouter(testDeps())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router := newRouter(testDeps())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Stats daemon.Stats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Stats.Status != daemon.StatusIdle {
		t.Errorf("daemon status = %v, want idle", body.Stats.Status)
	}
}

func TestEnvironmentsEndpoint(t *testing.T) {
	router := newRouter(testDeps())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/environments", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap daemon.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(snap.Environments) != 1 || snap.Environments[0].ID != "tent-1" {
		t.Errorf("snapshot = %+v", snap.Environments)
	}
}

func TestEventsEndpoint(t *testing.T) {
	router := newRouter(testDeps())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Events []event.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].Message != "started" {
		t.Errorf("events = %+v", body.Events)
	}
}

func TestEventsEndpointBadLimit(t *testing.T) {
	router := newRouter(testDeps())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=banana", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
