// Package sensor keeps the reading cache warm and watches feed freshness.
//
// A Poller runs one goroutine per sensor at the sensor's own refresh rate,
// reading through the driver into the entity record's cache. The Watchdog
// scans the cache each tick and raises edge-triggered staleness warnings
// when a feed has not produced a fresh reading within its timeout. The
// control loop itself never performs sensor I/O; it only consumes the
// cache, so a stuck driver can delay freshness but never a tick.
package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
)

// Logger is the minimal logging interface the poller depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives structured events from the poller and watchdog.
type Recorder interface {
	Record(event.Event)
}

// Poller reads every available sensor on its own cadence.
type Poller struct {
	sensors  map[string]*entity.Sensor
	recorder Recorder
	logger   Logger

	// readTimeout bounds each driver read.
	readTimeout time.Duration

	wg sync.WaitGroup
}

// NewPoller creates a Poller over the arena's sensor records.
func NewPoller(sensors map[string]*entity.Sensor, recorder Recorder, logger Logger, readTimeout time.Duration) *Poller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		sensors:     sensors,
		recorder:    recorder,
		logger:      logger,
		readTimeout: readTimeout,
	}
}

// Start launches one polling goroutine per sensor. They stop when ctx is
// cancelled; Wait blocks until all have stopped.
func (p *Poller) Start(ctx context.Context) {
	for _, s := range p.sensors {
		p.wg.Add(1)
		go func(s *entity.Sensor) {
			defer p.wg.Done()
			p.poll(ctx, s)
		}(s)
	}
}

// Wait blocks until every polling goroutine has stopped.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) poll(ctx context.Context, s *entity.Sensor) {
	interval := s.RefreshRate
	if interval <= 0 {
		interval = time.Minute
	}

	// Prime the cache immediately rather than waiting a full interval.
	p.readOnce(ctx, s)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.readOnce(ctx, s)
		}
	}
}

func (p *Poller) readOnce(ctx context.Context, s *entity.Sensor) {
	if !s.Available() {
		return
	}

	readCtx := ctx
	if p.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, p.readTimeout)
		defer cancel()
	}

	reading, err := s.Driver.Read(readCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.recorder.Record(event.New(event.ComponentSensor, s.ID, event.LevelError,
			"sensor read failed", map[string]any{"error": err.Error()}))
		return
	}

	at := reading.At
	if at.IsZero() {
		at = time.Now()
	}
	if recovered := s.SetReading(reading.Values, at); recovered {
		p.recorder.Record(event.New(event.ComponentSensor, s.ID, event.LevelInfo,
			"sensor feed recovered", map[string]any{"values": reading.Values}))
	}
	p.logger.Debug("sensor reading", "sensor", s.ID, "values", reading.Values)
}
