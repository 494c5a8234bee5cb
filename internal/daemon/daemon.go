// Package daemon runs the control loop: a fixed-cadence tick that
// evaluates every environment concurrently, a heartbeat independent of
// tick duration, driver initialization with retry, and a snapshot of
// current state for observers.
//
// The loop never blocks on anything outside driver calls, and those are
// individually bounded. Broker, telemetry and API reachability have no
// path into tick latency.
package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spriggler/sprig-core/internal/alert"
	"github.com/spriggler/sprig-core/internal/control"
	"github.com/spriggler/sprig-core/internal/driver"
	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
	"github.com/spriggler/sprig-core/internal/infrastructure/config"
	"github.com/spriggler/sprig-core/internal/sensor"
)

// Status is the daemon's lifecycle state.
type Status string

const (
	// StatusIdle means the loop is waiting for the next tick.
	StatusIdle Status = "idle"

	// StatusTicking means an evaluation pass is in flight.
	StatusTicking Status = "ticking"

	// StatusStopped means the loop has exited.
	StatusStopped Status = "stopped"
)

// Logger is the minimal logging interface the daemon depends on.
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

// Recorder receives structured events from the daemon.
type Recorder interface {
	Record(event.Event)
}

// Stats is a snapshot of loop health.
type Stats struct {
	Status           Status        `json:"status"`
	DryRun           bool          `json:"dry_run"`
	StartedAt        time.Time     `json:"started_at"`
	Ticks            uint64        `json:"ticks"`
	LastTickDuration time.Duration `json:"last_tick_duration"`
	CommandsIssued   uint64        `json:"commands_issued"`
	CommandErrors    uint64        `json:"command_errors"`
	StaleSensors     int           `json:"stale_sensors"`
	AlertsFiring     int           `json:"alerts_firing"`
}

// Daemon owns the control loop over one arena.
type Daemon struct {
	cfg      config.RuntimeConfig
	arena    *entity.Arena
	recorder Recorder
	logger   Logger

	controllers []*control.Controller
	poller      *sensor.Poller
	watchdog    *sensor.Watchdog
	alerts      *alert.Evaluator

	// OnHeartbeat, when set, is called with current stats on every
	// heartbeat. The upstream wiring uses it to publish a liveness beacon.
	OnHeartbeat func(Stats)

	mu        sync.Mutex
	status    Status
	startedAt time.Time
	stats     Stats
	beats     uint64
}

// New assembles a Daemon from the arena and runtime configuration.
func New(cfg config.RuntimeConfig, arena *entity.Arena, recorder Recorder, logger Logger) *Daemon {
	if logger == nil {
		logger = noopLogger{}
	}

	gate := control.NewGate(cfg.Debounce())
	d := &Daemon{
		cfg:      cfg,
		arena:    arena,
		recorder: recorder,
		logger:   logger,
		poller:   sensor.NewPoller(arena.Sensors, recorder, logger, cfg.DriverTimeout()),
		watchdog: sensor.NewWatchdog(arena.Sensors, recorder),
		alerts:   alert.NewEvaluator(arena.Alerts, arena.Sensors, recorder),
		status:   StatusIdle,
	}
	for _, env := range arena.Environments {
		d.controllers = append(d.controllers,
			control.NewController(env, arena, gate, recorder, logger, cfg.DriverTimeout()))
	}
	return d
}

// Run executes the control loop until ctx is cancelled. An in-flight tick
// always finishes before Run returns; no command sequence is abandoned
// halfway.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.startedAt = time.Now()
	d.stats.StartedAt = d.startedAt
	d.stats.DryRun = d.cfg.DryRun
	d.mu.Unlock()

	d.recorder.Record(event.New(event.ComponentSystem, "sprigd", event.LevelInfo,
		"control loop started", map[string]any{
			"loop_interval": d.cfg.LoopInterval().String(),
			"debounce":      d.cfg.Debounce().String(),
			"dry_run":       d.cfg.DryRun,
			"environments":  len(d.arena.Environments),
		}))

	d.initializeDrivers(ctx)
	d.poller.Start(ctx)

	// The heartbeat runs on its own goroutine with its own ticker: a slow
	// tick (drivers may legitimately take seconds) must never delay the
	// liveness beacon.
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		ticker := time.NewTicker(d.cfg.HeartbeatInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.heartbeat()
			}
		}
	}()

	loopTicker := time.NewTicker(d.cfg.LoopInterval())
	defer loopTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-heartbeatDone
			d.shutdown()
			return nil
		case <-loopTicker.C:
			d.tick(ctx)
		}
	}
}

// tick runs one evaluation pass over every environment.
func (d *Daemon) tick(ctx context.Context) {
	d.setStatus(StatusTicking)
	defer d.setStatus(StatusIdle)

	deadline := d.cfg.TickDeadline()
	if min := d.cfg.LoopInterval(); deadline < min {
		deadline = min
	}
	tickCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	now := start

	var wg sync.WaitGroup
	results := make([]control.Stats, len(d.controllers))
	for i, ctrl := range d.controllers {
		wg.Add(1)
		go func(i int, ctrl *control.Controller) {
			defer wg.Done()
			results[i] = ctrl.Evaluate(tickCtx, now)
		}(i, ctrl)
	}
	wg.Wait()

	stale := d.watchdog.Check(now)
	firing := d.alerts.Evaluate()

	elapsed := time.Since(start)

	d.mu.Lock()
	d.stats.Ticks++
	d.stats.LastTickDuration = elapsed
	d.stats.StaleSensors = stale
	d.stats.AlertsFiring = firing
	for _, r := range results {
		d.stats.CommandsIssued += uint64(r.CommandsIssued)
		d.stats.CommandErrors += uint64(r.CommandErrors)
	}
	d.mu.Unlock()

	if elapsed > d.cfg.LoopInterval() {
		d.logger.Warn("tick overran loop interval",
			"elapsed", elapsed.String(),
			"interval", d.cfg.LoopInterval().String())
	}
}

// heartbeatEventEvery is how many beats pass between journaled heartbeat
// events. Every beat is logged and published; journaling each one at a 5s
// cadence would be noise.
const heartbeatEventEvery = 12

// heartbeat emits the liveness beacon. It runs on its own cadence so a
// healthy-but-busy loop still proves it is alive.
func (d *Daemon) heartbeat() {
	stats := d.Stats()
	beat := atomic.AddUint64(&d.beats, 1)
	d.logger.Debug("heartbeat",
		"status", string(stats.Status),
		"ticks", stats.Ticks,
		"stale_sensors", stats.StaleSensors)
	if beat == 1 || beat%heartbeatEventEvery == 0 {
		d.recorder.Record(event.New(event.ComponentSystem, "sprigd", event.LevelInfo,
			"heartbeat", map[string]any{
				"status":        string(stats.Status),
				"ticks":         stats.Ticks,
				"stale_sensors": stats.StaleSensors,
				"alerts_firing": stats.AlertsFiring,
			}))
	}
	if d.OnHeartbeat != nil {
		d.OnHeartbeat(stats)
	}
}

func (d *Daemon) shutdown() {
	d.setStatus(StatusStopped)
	d.poller.Wait()
	d.stopSensors()
	d.recorder.Record(event.New(event.ComponentSystem, "sprigd", event.LevelInfo,
		"control loop stopped", map[string]any{
			"ticks": d.Stats().Ticks,
		}))
}

// stopSensors releases acquisition resources on every available sensor.
// The run context is already cancelled here, so each call gets its own
// bounded context.
func (d *Daemon) stopSensors() {
	for _, s := range d.arena.Sensors {
		if !s.Available() {
			continue
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), d.cfg.DriverTimeout())
		err := s.Driver.StopScanning(stopCtx)
		cancel()
		if err != nil {
			d.recorder.Record(event.New(event.ComponentSensor, s.ID, event.LevelWarning,
				"sensor stop failed", map[string]any{"error": err.Error()}))
		}
	}
}

func (d *Daemon) setStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == StatusStopped {
		return
	}
	d.status = s
	d.stats.Status = s
}

// Stats returns a copy of current loop statistics.
func (d *Daemon) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := d.stats
	stats.Status = d.status
	return stats
}

// initializeDrivers brings every sensor and device driver up. A failed
// initialization marks the entity unavailable and schedules background
// retries with capped exponential backoff; the loop starts regardless.
func (d *Daemon) initializeDrivers(ctx context.Context) {
	backoff := driver.Backoff{Initial: time.Second, Max: time.Minute}

	for _, s := range d.arena.Sensors {
		s := s
		if d.initSensor(ctx, s) {
			continue
		}
		go d.retryInit(ctx, backoff, s.ID, func(ctx context.Context) bool {
			return d.initSensor(ctx, s)
		})
	}
	for _, dev := range d.arena.Devices {
		dev := dev
		if d.initDevice(ctx, dev) {
			continue
		}
		go d.retryInit(ctx, backoff, dev.ID, func(ctx context.Context) bool {
			return d.initDevice(ctx, dev)
		})
	}
}

func (d *Daemon) initSensor(ctx context.Context, s *entity.Sensor) bool {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.DriverTimeout())
	defer cancel()
	if err := s.Driver.Initialize(callCtx); err != nil {
		s.SetAvailable(false)
		d.recorder.Record(event.New(event.ComponentSensor, s.ID, event.LevelError,
			"sensor initialization failed", map[string]any{"error": err.Error()}))
		return false
	}
	s.SetAvailable(true)
	if meta, err := s.Driver.Metadata(callCtx); err == nil {
		d.logger.Info("sensor initialized", "sensor", s.ID, "model", meta.Model, "firmware", meta.Firmware)
	} else {
		d.logger.Info("sensor initialized", "sensor", s.ID)
	}
	return true
}

func (d *Daemon) initDevice(ctx context.Context, dev *entity.Device) bool {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.DriverTimeout())
	defer cancel()
	if err := dev.Driver.Initialize(callCtx); err != nil {
		dev.SetAvailable(false)
		d.recorder.Record(event.New(event.ComponentControl, dev.ID, event.LevelError,
			"device initialization failed", map[string]any{"error": err.Error()}))
		return false
	}
	dev.SetAvailable(true)
	if meta, err := dev.Driver.Metadata(callCtx); err == nil {
		d.logger.Info("device initialized", "device", dev.ID, "model", meta.Model, "firmware", meta.Firmware)
	} else {
		d.logger.Info("device initialized", "device", dev.ID)
	}
	return true
}

func (d *Daemon) retryInit(ctx context.Context, backoff driver.Backoff, id string, attempt func(context.Context) bool) {
	for tries := 0; ; tries++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff.Delay(tries)):
		}
		if attempt(ctx) {
			d.recorder.Record(event.New(event.ComponentSystem, id, event.LevelInfo,
				"driver initialized after retry", map[string]any{"attempts": tries + 2}))
			return
		}
	}
}
