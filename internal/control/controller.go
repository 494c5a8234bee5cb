package control

import (
	"context"
	"sync"
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
	"github.com/spriggler/sprig-core/internal/schedule"
)

// Logger is the minimal logging interface the controller depends on.
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

// Recorder receives structured events from the controller.
type Recorder interface {
	Record(event.Event)
}

// Stats summarises one evaluation pass over an environment.
type Stats struct {
	PropertiesEvaluated int
	CommandsIssued      int
	CommandErrors       int
	Debounced           int
}

// Controller evaluates one environment each tick.
//
// Evaluation runs in two phases. Phase one walks the environment's
// properties concurrently: each resolves its governing schedule,
// aggregates its sensor feeds and computes a desired power state per
// controller device. Phase two then acts once per device: contributions
// from every property are combined, the debounce gate is consulted, and
// convergence runs under the device's command lock. Splitting the phases
// guarantees one command decision per device per tick even when several
// properties share hardware.
type Controller struct {
	env       *entity.Environment
	schedules map[string]*schedule.Schedule
	sensors   map[string]*entity.Sensor
	devices   map[string]*entity.Device

	gate     *Gate
	recorder Recorder
	logger   Logger

	// driverTimeout bounds each convergence pass (up to three driver
	// calls) on one device.
	driverTimeout time.Duration
}

// NewController creates a Controller for one environment over the arena's
// shared records.
func NewController(env *entity.Environment, arena *entity.Arena, gate *Gate, recorder Recorder, logger Logger, driverTimeout time.Duration) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		env:           env,
		schedules:     arena.Schedules,
		sensors:       arena.Sensors,
		devices:       arena.Devices,
		gate:          gate,
		recorder:      recorder,
		logger:        logger,
		driverTimeout: driverTimeout,
	}
}

// contribution is one property's vote on one device's power state.
type contribution struct {
	property string
	desired  bool
}

// Evaluate runs one control pass over the environment at the given instant.
func (c *Controller) Evaluate(ctx context.Context, now time.Time) Stats {
	var stats Stats

	var mu sync.Mutex
	wanted := make(map[string][]contribution)

	var wg sync.WaitGroup
	for i := range c.env.Properties {
		spec := c.env.Properties[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			contribs := c.evaluateProperty(spec, now)
			if contribs == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for deviceID, contrib := range contribs {
				wanted[deviceID] = append(wanted[deviceID], contrib)
			}
		}()
	}
	wg.Wait()
	stats.PropertiesEvaluated = len(c.env.Properties)

	var devWG sync.WaitGroup
	var statsMu sync.Mutex
	for deviceID, contribs := range wanted {
		dev, ok := c.devices[deviceID]
		if !ok {
			continue
		}
		devWG.Add(1)
		go func(dev *entity.Device, contribs []contribution) {
			defer devWG.Done()
			outcome := c.converge(ctx, dev, contribs, now)
			statsMu.Lock()
			defer statsMu.Unlock()
			switch outcome {
			case outcomeCommanded:
				stats.CommandsIssued++
			case outcomeError:
				stats.CommandErrors++
			case outcomeDebounced:
				stats.Debounced++
			}
		}(dev, contribs)
	}
	devWG.Wait()

	return stats
}

// evaluateProperty computes per-device desired states for one property.
// A nil map means the property produced no decision this tick.
func (c *Controller) evaluateProperty(spec entity.PropertySpec, now time.Time) map[string]contribution {
	sched, target, ok := schedule.Resolve(spec.Property, spec.ScheduleIDs, c.schedules, now)
	if !ok {
		c.logger.Debug("no governing schedule",
			"environment", c.env.ID, "property", spec.Property)
		return nil
	}

	contribs := make(map[string]contribution)

	if target.IsState() {
		for _, deviceID := range spec.DeviceIDs {
			dev, ok := c.devices[deviceID]
			if !ok || !dev.Available() {
				continue
			}
			if dev.Effects[spec.Property] != entity.EffectState {
				continue
			}
			contribs[deviceID] = contribution{property: spec.Property, desired: *target.State}
		}
		return contribs
	}

	value, ok := c.aggregate(spec)
	if !ok {
		c.recorder.Record(event.New(event.ComponentControl, c.env.ID, event.LevelWarning,
			"no sensor data for property", map[string]any{
				"property": spec.Property,
				"schedule": sched.ID,
			}))
		return nil
	}

	decision := Decide(value, target)
	c.logger.Debug("property decision",
		"environment", c.env.ID,
		"property", spec.Property,
		"value", value,
		"schedule", sched.ID,
		"decision", string(decision))

	for _, deviceID := range spec.DeviceIDs {
		dev, ok := c.devices[deviceID]
		if !ok || !dev.Available() {
			continue
		}
		effect, declared := dev.Effects[spec.Property]
		if !declared {
			continue
		}
		desired, ok := DesiredForEffect(decision, effect)
		if !ok {
			continue
		}
		contribs[deviceID] = contribution{property: spec.Property, desired: desired}
	}
	return contribs
}

// aggregate returns the arithmetic mean of the property's last-known
// sensor values. Stale feeds still contribute their last-known value;
// staleness is surfaced by the watchdog, not silently dropped here.
func (c *Controller) aggregate(spec entity.PropertySpec) (float64, bool) {
	var sum float64
	var n int
	for _, sensorID := range spec.SensorIDs {
		s, ok := c.sensors[sensorID]
		if !ok || !s.Available() {
			continue
		}
		v, ok := s.Value(spec.Property)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

type convergeOutcome int

const (
	outcomeNoop convergeOutcome = iota
	outcomeCommanded
	outcomeDebounced
	outcomeError
)

// converge combines contributions and drives one device once.
func (c *Controller) converge(ctx context.Context, dev *entity.Device, contribs []contribution, now time.Time) convergeOutcome {
	desired := false
	properties := make([]string, 0, len(contribs))
	for _, contrib := range contribs {
		properties = append(properties, contrib.property)
		if contrib.desired {
			desired = true
		}
	}

	dev.LockCommands()
	defer dev.UnlockCommands()

	if !c.gate.Allow(dev.ControlState()) {
		c.logger.Debug("debounce active",
			"device", dev.ID,
			"remaining", c.gate.Remaining(dev.ControlState()).String())
		return outcomeDebounced
	}

	callCtx := ctx
	if c.driverTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.driverTimeout)
		defer cancel()
	}

	result := EnsurePowerState(callCtx, dev, desired, now)

	switch {
	case result.Err != nil:
		c.recorder.Record(event.New(event.ComponentControl, dev.ID, event.LevelError,
			"power state convergence failed", map[string]any{
				"environment": c.env.ID,
				"properties":  properties,
				"desired":     onOff(desired),
				"error":       result.Err.Error(),
			}))
		return outcomeError
	case result.Changed:
		c.recorder.Record(event.New(event.ComponentControl, dev.ID, event.LevelInfo,
			"device commanded "+onOff(desired), map[string]any{
				"environment": c.env.ID,
				"properties":  properties,
				"previous":    boolLabel(result.Previous),
				"new":         boolLabel(result.New),
			}))
		return outcomeCommanded
	default:
		return outcomeNoop
	}
}

func boolLabel(b *bool) string {
	if b == nil {
		return "unknown"
	}
	return onOff(*b)
}
