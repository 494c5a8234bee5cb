package entity

import (
	"fmt"
	"sort"

	"github.com/spriggler/sprig-core/internal/driver"
	"github.com/spriggler/sprig-core/internal/infrastructure/config"
	"github.com/spriggler/sprig-core/internal/schedule"
)

// Build constructs the Arena from validated configuration.
//
// Driver instances are created here but not initialized; the daemon
// initializes them (with retry) at startup. In dry-run mode every device
// driver is wrapped so commands become recording no-ops.
//
// Config validation has already checked cross-references; failures here
// (unparseable time ranges, factory errors) are still fatal because a
// half-built arena cannot run safely.
func Build(cfg *config.Config, registry *driver.Registry, dryRun bool) (*Arena, error) {
	arena := &Arena{
		Schedules: make(map[string]*schedule.Schedule, len(cfg.Schedules)),
		Devices:   make(map[string]*Device, len(cfg.Devices)),
		Sensors:   make(map[string]*Sensor, len(cfg.Sensors)),
	}

	for _, def := range cfg.Schedules {
		r, err := schedule.ParseTimeRange(def.TimeRange)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", def.ID, err)
		}
		targets := make(map[string]schedule.Target, len(def.Targets))
		for property, t := range def.Targets {
			targets[property] = toTarget(t)
		}
		arena.Schedules[def.ID] = &schedule.Schedule{
			ID:      def.ID,
			Range:   r,
			Targets: targets,
		}
	}

	for _, def := range cfg.Devices {
		drv, err := registry.NewDevice(def.Driver)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", def.ID, err)
		}
		if dryRun {
			drv = driver.NewDryRunDevice(drv)
		}
		effects := make(map[string]EffectKind, len(def.Effects))
		for _, e := range def.Effects {
			effects[e.Property] = EffectKind(e.Effect)
		}
		arena.Devices[def.ID] = &Device{
			ID:      def.ID,
			Name:    def.Name,
			What:    def.What,
			Effects: effects,
			Driver:  drv,
		}
	}

	for _, def := range cfg.Sensors {
		drv, err := registry.NewSensor(def.Driver)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", def.ID, err)
		}
		arena.Sensors[def.ID] = &Sensor{
			ID:          def.ID,
			Name:        def.Name,
			What:        def.What,
			RefreshRate: def.RefreshRate(),
			Timeout:     def.Timeout(),
			Driver:      drv,
		}
	}

	for _, def := range cfg.Environments {
		env := &Environment{
			ID:   def.ID,
			Name: def.Name,
		}
		for property, spec := range def.Properties {
			env.Properties = append(env.Properties, PropertySpec{
				Property:    property,
				SensorIDs:   append([]string(nil), spec.Sensors...),
				DeviceIDs:   append([]string(nil), spec.Controllers...),
				ScheduleIDs: append([]string(nil), spec.Schedules...),
			})
		}
		sortProperties(env.Properties)
		arena.Environments = append(arena.Environments, env)
	}
	sort.Slice(arena.Environments, func(i, j int) bool {
		return arena.Environments[i].ID < arena.Environments[j].ID
	})

	for _, def := range cfg.Alerts {
		arena.Alerts = append(arena.Alerts, &Alert{
			ID:        def.ID,
			SensorID:  def.Sensor,
			Operator:  def.Operator,
			Threshold: def.Threshold,
			Message:   def.Message,
			Severity:  def.Severity,
		})
	}

	return arena, nil
}

func toTarget(t config.TargetDef) schedule.Target {
	if t.IsState() {
		on := t.State == "on"
		return schedule.Target{State: &on}
	}
	return schedule.Target{Min: t.Min, Max: t.Max}
}
