package daemon

import (
	"time"
)

// Snapshot is the externally visible state of the site at one instant:
// loop health plus per-environment sensor and device conditions. The
// upstream syncer publishes it retained; the status API serves it on
// request.
type Snapshot struct {
	TakenAt      time.Time             `json:"taken_at"`
	Stats        Stats                 `json:"stats"`
	Environments []EnvironmentSnapshot `json:"environments"`
}

// EnvironmentSnapshot is one environment's current conditions.
type EnvironmentSnapshot struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Properties []PropertySnapshot `json:"properties"`
}

// PropertySnapshot is one property's sensor feeds and controller states.
type PropertySnapshot struct {
	Property string           `json:"property"`
	Sensors  []SensorSnapshot `json:"sensors"`
	Devices  []DeviceSnapshot `json:"devices"`
}

// SensorSnapshot is one feed's last-known reading and freshness.
type SensorSnapshot struct {
	ID         string             `json:"id"`
	Values     map[string]float64 `json:"values"`
	LastUpdate time.Time          `json:"last_update"`
	Stale      bool               `json:"stale"`
	Available  bool               `json:"available"`
}

// DeviceSnapshot is one actuator's command bookkeeping.
type DeviceSnapshot struct {
	ID            string     `json:"id"`
	Available     bool       `json:"available"`
	LastCommanded *bool      `json:"last_commanded,omitempty"`
	LastCommandAt *time.Time `json:"last_command_at,omitempty"`
	LastVerified  *bool      `json:"last_verified,omitempty"`
}

// Snapshot captures the current state of every environment.
func (d *Daemon) Snapshot() Snapshot {
	snap := Snapshot{
		TakenAt: time.Now().UTC(),
		Stats:   d.Stats(),
	}

	for _, env := range d.arena.Environments {
		es := EnvironmentSnapshot{ID: env.ID, Name: env.Name}
		for _, spec := range env.Properties {
			ps := PropertySnapshot{Property: spec.Property}
			for _, id := range spec.SensorIDs {
				s, ok := d.arena.Sensors[id]
				if !ok {
					continue
				}
				st := s.State()
				ps.Sensors = append(ps.Sensors, SensorSnapshot{
					ID:         id,
					Values:     st.LastValues,
					LastUpdate: st.LastUpdate,
					Stale:      st.Stale,
					Available:  st.Available,
				})
			}
			for _, id := range spec.DeviceIDs {
				dev, ok := d.arena.Devices[id]
				if !ok {
					continue
				}
				st := dev.ControlState()
				ds := DeviceSnapshot{
					ID:            id,
					Available:     st.Available,
					LastCommanded: st.LastCommanded,
					LastVerified:  st.LastVerified,
				}
				if !st.LastCommandAt.IsZero() {
					at := st.LastCommandAt
					ds.LastCommandAt = &at
				}
				ps.Devices = append(ps.Devices, ds)
			}
			es.Properties = append(es.Properties, ps)
		}
		snap.Environments = append(snap.Environments, es)
	}

	return snap
}
