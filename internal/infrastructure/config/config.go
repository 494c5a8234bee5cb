package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for sprig-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`

	Environments []EnvironmentDef `yaml:"environments"`
	Schedules    []ScheduleDef    `yaml:"schedules"`
	Devices      []DeviceDef      `yaml:"devices"`
	Sensors      []SensorDef      `yaml:"sensors"`
	Alerts       []AlertDef       `yaml:"alerts"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// RuntimeConfig contains control loop timing settings.
type RuntimeConfig struct {
	// LoopIntervalSeconds is the cadence of the control tick.
	LoopIntervalSeconds float64 `yaml:"loop_interval_seconds"`

	// HeartbeatIntervalSeconds is the cadence of the liveness heartbeat,
	// independent of tick duration.
	HeartbeatIntervalSeconds float64 `yaml:"heartbeat_interval_seconds"`

	// DebounceSeconds is the minimum interval between command attempts
	// to the same device.
	DebounceSeconds float64 `yaml:"debounce_seconds"`

	// DriverTimeoutSeconds bounds each individual sensor read or device
	// command. A call exceeding it is treated as a failure, not a stall.
	DriverTimeoutSeconds float64 `yaml:"driver_timeout_seconds"`

	// TickDeadlineSeconds bounds one full evaluation across all environments.
	TickDeadlineSeconds float64 `yaml:"tick_deadline_seconds"`

	// DryRun replaces every device's command capability with a recording
	// no-op. Decisions and state reads still execute and are logged.
	DryRun bool `yaml:"dry_run"`
}

// LoopInterval returns the tick cadence as a Duration.
func (r RuntimeConfig) LoopInterval() time.Duration {
	return secondsToDuration(r.LoopIntervalSeconds)
}

// HeartbeatInterval returns the heartbeat cadence as a Duration.
func (r RuntimeConfig) HeartbeatInterval() time.Duration {
	return secondsToDuration(r.HeartbeatIntervalSeconds)
}

// Debounce returns the per-device command floor as a Duration.
func (r RuntimeConfig) Debounce() time.Duration {
	return secondsToDuration(r.DebounceSeconds)
}

// DriverTimeout returns the per-call driver timeout as a Duration.
func (r RuntimeConfig) DriverTimeout() time.Duration {
	return secondsToDuration(r.DriverTimeoutSeconds)
}

// TickDeadline returns the whole-tick deadline as a Duration.
func (r RuntimeConfig) TickDeadline() time.Duration {
	return secondsToDuration(r.TickDeadlineSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// DatabaseConfig contains SQLite event journal settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the upstream
// sync side channel. The control loop never depends on this connection.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains settings for the read-only status HTTP server.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// UpstreamConfig contains settings for the best-effort upstream sync channel.
type UpstreamConfig struct {
	// SnapshotIntervalSeconds is how often the state snapshot is published.
	SnapshotIntervalSeconds float64 `yaml:"snapshot_interval_seconds"`

	// TrancheIntervalSeconds is how often queued events are batched upstream.
	TrancheIntervalSeconds float64 `yaml:"tranche_interval_seconds"`

	// TrancheMaxEvents caps the number of events per tranche.
	TrancheMaxEvents int `yaml:"tranche_max_events"`

	// QueueCapacity bounds the local event queue. When full, the oldest
	// entry is dropped to admit the newest.
	QueueCapacity int `yaml:"queue_capacity"`
}

// SnapshotInterval returns the snapshot cadence as a Duration.
func (u UpstreamConfig) SnapshotInterval() time.Duration {
	return secondsToDuration(u.SnapshotIntervalSeconds)
}

// TrancheInterval returns the tranche cadence as a Duration.
func (u UpstreamConfig) TrancheInterval() time.Duration {
	return secondsToDuration(u.TrancheIntervalSeconds)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EnvironmentDef declares one grow environment and its controlled properties.
type EnvironmentDef struct {
	ID         string                 `yaml:"id"`
	Name       string                 `yaml:"name"`
	Air        AirRoutingDef          `yaml:"air"`
	Properties map[string]PropertyDef `yaml:"properties"`
}

// AirRoutingDef describes air source/exhaust routing. Informational only.
type AirRoutingDef struct {
	Source  string `yaml:"source"`
	Exhaust string `yaml:"exhaust"`
}

// PropertyDef maps a controlled property to its sensors, controller devices
// and candidate schedules. Schedule order is significant: the first active
// schedule declaring a target for the property wins.
type PropertyDef struct {
	Sensors     []string `yaml:"sensors"`
	Controllers []string `yaml:"controllers"`
	Schedules   []string `yaml:"schedules"`
}

// ScheduleDef declares a wall-clock window and the targets it carries.
type ScheduleDef struct {
	ID string `yaml:"id"`

	// TimeRange is "HH:MM-HH:MM". End before start spans midnight.
	TimeRange string `yaml:"time_range"`

	Targets map[string]TargetDef `yaml:"targets"`
}

// TargetDef is either a numeric band {min, max} (either bound optional)
// or the discrete state "on"/"off".
type TargetDef struct {
	Min   *float64
	Max   *float64
	State string
}

// UnmarshalYAML accepts either a scalar "on"/"off" or a {min, max} mapping.
func (t *TargetDef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		state := strings.ToLower(strings.TrimSpace(value.Value))
		if state != "on" && state != "off" {
			return fmt.Errorf("target state must be \"on\" or \"off\", got %q", value.Value)
		}
		t.State = state
		return nil
	}

	var band struct {
		Min *float64 `yaml:"min"`
		Max *float64 `yaml:"max"`
	}
	if err := value.Decode(&band); err != nil {
		return fmt.Errorf("decoding target band: %w", err)
	}
	if band.Min == nil && band.Max == nil {
		return fmt.Errorf("target band must declare min and/or max")
	}
	t.Min = band.Min
	t.Max = band.Max
	return nil
}

// IsState reports whether the target is a discrete on/off state.
func (t TargetDef) IsState() bool {
	return t.State != ""
}

// DeviceDef declares an actuator device.
type DeviceDef struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	What    string       `yaml:"what"`
	Effects []EffectDef  `yaml:"effects"`
	Driver  DriverConfig `yaml:"driver"`
}

// EffectDef declares how a device influences one property.
type EffectDef struct {
	Property string `yaml:"property"`
	Effect   string `yaml:"effect"`
}

// SensorDef declares a sensor feed.
type SensorDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	What string `yaml:"what"`

	// RefreshRateSeconds is the expected reading cadence.
	RefreshRateSeconds float64 `yaml:"refresh_rate_seconds"`

	// TimeoutSeconds is the staleness threshold: no fresh reading for this
	// long marks the feed stale.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`

	Driver DriverConfig `yaml:"driver"`
}

// RefreshRate returns the expected reading cadence as a Duration.
func (s SensorDef) RefreshRate() time.Duration {
	return secondsToDuration(s.RefreshRateSeconds)
}

// Timeout returns the staleness threshold as a Duration.
func (s SensorDef) Timeout() time.Duration {
	return secondsToDuration(s.TimeoutSeconds)
}

// DriverConfig selects and parameterises a concrete driver implementation.
type DriverConfig struct {
	Type    string         `yaml:"type"`
	Address string         `yaml:"address"`
	Options map[string]any `yaml:"options"`
}

// AlertDef declares an observational threshold alert. Alerts never actuate.
type AlertDef struct {
	ID        string  `yaml:"id"`
	Sensor    string  `yaml:"sensor"`
	Operator  string  `yaml:"operator"` // ">", "<" or "="
	Threshold float64 `yaml:"threshold"`
	Message   string  `yaml:"message"`
	Severity  string  `yaml:"severity"` // INFO, WARNING, ERROR, CRITICAL
}

// Runtime defaults. The heartbeat and debounce values match the documented
// daemon behaviour; the driver timeout is deliberately conservative.
const (
	defaultLoopInterval      = 1.0
	defaultHeartbeatInterval = 5.0
	defaultDebounce          = 5.0
	defaultDriverTimeout     = 10.0
	defaultTickDeadline      = 30.0
	defaultSensorRefresh     = 60.0
	defaultSensorTimeout     = 300.0
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SPRIG_SECTION_KEY
// For example: SPRIG_DATABASE_PATH, SPRIG_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applySensorDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Spriggler",
			Timezone: "UTC",
		},
		Runtime: RuntimeConfig{
			LoopIntervalSeconds:      defaultLoopInterval,
			HeartbeatIntervalSeconds: defaultHeartbeatInterval,
			DebounceSeconds:          defaultDebounce,
			DriverTimeoutSeconds:     defaultDriverTimeout,
			TickDeadlineSeconds:      defaultTickDeadline,
		},
		Database: DatabaseConfig{
			Path:        "./data/sprig.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sprig-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Upstream: UpstreamConfig{
			SnapshotIntervalSeconds: 60,
			TrancheIntervalSeconds:  30,
			TrancheMaxEvents:        200,
			QueueCapacity:           5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SPRIG_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("SPRIG_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SPRIG_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SPRIG_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SPRIG_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("SPRIG_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Runtime
	if v := os.Getenv("SPRIG_DRY_RUN"); v != "" {
		if dryRun, err := strconv.ParseBool(v); err == nil {
			cfg.Runtime.DryRun = dryRun
		}
	}
}

// applySensorDefaults fills zero refresh/timeout values on sensor definitions.
func applySensorDefaults(cfg *Config) {
	for i := range cfg.Sensors {
		if cfg.Sensors[i].RefreshRateSeconds <= 0 {
			cfg.Sensors[i].RefreshRateSeconds = defaultSensorRefresh
		}
		if cfg.Sensors[i].TimeoutSeconds <= 0 {
			cfg.Sensors[i].TimeoutSeconds = defaultSensorTimeout
		}
	}
}

// Validate checks the configuration for errors.
//
// Runtime bounds and cross-references between environments, schedules,
// devices, sensors and alerts are all checked here; a dangling reference is
// fatal at startup rather than a runtime surprise.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Runtime.LoopIntervalSeconds <= 0 {
		errs = append(errs, "runtime.loop_interval_seconds must be positive")
	}
	if c.Runtime.HeartbeatIntervalSeconds <= 0 {
		errs = append(errs, "runtime.heartbeat_interval_seconds must be positive")
	}
	if c.Runtime.DebounceSeconds < 0 {
		errs = append(errs, "runtime.debounce_seconds must not be negative")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Upstream.QueueCapacity < 1 {
		errs = append(errs, "upstream.queue_capacity must be at least 1")
	}

	errs = append(errs, c.validateEntities()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateEntities checks entity definitions and cross-references.
func (c *Config) validateEntities() []string {
	var errs []string

	scheduleIDs := make(map[string]ScheduleDef, len(c.Schedules))
	for _, s := range c.Schedules {
		if s.ID == "" {
			errs = append(errs, "schedule with empty id")
			continue
		}
		if _, dup := scheduleIDs[s.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate schedule id %q", s.ID))
		}
		scheduleIDs[s.ID] = s
	}

	deviceIDs := make(map[string]DeviceDef, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			errs = append(errs, "device with empty id")
			continue
		}
		if _, dup := deviceIDs[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate device id %q", d.ID))
		}
		deviceIDs[d.ID] = d
		for _, e := range d.Effects {
			switch e.Effect {
			case "increase", "decrease", "dynamic_effect", "state":
			default:
				errs = append(errs, fmt.Sprintf("device %q: unknown effect %q", d.ID, e.Effect))
			}
			if e.Property == "" {
				errs = append(errs, fmt.Sprintf("device %q: effect with empty property", d.ID))
			}
		}
	}

	sensorIDs := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.ID == "" {
			errs = append(errs, "sensor with empty id")
			continue
		}
		if sensorIDs[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate sensor id %q", s.ID))
		}
		sensorIDs[s.ID] = true
	}

	for _, env := range c.Environments {
		if env.ID == "" {
			errs = append(errs, "environment with empty id")
			continue
		}
		for property, spec := range env.Properties {
			for _, id := range spec.Sensors {
				if !sensorIDs[id] {
					errs = append(errs, fmt.Sprintf("environment %q property %q references unknown sensor %q", env.ID, property, id))
				}
			}
			for _, id := range spec.Controllers {
				if _, ok := deviceIDs[id]; !ok {
					errs = append(errs, fmt.Sprintf("environment %q property %q references unknown device %q", env.ID, property, id))
				}
			}
			for _, id := range spec.Schedules {
				if _, ok := scheduleIDs[id]; !ok {
					errs = append(errs, fmt.Sprintf("environment %q property %q references unknown schedule %q", env.ID, property, id))
				}
			}
			errs = append(errs, c.validateEffectTargets(env.ID, property, spec, scheduleIDs, deviceIDs)...)
		}
	}

	for _, a := range c.Alerts {
		if !sensorIDs[a.Sensor] {
			errs = append(errs, fmt.Sprintf("alert %q references unknown sensor %q", a.ID, a.Sensor))
		}
		switch a.Operator {
		case ">", "<", "=":
		default:
			errs = append(errs, fmt.Sprintf("alert %q: operator must be >, < or =, got %q", a.ID, a.Operator))
		}
	}

	return errs
}

// validateEffectTargets rejects effect/target combinations that can never
// produce a decision: a state effect against a numeric band, or a numeric
// effect against a discrete state target.
func (c *Config) validateEffectTargets(envID, property string, spec PropertyDef, schedules map[string]ScheduleDef, devices map[string]DeviceDef) []string {
	var errs []string

	for _, scheduleID := range spec.Schedules {
		sched, ok := schedules[scheduleID]
		if !ok {
			continue
		}
		target, ok := sched.Targets[property]
		if !ok {
			continue
		}
		for _, deviceID := range spec.Controllers {
			dev, ok := devices[deviceID]
			if !ok {
				continue
			}
			for _, e := range dev.Effects {
				if e.Property != property {
					continue
				}
				if target.IsState() && e.Effect != "state" {
					errs = append(errs, fmt.Sprintf(
						"environment %q property %q: device %q effect %q cannot serve state target in schedule %q",
						envID, property, deviceID, e.Effect, scheduleID))
				}
				if !target.IsState() && e.Effect == "state" {
					errs = append(errs, fmt.Sprintf(
						"environment %q property %q: device %q state effect cannot serve numeric target in schedule %q",
						envID, property, deviceID, scheduleID))
				}
			}
		}
	}

	return errs
}
