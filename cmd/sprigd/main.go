// sprigd is the grow-environment control daemon: it polls sensors,
// resolves schedules, and converges device power states on a fixed tick,
// journaling everything locally and mirroring state upstream best-effort.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spriggler/sprig-core/internal/api"
	"github.com/spriggler/sprig-core/internal/daemon"
	"github.com/spriggler/sprig-core/internal/driver"
	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/event"
	"github.com/spriggler/sprig-core/internal/infrastructure/config"
	"github.com/spriggler/sprig-core/internal/infrastructure/database"
	"github.com/spriggler/sprig-core/internal/infrastructure/influxdb"
	"github.com/spriggler/sprig-core/internal/infrastructure/logging"
	"github.com/spriggler/sprig-core/internal/infrastructure/mqtt"
	"github.com/spriggler/sprig-core/internal/upstream"
)

const version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logging.Default().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	dryRun := flag.Bool("dry-run", false, "log decisions without commanding devices")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *dryRun {
		cfg.Runtime.DryRun = true
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("sprigd starting",
		"version", version,
		"site", cfg.Site.ID,
		"loop_interval", cfg.Runtime.LoopInterval().String(),
		"heartbeat_interval", cfg.Runtime.HeartbeatInterval().String(),
		"debounce", cfg.Runtime.Debounce().String(),
		"dry_run", cfg.Runtime.DryRun,
		"environments", len(cfg.Environments),
		"devices", len(cfg.Devices),
		"sensors", len(cfg.Sensors))

	recorder := event.NewRecorder(logger.With("component", "events"))

	// Local event journal. The daemon runs without it, but history then
	// lives only in the log stream.
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	journal, err := database.NewJournal(db)
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}
	recorder.AddSink(event.SinkFunc(func(e event.Event) {
		appendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := journal.Append(appendCtx, e); err != nil {
			logger.Warn("journal append failed", "error", err)
		}
	}))

	// Upstream side channel. Connection failures are logged and retried by
	// the client; control never waits on any of this.
	var mqttClient *mqtt.Client
	queue := upstream.NewQueue(cfg.Upstream.QueueCapacity)
	topics := mqtt.NewTopics("")
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.New(cfg.MQTT, topics, logger.With("component", "mqtt"))
		defer mqttClient.Disconnect()
		if err := mqttClient.Connect(10 * time.Second); err != nil {
			// The client keeps retrying in the background; events queue
			// locally until the broker appears.
			logger.Warn("mqtt connect failed, continuing without upstream", "error", err)
			recorder.Record(event.New(event.ComponentNetwork, "mqtt", event.LevelWarning,
				"upstream broker unreachable at startup", map[string]any{"error": err.Error()}))
		}
		recorder.AddSink(queue)
	}

	// Telemetry. Optional; a down InfluxDB only costs history.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, logger.With("component", "influxdb"))
		if err != nil {
			logger.Warn("influxdb connect failed, continuing without telemetry", "error", err)
		} else {
			defer influxClient.Close()
		}
	}

	registry := driver.NewRegistry()
	arena, err := entity.Build(cfg, registry, cfg.Runtime.DryRun)
	if err != nil {
		return fmt.Errorf("building entities: %w", err)
	}

	d := daemon.New(cfg.Runtime, arena, recorder, logger.With("component", "daemon"))

	if influxClient != nil {
		recorder.AddSink(commandTelemetry(influxClient))
	}
	d.OnHeartbeat = heartbeatFunc(d, mqttClient, topics, influxClient, logger)

	// Upstream syncer.
	if mqttClient != nil {
		syncer := upstream.NewSyncer(mqttClient, queue, func() any { return d.Snapshot() },
			upstream.Config{
				SnapshotTopic:    topics.Snapshot(),
				TrancheTopic:     topics.Tranche(),
				SnapshotInterval: cfg.Upstream.SnapshotInterval(),
				TrancheInterval:  cfg.Upstream.TrancheInterval(),
				TrancheMaxEvents: cfg.Upstream.TrancheMaxEvents,
			}, logger.With("component", "upstream"))
		go syncer.Run(ctx)
	}

	// Status API.
	if cfg.API.Enabled {
		server := api.New(cfg.API, api.Deps{
			Daemon:  d,
			Events:  journal,
			Logger:  logger.With("component", "api"),
			Version: version,
		})
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		defer func() {
			if err := server.Close(context.Background()); err != nil {
				logger.Warn("api shutdown", "error", err)
			}
		}()
	}

	err = d.Run(ctx)
	logger.Info("sprigd stopped")
	return err
}

// commandTelemetry mirrors command events into InfluxDB.
func commandTelemetry(client *influxdb.Client) event.SinkFunc {
	return func(e event.Event) {
		if e.Component != event.ComponentControl {
			return
		}
		envID, _ := e.Fields["environment"].(string)
		switch e.Message {
		case "device commanded on":
			client.WriteCommand(e.Entity, envID, true, true, e.Timestamp)
		case "device commanded off":
			client.WriteCommand(e.Entity, envID, false, true, e.Timestamp)
		case "power state convergence failed":
			desired := e.Fields["desired"] == "on"
			client.WriteCommand(e.Entity, envID, desired, false, e.Timestamp)
		}
	}
}

// heartbeatFunc publishes the liveness beacon upstream and flushes tick
// and sensor telemetry on the heartbeat cadence.
func heartbeatFunc(d *daemon.Daemon, mqttClient *mqtt.Client, topics mqtt.Topics, influxClient *influxdb.Client, logger *logging.Logger) func(daemon.Stats) {
	return func(stats daemon.Stats) {
		if mqttClient != nil && mqttClient.Connected() {
			payload := []byte(fmt.Sprintf(`{"status":%q,"ticks":%d,"dry_run":%t}`,
				stats.Status, stats.Ticks, stats.DryRun))
			if err := mqttClient.Publish(topics.Heartbeat(), payload); err != nil {
				logger.Debug("heartbeat publish failed", "error", err)
			}
		}
		if influxClient != nil {
			now := time.Now()
			influxClient.WriteTickStats(stats.LastTickDuration,
				int(stats.CommandsIssued), int(stats.CommandErrors), stats.StaleSensors, now)
			snap := d.Snapshot()
			for _, env := range snap.Environments {
				for _, prop := range env.Properties {
					for _, s := range prop.Sensors {
						if len(s.Values) == 0 {
							continue
						}
						influxClient.WriteSensorReading(s.ID, env.ID, s.Values, s.LastUpdate)
					}
				}
			}
		}
	}
}
