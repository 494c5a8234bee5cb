// Package influxdb ships sensor readings and command telemetry to
// InfluxDB through the non-blocking write API. Points are buffered and
// flushed in the background; a down InfluxDB costs dropped telemetry,
// never a delayed tick.
package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

// Logger is the minimal logging interface the client depends on.
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

// Client wraps the InfluxDB client with sprig conventions.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig
	logger   Logger
	done     chan struct{}
}

// Connect creates the client, verifies connectivity with a ping, and
// starts draining async write errors into the log.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	options := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval * 1000))

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := client.Ping(pingCtx)
	if err != nil || !ok {
		client.Close()
		return nil, fmt.Errorf("pinging influxdb at %s: %w", cfg.URL, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go c.drainWriteErrors()

	logger.Info("influxdb connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return c, nil
}

// drainWriteErrors logs async write failures. Telemetry is best-effort;
// failures are visibility, not flow control.
func (c *Client) drainWriteErrors() {
	errCh := c.writeAPI.Errors()
	for {
		select {
		case <-c.done:
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			c.logger.Warn("influxdb write failed", "error", err)
		}
	}
}

// Close flushes buffered points and shuts the client down.
func (c *Client) Close() {
	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
	c.logger.Info("influxdb disconnected")
}
