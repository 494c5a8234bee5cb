package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// WriteSensorReading queues one sensor sample. Non-blocking.
func (c *Client) WriteSensorReading(sensorID, environmentID string, values map[string]float64, at time.Time) {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}
	point := influxdb2.NewPoint("sensor_reading",
		map[string]string{
			"sensor":      sensorID,
			"environment": environmentID,
		},
		fields,
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteCommand queues one device command outcome. Non-blocking.
func (c *Client) WriteCommand(deviceID, environmentID string, desired, success bool, at time.Time) {
	point := influxdb2.NewPoint("device_command",
		map[string]string{
			"device":      deviceID,
			"environment": environmentID,
		},
		map[string]any{
			"desired_on": desired,
			"success":    success,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteTickStats queues per-tick loop statistics. Non-blocking.
func (c *Client) WriteTickStats(duration time.Duration, commands, errors, staleSensors int, at time.Time) {
	point := influxdb2.NewPoint("tick",
		map[string]string{},
		map[string]any{
			"duration_ms":   float64(duration.Microseconds()) / 1000.0,
			"commands":      commands,
			"errors":        errors,
			"stale_sensors": staleSensors,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}
