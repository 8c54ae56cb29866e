package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommand    = "radio_command"
	MeasurementComponent  = "radio_component"
	MeasurementConnection = "radio_connection"
)

// WriteCommandMetric records one command exchange.
//
// Tags are low-cardinality (radio, model, verb, success); the latency and
// response size are fields.
//
// Example:
//
//	client.WriteCommandMetric("rx1", "NDR308", "FRQ", true, 3*time.Millisecond, 1, time.Now())
func (c *Client) WriteCommandMetric(radio, model, verb string, success bool, d time.Duration, lines int, at time.Time) {
	if !c.IsConnected() {
		return
	}

	status := "true"
	if !success {
		status = "false"
	}
	c.writePoint(MeasurementCommand,
		map[string]string{
			"radio":   radio,
			"model":   model,
			"verb":    verb,
			"success": status,
		},
		map[string]any{
			"duration_ms": float64(d.Microseconds()) / 1000,
			"lines":       lines,
		},
		at,
	)
}

// WriteComponentState records the numeric and boolean settings of one
// component. Text values (addresses, MACs) are dropped.
func (c *Client) WriteComponentState(radio, category string, index int, values map[string]any) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		switch v.(type) {
		case bool, int, int64, float64:
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return
	}

	c.writePoint(MeasurementComponent,
		map[string]string{
			"radio":     radio,
			"component": category,
			"index":     strconv.Itoa(index),
		},
		fields,
		time.Now(),
	)
}

// WriteConnectionState records a radio connecting or dropping.
func (c *Client) WriteConnectionState(radio, state string) {
	if !c.IsConnected() {
		return
	}

	c.writePoint(MeasurementConnection,
		map[string]string{"radio": radio},
		map[string]any{"state": state, "connected": state == "connected"},
		time.Now(),
	)
}

// WritePoint writes a custom point timestamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writePoint(measurement, tags, fields, time.Now())
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
