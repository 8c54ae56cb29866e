// Package influxdb exports sdrlink telemetry to InfluxDB v2.
//
// Three measurements are written:
//   - radio_command: latency and response size of every command exchange
//   - radio_component: numeric settings of a component after each change
//   - radio_connection: connect and disconnect transitions
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandMetric("rx1", "NDR308", "FRQ", true, 2*time.Millisecond, 1, time.Now())
//
// Writes are batched per batch_size and flush_interval. Write failures
// arrive asynchronously through SetOnError.
package influxdb
