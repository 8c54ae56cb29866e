// Package mqtt connects sdrlink to an MQTT broker.
//
// The fleet manager publishes each component's cached configuration as a
// retained JSON object on {prefix}/state/{radio}/{category}/{index} and
// applies JSON objects received on {prefix}/command/... through the radio
// handler. Connection status per radio is retained on {prefix}/status/{radio}.
//
// The client reconnects automatically and restores its subscriptions. Its
// Last Will marks {prefix}/system/status offline if the process dies.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.PublishJSON(topics.State("rx1", "tuner", 1), values, true)
package mqtt
