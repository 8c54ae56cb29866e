// Package fleet manages the configured radios of one sdrlink daemon.
//
// A Manager owns one radio.Handler per configured radio and serialises all
// access to it. It fans the handler's observer callbacks out to the command
// journal, InfluxDB, the MQTT broker and the WebSocket event hub, and applies
// configuration changes that arrive over MQTT.
//
// Every sink is optional:
//
//	m, err := fleet.New(cfg.Radios, cfg.Transport,
//	    fleet.WithLogger(logger),
//	    fleet.WithBroker(mqttClient),
//	    fleet.WithJournal(recorder),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Close()
package fleet
