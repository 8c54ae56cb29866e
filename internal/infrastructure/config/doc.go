// Package config loads and validates sdrlink configuration.
//
// Loading runs in three steps: built-in defaults, then the YAML file, then
// SDRLINK_* environment variables. Secrets (MQTT password, InfluxDB token,
// JWT secret) should come from the environment and the file should be 0600.
//
// Usage:
//
//	cfg, err := config.Load("configs/sdrlink.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range cfg.Radios {
//	    fmt.Println(r.Name, r.Model, r.Host)
//	}
package config
