// Package config loads and validates the media bridge configuration.
//
// Configuration comes from three layers, later layers winning:
//   - hardcoded defaults
//   - a YAML file
//   - MEDIABRIDGE_* environment variables
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should be supplied via
// the environment rather than committed to the YAML file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Discovery.Prefix)
package config
