// Package logging provides structured logging for the media bridge.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("player configured", "identity", id, "generation", seq)
//
// Never log MQTT passwords, JWT secrets or InfluxDB tokens.
package logging
