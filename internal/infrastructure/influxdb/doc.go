// Package influxdb records media player telemetry in InfluxDB v2.
//
// Each state change of a player can be written as a point in the
// media_player_state measurement, tagged by device identity, so playback
// and availability history can be charted.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry switched off
//	}
//	defer client.Close()
//
//	client.WritePlayerState("kitchen", fields, time.Now())
//
// Writes are batched and non-blocking; register SetOnError to log failures.
package influxdb
