package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementPlayerState is the measurement media player snapshots are
// recorded under.
const MeasurementPlayerState = "media_player_state"

// WritePlayerState records one media player snapshot, tagged by identity.
//
//	client.WritePlayerState("kitchen", map[string]any{"state": "playing", "volume": 0.4}, time.Now())
func (c *Client) WritePlayerState(identity string, fields map[string]any, at time.Time) {
	c.WritePointWithTime(MeasurementPlayerState, map[string]string{"identity": identity}, fields, at)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp. Points with
// no fields are dropped since line protocol cannot express them.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
