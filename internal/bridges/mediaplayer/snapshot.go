package mediaplayer

import (
	"bytes"
	"crypto/md5" //nolint:gosec // cache-busting hash, not a security boundary
	"encoding/hex"
	"time"
)

// Availability is the tri-state reachability of a device.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityOnline
	AvailabilityOffline
)

// String returns "unknown", "online" or "offline".
func (a Availability) String() string {
	switch a {
	case AvailabilityOnline:
		return "online"
	case AvailabilityOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// MarshalText encodes the availability as its string form.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Player states reported by PlayerState beyond the device's own status text.
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// DefaultMediaType is reported until the device publishes its own.
const DefaultMediaType = "music"

// Snapshot is a device's best-known state. Fields are updated one at a time
// as telemetry arrives and are kept across reconfiguration.
type Snapshot struct {
	Name              string       `json:"name"`
	Availability      Availability `json:"availability"`
	Status            string       `json:"status"`
	Volume            float64      `json:"volume"`
	Title             string       `json:"title,omitempty"`
	Artist            string       `json:"artist,omitempty"`
	Album             string       `json:"album,omitempty"`
	Duration          *float64     `json:"duration,omitempty"`
	Position          *float64     `json:"position,omitempty"`
	PositionUpdatedAt time.Time    `json:"position_updated_at,omitzero"`
	MediaType         string       `json:"media_type"`
	AlbumArt          []byte       `json:"-"`

	// Configured is set once a config has been applied.
	Configured bool `json:"configured"`
	// Retracted is set by an empty config and cleared by the next valid one.
	Retracted bool `json:"retracted"`
}

func newSnapshot(name string) Snapshot {
	return Snapshot{Name: name, MediaType: DefaultMediaType}
}

// PlayerState is the state a display layer should show.
func (s Snapshot) PlayerState() string {
	switch {
	case !s.Configured, s.Retracted, s.Availability == AvailabilityOffline:
		return StateUnavailable
	case s.Status == "":
		return StateUnknown
	default:
		return s.Status
	}
}

// ImageHash returns a short hash of the album art, or "" when there is none.
func (s Snapshot) ImageHash() string {
	if len(s.AlbumArt) == 0 {
		return ""
	}
	sum := md5.Sum(s.AlbumArt) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:5]
}

// clone returns a copy that shares no memory with s.
func (s Snapshot) clone() Snapshot {
	out := s
	out.AlbumArt = bytes.Clone(s.AlbumArt)
	if s.Duration != nil {
		d := *s.Duration
		out.Duration = &d
	}
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	return out
}
