package mediaplayer

import "time"

// StateWriter persists player state points.
type StateWriter interface {
	WritePlayerState(identity string, fields map[string]any, at time.Time)
}

// StateRecorder is a StateObserver that writes every snapshot change to a
// StateWriter.
type StateRecorder struct {
	writer StateWriter
	clock  Clock
}

// NewStateRecorder creates a recorder writing to w.
func NewStateRecorder(w StateWriter, clock Clock) *StateRecorder {
	if clock == nil {
		clock = time.Now
	}
	return &StateRecorder{writer: w, clock: clock}
}

// OnStateChanged implements StateObserver.
func (r *StateRecorder) OnStateChanged(identity string, snap Snapshot) {
	r.writer.WritePlayerState(identity, StateFields(snap), r.clock())
}

// StateFields flattens a snapshot into point fields. Unset optional values
// are left out.
func StateFields(snap Snapshot) map[string]any {
	fields := map[string]any{
		"state":        snap.PlayerState(),
		"availability": snap.Availability.String(),
		"volume":       snap.Volume,
		"media_type":   snap.MediaType,
	}
	if snap.Title != "" {
		fields["title"] = snap.Title
	}
	if snap.Artist != "" {
		fields["artist"] = snap.Artist
	}
	if snap.Album != "" {
		fields["album"] = snap.Album
	}
	if snap.Duration != nil {
		fields["duration"] = *snap.Duration
	}
	if snap.Position != nil {
		fields["position"] = *snap.Position
	}
	return fields
}
