package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mqtt-media-bridge/internal/bridges/mediaplayer"
)

// playerView is the JSON shape of a player in API responses and events.
type playerView struct {
	Identity          string     `json:"identity"`
	Name              string     `json:"name"`
	State             string     `json:"state"`
	Lifecycle         string     `json:"lifecycle,omitempty"`
	Availability      string     `json:"availability"`
	Volume            float64    `json:"volume"`
	Title             string     `json:"title,omitempty"`
	Artist            string     `json:"artist,omitempty"`
	Album             string     `json:"album,omitempty"`
	Duration          *float64   `json:"duration,omitempty"`
	Position          *float64   `json:"position,omitempty"`
	PositionUpdatedAt *time.Time `json:"position_updated_at,omitempty"`
	MediaType         string     `json:"media_type"`
	ImageHash         string     `json:"image_hash,omitempty"`
	ImageURL          string     `json:"image_url,omitempty"`
	Features          []string   `json:"features,omitempty"`
}

func snapshotView(identity string, snap mediaplayer.Snapshot) playerView {
	v := playerView{
		Identity:     identity,
		Name:         snap.Name,
		State:        snap.PlayerState(),
		Availability: snap.Availability.String(),
		Volume:       snap.Volume,
		Title:        snap.Title,
		Artist:       snap.Artist,
		Album:        snap.Album,
		Duration:     snap.Duration,
		Position:     snap.Position,
		MediaType:    snap.MediaType,
		ImageHash:    snap.ImageHash(),
	}
	if !snap.PositionUpdatedAt.IsZero() {
		at := snap.PositionUpdatedAt.UTC()
		v.PositionUpdatedAt = &at
	}
	if v.ImageHash != "" {
		v.ImageURL = "/api/v1/players/" + identity + "/image?h=" + v.ImageHash
	}
	return v
}

func newPlayerView(p *mediaplayer.Player) playerView {
	v := snapshotView(p.Identity(), p.Snapshot())
	v.Lifecycle = p.Lifecycle().String()
	v.Features = p.Features()
	return v
}

// handleListPlayers returns every discovered player.
func (s *Server) handleListPlayers(w http.ResponseWriter, _ *http.Request) {
	players := s.players.Players()
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, newPlayerView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"players": views,
		"count":   len(views),
	})
}

// handleGetPlayer returns a single player by identity.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.players.Player(chi.URLParam(r, "id"))
	if err != nil {
		writePlayerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlayerView(p))
}

// handlePlayerImage serves the most recent album art as image/jpeg.
func (s *Server) handlePlayerImage(w http.ResponseWriter, r *http.Request) {
	p, err := s.players.Player(chi.URLParam(r, "id"))
	if err != nil {
		writePlayerError(w, err)
		return
	}
	snap := p.Snapshot()
	if len(snap.AlbumArt) == 0 {
		writeNotFound(w, "player has no album art")
		return
	}

	etag := `"` + snap.ImageHash() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=60")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write; client may have gone away
	w.Write(snap.AlbumArt)
}

// commandRequest is the body of POST /players/{id}/commands.
type commandRequest struct {
	Intent    string   `json:"intent"`
	Volume    *float64 `json:"volume,omitempty"`
	Position  *float64 `json:"position,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
	MediaID   string   `json:"media_id,omitempty"`
	// Payload overrides the configured payload for play, pause, next and previous.
	Payload string `json:"payload,omitempty"`
}

func (req commandRequest) command() (mediaplayer.Command, error) {
	intent, err := mediaplayer.ParseIntent(req.Intent)
	if err != nil {
		return mediaplayer.Command{}, err
	}
	var cmd mediaplayer.Command
	switch intent {
	case mediaplayer.IntentSetVolume:
		if req.Volume == nil {
			return cmd, errors.New("volume is required for set_volume")
		}
		cmd = mediaplayer.SetVolume(*req.Volume)
	case mediaplayer.IntentSeek:
		if req.Position == nil {
			return cmd, errors.New("position is required for seek")
		}
		cmd = mediaplayer.Seek(*req.Position)
	case mediaplayer.IntentPlayMedia:
		cmd = mediaplayer.PlayMedia(req.MediaType, req.MediaID)
	default:
		cmd = mediaplayer.Command{Intent: intent, Payload: req.Payload}
	}
	return cmd, cmd.Validate()
}

// handlePlayerCommand validates and executes a command against a player.
// The command has been published when 202 is returned; the device's own
// telemetry confirms the effect.
func (s *Server) handlePlayerCommand(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	cmd, err := req.command()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := s.players.Execute(ctx, identity, cmd); err != nil {
		s.logger.Warn("player command failed",
			"identity", identity,
			"intent", cmd.Intent.String(),
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writePlayerError(w, err)
		return
	}

	s.logger.Info("player command published",
		"identity", identity,
		"intent", cmd.Intent.String(),
		"subject", r.Context().Value(ctxKeySubject),
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"identity": identity,
		"intent":   cmd.Intent.String(),
		"status":   "published",
	})
}

// handleDeletePlayer removes a player, retracting its retained config.
func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "id")
	if err := s.players.RemovePlayer(r.Context(), identity); err != nil {
		writePlayerError(w, err)
		return
	}
	s.hub.Broadcast(channelPlayerRemoved, map[string]string{"identity": identity})
	w.WriteHeader(http.StatusNoContent)
}
