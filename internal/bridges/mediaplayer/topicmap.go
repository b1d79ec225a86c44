package mediaplayer

import (
	"encoding/json"
	"fmt"
)

// TopicRole is a fixed semantic slot a topic can be bound to.
type TopicRole int

// Telemetry roles are subscribed; command roles are published to.
const (
	RoleAvailability TopicRole = iota
	RoleState
	RoleTitle
	RoleArtist
	RoleAlbum
	RoleDuration
	RolePosition
	RoleVolume
	RoleAlbumArt
	RoleMediaType
	RoleCmdVolumeSet
	RoleCmdPlay
	RoleCmdPause
	RoleCmdNext
	RoleCmdPrevious
	RoleCmdPlayMedia
	RoleCmdSeek

	roleCount
)

// roleInfo describes how a role appears in a discovery payload.
type roleInfo struct {
	name       string
	topicKey   string
	payloadKey string
	defPayload string
	telemetry  bool
	feature    string
}

var roles = [roleCount]roleInfo{
	RoleAvailability: {name: "availability", topicKey: "topic", telemetry: true},
	RoleState:        {name: "state", topicKey: "state_state_topic", telemetry: true},
	RoleTitle:        {name: "title", topicKey: "state_title_topic", telemetry: true},
	RoleArtist:       {name: "artist", topicKey: "state_artist_topic", telemetry: true},
	RoleAlbum:        {name: "album", topicKey: "state_album_topic", telemetry: true},
	RoleDuration:     {name: "duration", topicKey: "state_duration_topic", telemetry: true},
	RolePosition:     {name: "position", topicKey: "state_position_topic", telemetry: true},
	RoleVolume:       {name: "volume", topicKey: "state_volume_topic", telemetry: true},
	RoleAlbumArt:     {name: "albumart", topicKey: "state_albumart_topic", telemetry: true},
	RoleMediaType:    {name: "mediatype", topicKey: "state_mediatype_topic", telemetry: true},
	RoleCmdVolumeSet: {name: "command_volume", topicKey: "command_volume_topic", feature: FeatureVolumeSet},
	RoleCmdPlay: {
		name: "command_play", topicKey: "command_play_topic",
		payloadKey: "command_play_payload", defPayload: "Play", feature: FeaturePlay,
	},
	RoleCmdPause: {
		name: "command_pause", topicKey: "command_pause_topic",
		payloadKey: "command_pause_payload", defPayload: "Pause", feature: FeaturePause,
	},
	RoleCmdNext: {
		name: "command_next", topicKey: "command_next_topic",
		payloadKey: "command_next_payload", defPayload: "Next", feature: FeatureNextTrack,
	},
	RoleCmdPrevious: {
		name: "command_previous", topicKey: "command_previous_topic",
		payloadKey: "command_previous_payload", defPayload: "Previous", feature: FeaturePreviousTrack,
	},
	RoleCmdPlayMedia: {name: "command_playmedia", topicKey: "command_playmedia_topic", feature: FeaturePlayMedia},
	RoleCmdSeek:      {name: "command_seek", topicKey: "command_seek_position_topic", feature: FeatureSeek},
}

// Feature names advertised for a player, derived from its command topics.
const (
	FeaturePlay          = "play"
	FeaturePause         = "pause"
	FeatureNextTrack     = "next_track"
	FeaturePreviousTrack = "previous_track"
	FeatureVolumeSet     = "volume_set"
	FeaturePlayMedia     = "play_media"
	FeatureSeek          = "seek"
)

// Availability sentinel defaults.
const (
	DefaultPayloadAvailable    = "online"
	DefaultPayloadNotAvailable = "offline"
)

// String returns the role's short name.
func (r TopicRole) String() string {
	if r < 0 || r >= roleCount {
		return fmt.Sprintf("TopicRole(%d)", int(r))
	}
	return roles[r].name
}

// IsTelemetry reports whether the role is subscribed rather than published.
func (r TopicRole) IsTelemetry() bool {
	return r >= 0 && r < roleCount && roles[r].telemetry
}

// TopicMap is the parsed form of a discovery payload. It is immutable; a new
// config message produces a new TopicMap.
type TopicMap struct {
	name             string
	topics           [roleCount]string
	payloads         [roleCount]string
	availablePayload string
	offlinePayload   string
}

// availabilityBlock is the nested "availability" object.
type availabilityBlock map[string]json.RawMessage

// ParseTopicMap builds a TopicMap from a discovery payload. Keys that are
// missing, null or empty strings leave the role absent.
func ParseTopicMap(payload []byte) (TopicMap, error) {
	obj, err := ParseObject(payload)
	if err != nil {
		return TopicMap{}, err
	}

	tm := TopicMap{
		availablePayload: DefaultPayloadAvailable,
		offlinePayload:   DefaultPayloadNotAvailable,
	}

	if tm.name, _, err = scalarString(obj["name"]); err != nil {
		return TopicMap{}, fmt.Errorf("name: %w", err)
	}

	for role := RoleState; role < roleCount; role++ {
		info := roles[role]
		if tm.topics[role], _, err = scalarString(obj[info.topicKey]); err != nil {
			return TopicMap{}, fmt.Errorf("%s: %w", info.topicKey, err)
		}
		if info.payloadKey == "" {
			continue
		}
		tm.payloads[role] = info.defPayload
		v, ok, err := scalarString(obj[info.payloadKey])
		if err != nil {
			return TopicMap{}, fmt.Errorf("%s: %w", info.payloadKey, err)
		}
		if ok {
			tm.payloads[role] = v
		}
	}

	if raw, ok := obj["availability"]; ok && string(raw) != "null" {
		if err := tm.parseAvailability(raw); err != nil {
			return TopicMap{}, err
		}
	}

	return tm, nil
}

func (tm *TopicMap) parseAvailability(raw json.RawMessage) error {
	var block availabilityBlock
	if err := json.Unmarshal(raw, &block); err != nil || block == nil {
		return fmt.Errorf("%w: availability must be an object", ErrMalformedPayload)
	}

	var err error
	if tm.topics[RoleAvailability], _, err = scalarString(block["topic"]); err != nil {
		return fmt.Errorf("availability.topic: %w", err)
	}

	for key, dst := range map[string]*string{
		"payload_available":     &tm.availablePayload,
		"payload_not_available": &tm.offlinePayload,
	} {
		v, ok, err := scalarString(block[key])
		if err != nil {
			return fmt.Errorf("availability.%s: %w", key, err)
		}
		if ok {
			*dst = v
		}
	}
	return nil
}

// Name returns the configured display name, possibly empty.
func (tm TopicMap) Name() string { return tm.name }

// Topic returns the topic bound to role and whether one is configured.
func (tm TopicMap) Topic(role TopicRole) (string, bool) {
	if role < 0 || role >= roleCount {
		return "", false
	}
	t := tm.topics[role]
	return t, t != ""
}

// Payload returns the command payload configured for a fixed command role.
func (tm TopicMap) Payload(role TopicRole) string {
	if role < 0 || role >= roleCount {
		return ""
	}
	return tm.payloads[role]
}

// AvailablePayload is the payload that marks the device available.
func (tm TopicMap) AvailablePayload() string { return tm.availablePayload }

// NotAvailablePayload is the payload advertised for "offline". Anything other
// than AvailablePayload counts as unavailable.
func (tm TopicMap) NotAvailablePayload() string { return tm.offlinePayload }

// TelemetryRoles returns the telemetry roles that have a topic, in role order.
func (tm TopicMap) TelemetryRoles() []TopicRole {
	var out []TopicRole
	for role := TopicRole(0); role < roleCount; role++ {
		if roles[role].telemetry && tm.topics[role] != "" {
			out = append(out, role)
		}
	}
	return out
}

// Features lists the commands this map can serve.
func (tm TopicMap) Features() []string {
	var out []string
	for role := TopicRole(0); role < roleCount; role++ {
		if f := roles[role].feature; f != "" && tm.topics[role] != "" {
			out = append(out, f)
		}
	}
	return out
}
