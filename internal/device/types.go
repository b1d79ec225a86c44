package device

import "time"

// MediaPlayer is the persisted record of a discovered media player.
type MediaPlayer struct {
	// Identity is the second-to-last segment of the discovery topic and the
	// primary key.
	Identity string `json:"identity"`

	// Name is the display name; it starts out equal to Identity.
	Name string `json:"name"`

	// DiscoveryTopic is the topic the config was announced on. Empty for
	// records created before the topic was known.
	DiscoveryTopic string `json:"discovery_topic,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
