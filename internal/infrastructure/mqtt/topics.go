package mqtt

import "fmt"

// TopicPrefixBridge is the base for topics the bridge itself owns.
const TopicPrefixBridge = "mediabridge"

// Topics builds the MQTT topics owned by the bridge itself. Discovery
// topics belong to the devices and are handled by the mediaplayer package.
type Topics struct{}

// BridgeStatus returns the retained status topic for a bridge instance.
//
// Example: mediabridge/living-room/status
func (Topics) BridgeStatus(bridgeID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixBridge, bridgeID)
}
