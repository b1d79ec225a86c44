package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound messages at 1MB, the common broker limit.
// Album art travels inbound only, so command payloads stay far below it.
const maxPayloadSize = 1 << 20

// Publish sends a message to topic.
//
// An empty payload with retained=true clears the retained message for the
// topic, which is how a media player's discovery config is retracted.
//
//	err := client.Publish("homeassistant/media_player/kitchen/config", nil, 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishDefault publishes with the configured default QoS.
func (c *Client) PublishDefault(topic string, payload []byte, retained bool) error {
	return c.Publish(topic, payload, c.DefaultQoS(), retained)
}

// DefaultQoS returns the QoS configured for the bridge.
func (c *Client) DefaultQoS() byte {
	return byte(c.cfg.QoS)
}
