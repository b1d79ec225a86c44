package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages on the specified topic filter.
//
// Filters can include MQTT wildcards:
//   - + (single-level): "homeassistant/media_player/+/config"
//   - # (multi-level): "homeassistant/media_player/#"
//
// Any number of handlers may share one filter. The broker is only contacted
// for the first handler on a filter; later handlers join the existing
// subscription and do not receive the retained message again.
//
// Handlers run on paho's delivery goroutine in arrival order. They must not
// call Subscribe, Unsubscribe or Publish synchronously, since those wait on
// broker acknowledgements that are delivered on the same goroutine.
//
// Subscriptions are restored automatically after a reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) (Subscription, error) {
	if topic == "" {
		return Subscription{}, ErrInvalidTopic
	}
	if qos > maxQoS {
		return Subscription{}, ErrInvalidQoS
	}
	if handler == nil {
		return Subscription{}, fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return Subscription{}, ErrNotConnected
	}

	sub, first := c.subs.add(topic, qos, handler)
	if !first {
		return sub, nil
	}

	token := c.client.Subscribe(topic, qos, c.dispatcher(topic))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.subs.remove(sub)
		return Subscription{}, fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.subs.remove(sub)
		return Subscription{}, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return sub, nil
}

// Unsubscribe removes one handler. The broker subscription is dropped when
// the last handler on the filter goes away.
//
// Removing an unknown or already removed handle is a no-op. When the client
// is disconnected the handler is forgotten locally; the clean session means
// the broker holds nothing to remove.
func (c *Client) Unsubscribe(sub Subscription) error {
	if sub.topic == "" {
		return ErrInvalidTopic
	}

	last, found := c.subs.remove(sub)
	if !found || !last || !c.IsConnected() {
		return nil
	}

	token := c.client.Unsubscribe(sub.topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of broker-level topic filters.
func (c *Client) SubscriptionCount() int {
	filters, _ := c.subs.counts()
	return filters
}

// HandlerCount returns the number of registered handlers across all filters.
func (c *Client) HandlerCount() int {
	_, handlers := c.subs.counts()
	return handlers
}

// HasSubscription reports whether the exact filter is subscribed.
// It does not perform wildcard matching.
func (c *Client) HasSubscription(topic string) bool {
	return c.subs.has(topic)
}
