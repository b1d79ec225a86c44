// Package mqtt provides the broker connection used by the media bridge.
//
// It manages:
//   - Connection to the broker with auto-reconnect
//   - Handle-based subscriptions: many handlers per topic filter, one broker
//     subscription per filter, released with the last handler
//   - Subscription restore after reconnect
//   - A retained bridge status topic with Last Will and Testament
//   - Panic recovery around message handlers
//
// # Delivery
//
// paho delivers messages in order on a single goroutine. Handlers must hand
// work off (the media player mailboxes do this) and must never wait on a
// subscribe, unsubscribe or publish token themselves.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sub, err := client.Subscribe(prefix+"/#", client.DefaultQoS(),
//	    func(topic string, payload []byte) error {
//	        dispatcher.OnBusMessage(topic, payload)
//	        return nil
//	    })
//	...
//	client.Unsubscribe(sub)
package mqtt
