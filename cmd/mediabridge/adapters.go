package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/mqtt-media-bridge/internal/bridges/mediaplayer"
	"github.com/nerrad567/mqtt-media-bridge/internal/device"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/mqtt"
)

// busClient is the part of *mqtt.Client the bridge needs.
type busClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) (mqtt.Subscription, error)
	Unsubscribe(sub mqtt.Subscription) error
	PublishDefault(topic string, payload []byte, retained bool) error
	DefaultQoS() byte
}

// mqttTransport adapts the MQTT client to mediaplayer.Transport.
type mqttTransport struct {
	client busClient
	log    interface {
		Debug(msg string, args ...any)
	}
}

func (t *mqttTransport) Subscribe(topic string, handler mediaplayer.MessageHandler) (mediaplayer.SubscriptionHandle, error) {
	sub, err := t.client.Subscribe(topic, t.client.DefaultQoS(), func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.Debug("subscribed", "topic", topic, "subscription", sub.ID())
	return sub, nil
}

func (t *mqttTransport) Unsubscribe(handle mediaplayer.SubscriptionHandle) error {
	sub, ok := handle.(mqtt.Subscription)
	if !ok {
		return fmt.Errorf("unsubscribe %s: handle %T was not issued by the MQTT client", handle.Topic(), handle)
	}
	return t.client.Unsubscribe(sub)
}

func (t *mqttTransport) Publish(topic string, payload []byte, retained bool) error {
	return t.client.PublishDefault(topic, payload, retained)
}

// registryAdapter exposes the SQLite-backed device registry to the bridge.
type registryAdapter struct {
	registry *device.Registry
}

func (r *registryAdapter) Exists(identity string) bool {
	return r.registry.Exists(identity)
}

func (r *registryAdapter) CreateIfAbsent(ctx context.Context, identity, topic string) (bool, error) {
	_, created, err := r.registry.CreateIfAbsent(ctx, identity, topic)
	return created, err
}

func (r *registryAdapter) Remove(ctx context.Context, identity string) (mediaplayer.DeviceRecord, error) {
	p, err := r.registry.Remove(ctx, identity)
	if err != nil {
		return mediaplayer.DeviceRecord{}, err
	}
	return toRecord(*p), nil
}

func (r *registryAdapter) List(context.Context) ([]mediaplayer.DeviceRecord, error) {
	players := r.registry.List()
	out := make([]mediaplayer.DeviceRecord, 0, len(players))
	for _, p := range players {
		out = append(out, toRecord(p))
	}
	return out, nil
}

func toRecord(p device.MediaPlayer) mediaplayer.DeviceRecord {
	return mediaplayer.DeviceRecord{
		Identity:       p.Identity,
		Name:           p.Name,
		DiscoveryTopic: p.DiscoveryTopic,
	}
}
