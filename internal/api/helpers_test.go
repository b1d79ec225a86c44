package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mqtt-media-bridge/internal/bridges/mediaplayer"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/logging"
)

const (
	testPrefix      = "homeassistant/media_player"
	kitchenTopic    = testPrefix + "/kitchen/config"
	kitchenConfig   = `{"name":"Kitchen","state_volume_topic":"kit/vol","state_albumart_topic":"kit/art","command_play_topic":"kit/cmd","command_play_payload":"go","command_volume_topic":"kit/cmd/vol"}`
	testJWTSecret   = "test-secret-key-at-least-32-characters-long"
	testWaitTimeout = 2 * time.Second
)

// fakeBus is a minimal in-memory broker with retained messages. Filters
// ending in "/#" match their subtree; anything else matches exactly.
type fakeBus struct {
	mu         sync.Mutex
	subs       map[*fakeHandle]mediaplayer.MessageHandler
	retained   map[string]string
	published  []string
	publishErr error
}

type fakeHandle struct{ topic string }

func (h *fakeHandle) Topic() string { return h.topic }

func newFakeBus() *fakeBus {
	return &fakeBus{
		subs:     make(map[*fakeHandle]mediaplayer.MessageHandler),
		retained: make(map[string]string),
	}
}

func matches(filter, topic string) bool {
	if base, ok := strings.CutSuffix(filter, "/#"); ok {
		return strings.HasPrefix(topic, base+"/")
	}
	return filter == topic
}

func (b *fakeBus) Subscribe(topic string, handler mediaplayer.MessageHandler) (mediaplayer.SubscriptionHandle, error) {
	h := &fakeHandle{topic: topic}
	b.mu.Lock()
	b.subs[h] = handler
	replay := make(map[string]string)
	for t, p := range b.retained {
		if matches(topic, t) {
			replay[t] = p
		}
	}
	b.mu.Unlock()

	for t, p := range replay {
		handler(t, []byte(p))
	}
	return h, nil
}

func (b *fakeBus) Unsubscribe(handle mediaplayer.SubscriptionHandle) error {
	h, ok := handle.(*fakeHandle)
	if !ok {
		return errors.New("foreign handle")
	}
	b.mu.Lock()
	delete(b.subs, h)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, topic+" "+string(payload))
	if retained {
		if len(payload) == 0 {
			delete(b.retained, topic)
		} else {
			b.retained[topic] = string(payload)
		}
	}
	return nil
}

// deliver sends a device message to every matching subscription.
func (b *fakeBus) deliver(topic, payload string) {
	b.mu.Lock()
	var handlers []mediaplayer.MessageHandler
	for h, fn := range b.subs {
		if matches(h.topic, topic) {
			handlers = append(handlers, fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(topic, []byte(payload))
	}
}

func (b *fakeBus) setPublishErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishErr = err
}

func (b *fakeBus) publishedMessages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

// fakeRegistry keeps device records in memory.
type fakeRegistry struct {
	mu      sync.Mutex
	records map[string]mediaplayer.DeviceRecord
}

func (r *fakeRegistry) Exists(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[identity]
	return ok
}

func (r *fakeRegistry) CreateIfAbsent(_ context.Context, identity, topic string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[identity]; ok {
		return false, nil
	}
	r.records[identity] = mediaplayer.DeviceRecord{Identity: identity, DiscoveryTopic: topic}
	return true, nil
}

func (r *fakeRegistry) Remove(_ context.Context, identity string) (mediaplayer.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[identity]
	if !ok {
		return mediaplayer.DeviceRecord{}, errors.New("not found")
	}
	delete(r.records, identity)
	return rec, nil
}

func (r *fakeRegistry) List(context.Context) ([]mediaplayer.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mediaplayer.DeviceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

// testEnv bundles a server with the bridge and bus behind it.
type testEnv struct {
	srv    *Server
	bridge *mediaplayer.Bridge
	bus    *fakeBus
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

// newTestEnv starts a bridge with the kitchen player discovered and
// configured, and wraps it in a server built with mutate applied to deps.
func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	bus := newFakeBus()
	bus.retained[kitchenTopic] = kitchenConfig
	reg := &fakeRegistry{records: make(map[string]mediaplayer.DeviceRecord)}

	bridge, err := mediaplayer.NewBridge(mediaplayer.Options{
		Prefix:    testPrefix,
		Transport: bus,
		Registry:  reg,
		Resolver:  mediaplayer.PrefixResolver{BaseURL: "http://media.local"},
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}

	log := testLogger()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)
	bridge.AddObserver(hub)

	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("bridge.Start() error: %v", err)
	}
	t.Cleanup(func() { _ = bridge.Stop(context.Background()) })

	waitUntil(t, "kitchen configured", func() bool {
		p, err := bridge.Player("kitchen")
		return err == nil && p.Lifecycle() == mediaplayer.LifecycleConfigured
	})

	deps := Deps{
		Config:  config.APIConfig{Host: "127.0.0.1"},
		WS:      config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:  log,
		Players: bridge,
		Hub:     hub,
		Health:  map[string]HealthChecker{"mqtt": fakeHealth{}},
		Version: "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return &testEnv{srv: srv, bridge: bridge, bus: bus}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testWaitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
