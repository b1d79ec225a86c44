package mediaplayer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestBridge(t *testing.T, transport *MockTransport, registry *MockRegistry) *Bridge {
	t.Helper()
	b, err := NewBridge(Options{
		Prefix:    testPrefix,
		Transport: transport,
		Registry:  registry,
		Resolver:  PrefixResolver{BaseURL: "http://media.local"},
		Clock:     func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	t.Cleanup(func() { _ = b.Stop(context.Background()) })
	return b
}

func waitForPlayer(t *testing.T, b *Bridge, identity string) *Player {
	t.Helper()
	var p *Player
	waitFor(t, "player "+identity, func() bool {
		var err error
		p, err = b.Player(identity)
		return err == nil && p.Lifecycle() == LifecycleConfigured
	})
	flush(t, p)
	return p
}

func TestNewBridge_Validation(t *testing.T) {
	if _, err := NewBridge(Options{Registry: NewMockRegistry()}); err == nil {
		t.Error("NewBridge() without transport should fail")
	}
	if _, err := NewBridge(Options{Transport: NewMockTransport()}); err == nil {
		t.Error("NewBridge() without registry should fail")
	}
	if _, err := NewBridge(Options{Transport: NewMockTransport(), Registry: NewMockRegistry(), Prefix: "ha/+"}); err == nil {
		t.Error("NewBridge() with wildcard prefix should fail")
	}

	b, err := NewBridge(Options{Transport: NewMockTransport(), Registry: NewMockRegistry()})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if b.Prefix() != DefaultDiscoveryPrefix {
		t.Errorf("Prefix() = %q, want default", b.Prefix())
	}
}

func TestBridge_DiscoversAndConfiguresPlayer(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	b := newTestBridge(t, transport, registry)
	obs := &MockObserver{}
	b.AddObserver(obs)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	transport.SimulateMessage(kitchenTopic, kitchenConfig, true)
	p := waitForPlayer(t, b, "kitchen")

	if registry.Creates() != 1 {
		t.Errorf("registry creates = %d, want 1", registry.Creates())
	}
	if p.ConfigTopic() != kitchenTopic {
		t.Errorf("ConfigTopic() = %q", p.ConfigTopic())
	}

	transport.SimulateMessage("kit/vol", "0.73", false)
	flush(t, p)
	if got := p.Snapshot().Volume; got != 0.73 {
		t.Errorf("Volume = %v, want 0.73", got)
	}
	last, ok := obs.Last()
	if !ok || last.Identity != "kitchen" || last.Snapshot.Volume != 0.73 {
		t.Errorf("observer last = %+v", last)
	}

	if err := b.Execute(context.Background(), "kitchen", Play()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if pubs := transport.PublishedTo("kit/cmd"); len(pubs) != 1 || pubs[0].Payload != "go" {
		t.Errorf("published = %+v", pubs)
	}
}

func TestBridge_RediscoveryDoesNotDuplicate(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	b := newTestBridge(t, transport, registry)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	transport.SimulateMessage(kitchenTopic, kitchenConfig, true)
	p := waitForPlayer(t, b, "kitchen")

	// A new config reaches the player, not the registry.
	transport.SimulateMessage(kitchenTopic, `{"state_title_topic":"kit/title"}`, true)
	flush(t, p)
	transport.SimulateMessage(kitchenTopic, "", true)
	flush(t, p)

	if registry.Creates() != 1 {
		t.Errorf("registry creates = %d, want 1", registry.Creates())
	}
	if n := len(b.Players()); n != 1 {
		t.Errorf("Players() = %d, want 1", n)
	}
	if n := transport.ActiveCount("kit/title"); n != 1 {
		t.Errorf("kit/title subscriptions = %d, want 1", n)
	}
	if n := transport.ActiveCount("kit/vol"); n != 0 {
		t.Errorf("kit/vol subscriptions = %d, want 0", n)
	}
}

func TestBridge_ConcurrentDiscoveryCreatesOnce(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	b := newTestBridge(t, transport, registry)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.dispatcher.OnBusMessage(kitchenTopic, []byte(kitchenConfig))
		}()
	}
	wg.Wait()

	if registry.Creates() != 1 {
		t.Errorf("registry creates = %d, want 1", registry.Creates())
	}
	if n := len(b.Players()); n != 1 {
		t.Errorf("Players() = %d, want 1", n)
	}
}

func TestBridge_RestoresRegisteredPlayers(t *testing.T) {
	transport := NewMockTransport()
	transport.SimulateMessage(kitchenTopic, kitchenConfig, true)
	transport.SimulateMessage(testPrefix+"/lounge/config", `{"name":"Lounge","state_title_topic":"l/title"}`, true)

	registry := NewMockRegistry(
		DeviceRecord{Identity: "kitchen", DiscoveryTopic: kitchenTopic},
		DeviceRecord{Identity: "lounge"},
	)
	b := newTestBridge(t, transport, registry)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	waitForPlayer(t, b, "kitchen")
	lounge := waitForPlayer(t, b, "lounge")

	if registry.Creates() != 0 {
		t.Errorf("registry creates = %d, restored players must not be recreated", registry.Creates())
	}
	if got := lounge.ConfigTopic(); got != testPrefix+"/lounge/config" {
		t.Errorf("lounge ConfigTopic() = %q, want its own discovery topic", got)
	}
	if lounge.Snapshot().Name != "Lounge" {
		t.Errorf("lounge name = %q", lounge.Snapshot().Name)
	}
	players := b.Players()
	if len(players) != 2 || players[0].Identity() != "kitchen" || players[1].Identity() != "lounge" {
		t.Errorf("Players() not sorted by identity")
	}
}

func TestBridge_RemovePlayer(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	b := newTestBridge(t, transport, registry)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	transport.SimulateMessage(kitchenTopic, kitchenConfig, true)
	waitForPlayer(t, b, "kitchen")

	if err := b.RemovePlayer(context.Background(), "kitchen"); err != nil {
		t.Fatalf("RemovePlayer() error: %v", err)
	}

	if _, ok := transport.Retained(kitchenTopic); ok {
		t.Error("retained discovery config must be cleared")
	}
	pubs := transport.PublishedTo(kitchenTopic)
	if len(pubs) != 1 || pubs[0].Payload != "" || !pubs[0].Retained {
		t.Errorf("retraction = %+v, want empty retained publish", pubs)
	}
	if registry.Exists("kitchen") {
		t.Error("registry record must be removed")
	}
	if _, err := b.Player("kitchen"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Player() error = %v, want ErrPlayerNotFound", err)
	}
	if n := transport.ActiveCount("kit/vol"); n != 0 {
		t.Errorf("kit/vol subscriptions = %d after removal", n)
	}
	if n := transport.ActiveCount(kitchenTopic); n != 0 {
		t.Errorf("config subscriptions = %d after removal", n)
	}
}

func TestBridge_RemovePlayerFallbackTopic(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry(DeviceRecord{Identity: "den"})
	b := newTestBridge(t, transport, registry)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := b.RemovePlayer(context.Background(), "den"); err != nil {
		t.Fatalf("RemovePlayer() error: %v", err)
	}
	pubs := transport.PublishedTo(testPrefix + "/den/config")
	if len(pubs) != 1 || !pubs[0].Retained {
		t.Errorf("retraction = %+v, want fallback topic", pubs)
	}
}

func TestBridge_RemoveUnknownPlayer(t *testing.T) {
	b := newTestBridge(t, NewMockTransport(), NewMockRegistry())
	if err := b.RemovePlayer(context.Background(), "ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("RemovePlayer() error = %v, want ErrPlayerNotFound", err)
	}
	if err := b.Execute(context.Background(), "ghost", Play()); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Execute() error = %v, want ErrPlayerNotFound", err)
	}
}

func TestBridge_StopReleasesEverything(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	b := newTestBridge(t, transport, registry)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	transport.SimulateMessage(kitchenTopic, kitchenConfig, true)
	waitForPlayer(t, b, "kitchen")

	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := transport.ActiveTopics(); len(got) != 0 {
		t.Errorf("ActiveTopics() after Stop = %v", got)
	}
	if _, ok := transport.Retained(kitchenTopic); !ok {
		t.Error("Stop must not retract retained configs")
	}

	// Discovery after Stop creates nothing.
	b.dispatcher.OnBusMessage(testPrefix+"/den/config", []byte(`{}`))
	if len(b.Players()) != 0 {
		t.Error("players added after Stop")
	}
}

func TestBridge_RegistryErrorLogged(t *testing.T) {
	transport := NewMockTransport()
	registry := NewMockRegistry()
	registry.createErr = errors.New("disk full")
	b := newTestBridge(t, transport, registry)

	b.dispatcher.OnBusMessage(kitchenTopic, []byte(kitchenConfig))
	if len(b.Players()) != 0 {
		t.Error("player must not be created when registry fails")
	}
}
