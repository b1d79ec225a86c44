package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultDiscoveryPrefix is the discovery subtree used when none is set.
const DefaultDiscoveryPrefix = "homeassistant/media_player"

// Options configures a Bridge.
type Options struct {
	// Prefix is the discovery subtree, without a trailing slash or wildcard.
	Prefix    string
	Transport Transport
	Registry  Registry
	Resolver  MediaResolver
	Logger    Logger
	Clock     Clock
}

// Bridge owns the discovery dispatcher and one Player per registered
// device. It also fans player state changes out to its observers.
type Bridge struct {
	prefix     string
	transport  Transport
	registry   Registry
	resolver   MediaResolver
	logger     Logger
	clock      Clock
	dispatcher *Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	players map[string]*Player
	stopped bool

	obsMu     sync.RWMutex
	observers []StateObserver
}

// NewBridge validates opts and builds a stopped bridge.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Transport == nil {
		return nil, errors.New("mediaplayer: transport is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("mediaplayer: registry is required")
	}
	prefix := strings.TrimSuffix(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	if strings.ContainsAny(prefix, "+#") {
		return nil, fmt.Errorf("mediaplayer: discovery prefix %q must not contain wildcards", prefix)
	}

	b := &Bridge{
		prefix:    prefix,
		transport: opts.Transport,
		registry:  opts.Registry,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		clock:     opts.Clock,
		players:   make(map[string]*Player),
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.dispatcher = NewDispatcher(prefix, opts.Transport, opts.Registry.Exists, b.handleDiscovery, b.logger)
	return b, nil
}

// AddObserver registers o for state changes of every player.
func (b *Bridge) AddObserver(o StateObserver) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.observers = append(b.observers, o)
}

// OnStateChanged implements StateObserver by fanning out to all observers.
func (b *Bridge) OnStateChanged(identity string, snap Snapshot) {
	b.obsMu.RLock()
	observers := b.observers
	b.obsMu.RUnlock()
	for _, o := range observers {
		o.OnStateChanged(identity, snap)
	}
}

// Start restores players for every registered device and then begins
// listening for discovery messages.
func (b *Bridge) Start(ctx context.Context) error {
	records, err := b.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("listing registered players: %w", err)
	}
	for _, rec := range records {
		b.addPlayer(rec)
	}
	b.logger.Info("restored media players", "count", len(records))

	return b.dispatcher.Start()
}

// Stop releases the discovery subscription and disposes every player.
// Retained configs are left on the bus so players come back on restart.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	players := b.players
	b.players = make(map[string]*Player)
	b.mu.Unlock()

	b.cancel()
	errs := []error{b.dispatcher.Stop()}
	for _, p := range players {
		errs = append(errs, p.Dispose(ctx))
	}
	return errors.Join(errs...)
}

// Prefix returns the discovery subtree.
func (b *Bridge) Prefix() string { return b.prefix }

// handleDiscovery runs on the transport delivery goroutine.
func (b *Bridge) handleDiscovery(ev DiscoveryEvent) {
	created, err := b.registry.CreateIfAbsent(b.ctx, ev.Identity, ev.Topic)
	if err != nil {
		b.logger.Error("registering discovered player",
			"identity", ev.Identity,
			"error", err,
		)
		return
	}
	if !created {
		return
	}
	b.addPlayer(DeviceRecord{Identity: ev.Identity, DiscoveryTopic: ev.Topic})
}

func (b *Bridge) addPlayer(rec DeviceRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	if _, ok := b.players[rec.Identity]; ok {
		return
	}

	// The player needs its own filter: a second handler on the dispatcher's
	// wildcard would not get the retained config replayed.
	topic := rec.DiscoveryTopic
	if topic == "" {
		topic = b.dispatcher.ConfigTopic(rec.Identity)
	}
	p, err := NewPlayer(PlayerOptions{
		Identity:    rec.Identity,
		ConfigTopic: topic,
		Transport:   b.transport,
		Resolver:    b.resolver,
		Observer:    b,
		Logger:      b.logger,
		Clock:       b.clock,
	})
	if err != nil {
		b.logger.Error("creating player", "identity", rec.Identity, "error", err)
		return
	}
	b.players[rec.Identity] = p
	p.Start()
}

// Player returns the player for identity.
func (b *Bridge) Player(identity string) (*Player, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.players[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, identity)
	}
	return p, nil
}

// Players returns all players ordered by identity.
func (b *Bridge) Players() []*Player {
	b.mu.RLock()
	out := make([]*Player, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, p)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(a, c *Player) int { return strings.Compare(a.identity, c.identity) })
	return out
}

// Execute sends cmd to the player for identity.
func (b *Bridge) Execute(ctx context.Context, identity string, cmd Command) error {
	p, err := b.Player(identity)
	if err != nil {
		return err
	}
	return p.Execute(ctx, cmd)
}

// RemovePlayer disposes the player, deletes its registry record and clears
// its retained discovery config from the bus.
func (b *Bridge) RemovePlayer(ctx context.Context, identity string) error {
	b.mu.Lock()
	p, ok := b.players[identity]
	delete(b.players, identity)
	b.mu.Unlock()

	if !ok && !b.registry.Exists(identity) {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, identity)
	}

	var errs []error
	if p != nil {
		if err := p.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	rec, err := b.registry.Remove(ctx, identity)
	if err != nil {
		errs = append(errs, fmt.Errorf("removing %s from registry: %w", identity, err))
	}

	topic := rec.DiscoveryTopic
	if topic == "" && p != nil {
		topic = p.ConfigTopic()
	}
	if topic == "" {
		topic = b.dispatcher.ConfigTopic(identity)
	}
	if err := b.transport.Publish(topic, nil, true); err != nil {
		errs = append(errs, fmt.Errorf("%w: retract %s: %w", ErrTransport, topic, err))
	}

	b.logger.Info("media player removed",
		"identity", identity,
		"topic", topic,
	)
	return errors.Join(errs...)
}
