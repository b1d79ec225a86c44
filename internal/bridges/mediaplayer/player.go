package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ConfigSuffix is the last segment of every discovery topic.
const ConfigSuffix = "/config"

// Lifecycle is the configuration state of a Player.
type Lifecycle int

const (
	LifecycleUnconfigured Lifecycle = iota
	LifecycleConfigured
	LifecycleDisposed
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleUnconfigured:
		return "unconfigured"
	case LifecycleConfigured:
		return "configured"
	case LifecycleDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("Lifecycle(%d)", int(l))
	}
}

// PlayerOptions configures a Player.
type PlayerOptions struct {
	Identity string

	// ConfigTopic is subscribed for reconfiguration. When empty the player
	// subscribes ConfigFilter instead and filters by identity; that filter
	// must not already be held by another subscriber or the retained config
	// is not replayed. When both are empty config is only fed through
	// HandleConfig.
	ConfigTopic  string
	ConfigFilter string

	Transport Transport
	Resolver  MediaResolver
	Observer  StateObserver
	Logger    Logger
	Clock     Clock
}

// Player is the state machine for one media player. Config messages,
// telemetry and commands are queued on a mailbox and handled one at a time
// in arrival order by the player's own goroutine.
type Player struct {
	identity     string
	configTopic  string
	configFilter string
	transport    Transport
	resolver     MediaResolver
	observer     StateObserver
	logger       Logger
	clock        Clock

	mailbox   *mailbox
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	dispOnce  sync.Once
	released  chan struct{}
	dispErr   error

	// genSeq is only touched by the mailbox goroutine.
	genSeq uint64

	mu         sync.RWMutex
	lifecycle  Lifecycle
	topics     TopicMap
	generation *Generation
	configSub  SubscriptionHandle
	snap       Snapshot
}

// NewPlayer creates an unconfigured player. Call Start to begin processing.
func NewPlayer(opts PlayerOptions) (*Player, error) {
	if opts.Identity == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrIdentityMismatch)
	}
	if opts.Transport == nil {
		return nil, errors.New("mediaplayer: transport is required")
	}

	p := &Player{
		identity:     opts.Identity,
		configTopic:  opts.ConfigTopic,
		configFilter: opts.ConfigFilter,
		transport:    opts.Transport,
		resolver:     opts.Resolver,
		observer:     opts.Observer,
		logger:       opts.Logger,
		clock:        opts.Clock,
		mailbox:      newMailbox(),
		done:         make(chan struct{}),
		released:     make(chan struct{}),
		snap:         newSnapshot(opts.Identity),
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

// Start launches the mailbox goroutine and queues the config subscription.
// Subscribing happens on the player goroutine, so Start is safe to call from
// a transport delivery callback.
func (p *Player) Start() {
	p.startOnce.Do(func() {
		go func() {
			defer close(p.done)
			p.mailbox.run(p.ctx)
		}()

		topic := p.configTopic
		if topic == "" {
			topic = p.configFilter
		}
		if topic == "" {
			return
		}
		p.mailbox.post(func(context.Context) {
			p.subscribeConfig(topic)
		})
	})
}

func (p *Player) subscribeConfig(topic string) {
	handle, err := p.transport.Subscribe(topic, p.HandleConfig)
	if err != nil {
		p.logger.Error("subscribing to discovery config",
			"identity", p.identity,
			"topic", topic,
			"error", err,
		)
		return
	}
	p.mu.Lock()
	p.configSub = handle
	p.mu.Unlock()
}

// Identity returns the device identity.
func (p *Player) Identity() string { return p.identity }

// ConfigTopic returns the stored discovery topic, possibly empty.
func (p *Player) ConfigTopic() string { return p.configTopic }

// HandleConfig queues a discovery config message.
func (p *Player) HandleConfig(topic string, payload []byte) {
	p.mailbox.post(func(ctx context.Context) {
		p.applyConfig(ctx, topic, payload)
	})
}

// HandleUpdate queues a telemetry message for role.
func (p *Player) HandleUpdate(role TopicRole, payload []byte) {
	p.mailbox.post(func(context.Context) {
		p.applyUpdate(role, payload)
	})
}

// deliver queues a message from generation seq. It is dropped if a newer
// generation has been bound by the time it is processed.
func (p *Player) deliver(seq uint64, role TopicRole, payload []byte) {
	p.mailbox.post(func(context.Context) {
		if seq != p.genSeq {
			p.logger.Debug("dropping update from previous generation",
				"identity", p.identity,
				"role", role.String(),
			)
			return
		}
		p.applyUpdate(role, payload)
	})
}

func (p *Player) applyConfig(ctx context.Context, topic string, payload []byte) {
	if !strings.HasSuffix(topic, ConfigSuffix) {
		return
	}
	// Identity is checked before the empty-payload test so a retraction on
	// another device's topic cannot mark this player retracted.
	identity, err := IdentityFromTopic(topic)
	if err != nil || identity != p.identity {
		return
	}

	if IsEmptyPayload(payload) {
		p.logger.Info("discovery config retracted remotely",
			"identity", p.identity,
			"topic", topic,
		)
		p.mu.Lock()
		p.snap.Retracted = true
		snap := p.snap.clone()
		p.mu.Unlock()
		p.notify(snap)
		return
	}

	tm, err := ParseTopicMap(payload)
	if err != nil {
		p.logger.Warn("ignoring malformed discovery config",
			"identity", p.identity,
			"topic", topic,
			"error", err,
		)
		return
	}

	p.rebind(ctx, tm)
}

// rebind replaces the live generation with one built from tm. The previous
// generation is fully released before the first new subscription is made.
func (p *Player) rebind(ctx context.Context, tm TopicMap) {
	p.genSeq++
	seq := p.genSeq

	p.mu.Lock()
	old := p.generation
	p.generation = nil
	p.mu.Unlock()

	if err := old.Dispose(); err != nil {
		p.logger.Error("releasing previous subscriptions",
			"identity", p.identity,
			"error", err,
		)
	}
	if ctx.Err() != nil {
		return
	}

	gen, err := BindGeneration(ctx, p.transport, seq, tm, func(role TopicRole, payload []byte) {
		p.deliver(seq, role, payload)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("binding state topics",
			"identity", p.identity,
			"error", err,
		)
	}

	p.mu.Lock()
	p.topics = tm
	p.generation = gen
	p.lifecycle = LifecycleConfigured
	p.snap.Configured = true
	p.snap.Retracted = false
	if name := tm.Name(); name != "" {
		p.snap.Name = name
	}
	snap := p.snap.clone()
	p.mu.Unlock()

	p.logger.Info("media player configured",
		"identity", p.identity,
		"generation", seq,
		"subscriptions", gen.lenOrZero(),
	)
	p.notify(snap)
}

func (p *Player) applyUpdate(role TopicRole, payload []byte) {
	now := p.clock()

	p.mu.Lock()
	s := &p.snap
	var fieldErr error
	switch role {
	case RoleAvailability:
		if string(payload) == p.topics.AvailablePayload() {
			s.Availability = AvailabilityOnline
		} else {
			s.Availability = AvailabilityOffline
		}
	case RoleState:
		s.Status = string(payload)
	case RoleTitle:
		s.Title = string(payload)
	case RoleArtist:
		s.Artist = string(payload)
	case RoleAlbum:
		s.Album = string(payload)
	case RoleMediaType:
		s.MediaType = string(payload)
	case RoleDuration:
		s.Duration, fieldErr = optionalFloat(payload)
	case RolePosition:
		s.Position, fieldErr = optionalFloat(payload)
		if fieldErr == nil {
			s.PositionUpdatedAt = now
		}
	case RoleVolume:
		v, err := ParseFloat(payload)
		s.Volume, fieldErr = v, err
	case RoleAlbumArt:
		s.AlbumArt, fieldErr = DecodeBase64(payload)
	default:
		p.mu.Unlock()
		p.logger.Warn("ignoring update for non-telemetry role",
			"identity", p.identity,
			"role", role.String(),
		)
		return
	}
	snap := s.clone()
	p.mu.Unlock()

	if fieldErr != nil {
		p.logger.Warn("invalid field value",
			"identity", p.identity,
			"role", role.String(),
			"error", fieldErr,
		)
	}
	p.notify(snap)
}

func optionalFloat(payload []byte) (*float64, error) {
	v, err := ParseFloat(payload)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *Player) notify(snap Snapshot) {
	if p.observer != nil {
		p.observer.OnStateChanged(p.identity, snap)
	}
}

// Execute queues cmd and waits for it to be published. A command still
// queued when ctx expires is abandoned and never published; once it has
// started, Execute reports its real outcome.
func (p *Player) Execute(ctx context.Context, cmd Command) error {
	const (
		pending int32 = iota
		started
		abandoned
	)
	var state atomic.Int32
	result := make(chan error, 1)
	if !p.mailbox.post(func(context.Context) {
		if !state.CompareAndSwap(pending, started) {
			return
		}
		result <- p.execute(ctx, cmd)
	}) {
		return ErrPlayerDisposed
	}

	select {
	case err := <-result:
		return err
	case <-p.done:
		if state.CompareAndSwap(pending, abandoned) {
			return ErrPlayerDisposed
		}
	case <-ctx.Done():
		if state.CompareAndSwap(pending, abandoned) {
			return ctx.Err()
		}
	}

	return <-result
}

// Flush waits until everything queued before the call has been processed.
func (p *Player) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if !p.mailbox.post(func(context.Context) { close(flushed) }) {
		return ErrPlayerDisposed
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPlayerDisposed
	}
}

// Snapshot returns a copy of the current state.
func (p *Player) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.clone()
}

// Lifecycle returns the player's configuration state.
func (p *Player) Lifecycle() Lifecycle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lifecycle
}

// TopicMap returns the current topic map. It is the zero TopicMap until the
// first config is applied.
func (p *Player) TopicMap() TopicMap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.topics
}

// Features lists the commands the current config supports.
func (p *Player) Features() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.topics.Features()
}

// SubscriptionCount returns the number of live state subscriptions.
func (p *Player) SubscriptionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation.lenOrZero()
}

// Dispose stops the player, drops queued work and releases every
// subscription it holds. If ctx expires first the release still completes in
// the background once in-flight work returns; a later call waits for it. It
// is safe to call more than once.
func (p *Player) Dispose(ctx context.Context) error {
	p.dispOnce.Do(func() {
		p.cancel()
		p.mailbox.close()
		p.startOnce.Do(func() { close(p.done) })

		go func() {
			<-p.done
			p.dispErr = p.release()
			close(p.released)
		}()
	})

	select {
	case <-p.released:
		return p.dispErr
	case <-ctx.Done():
		return fmt.Errorf("waiting for player %s to stop: %w", p.identity, ctx.Err())
	}
}

// release drops the generation and config subscription. It runs once, after
// the mailbox goroutine has exited.
func (p *Player) release() error {
	p.mu.Lock()
	gen := p.generation
	cfg := p.configSub
	p.generation = nil
	p.configSub = nil
	p.lifecycle = LifecycleDisposed
	p.mu.Unlock()

	errs := []error{gen.Dispose()}
	if cfg != nil {
		if err := p.transport.Unsubscribe(cfg); err != nil {
			errs = append(errs, fmt.Errorf("%w: unsubscribe %s: %w", ErrTransport, cfg.Topic(), err))
		}
	}
	return errors.Join(errs...)
}
