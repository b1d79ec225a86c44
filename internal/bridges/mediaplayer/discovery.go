package mediaplayer

import (
	"fmt"
	"strings"
	"sync"
)

// DiscoveryEvent announces a device the registry does not know yet.
type DiscoveryEvent struct {
	Identity string
	Topic    string
	Config   []byte
}

// Dispatcher watches the discovery subtree and reports unknown devices.
// Known devices are left to their own Player, which subscribes its config
// topic directly.
type Dispatcher struct {
	prefix    string
	transport Transport
	known     func(identity string) bool
	emit      func(DiscoveryEvent)
	logger    Logger

	mu  sync.Mutex
	sub SubscriptionHandle
}

// NewDispatcher creates a dispatcher for the subtree below prefix. known
// reports whether the registry already holds an identity; emit receives new
// devices.
func NewDispatcher(prefix string, transport Transport, known func(string) bool, emit func(DiscoveryEvent), logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		prefix:    strings.TrimSuffix(prefix, "/"),
		transport: transport,
		known:     known,
		emit:      emit,
		logger:    logger,
	}
}

// Filter returns the wildcard subscription used by the dispatcher.
func (d *Dispatcher) Filter() string {
	return d.prefix + "/#"
}

// ConfigTopic returns the discovery config topic for identity.
func (d *Dispatcher) ConfigTopic(identity string) string {
	return d.prefix + "/" + identity + ConfigSuffix
}

// Start subscribes the discovery subtree.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub != nil {
		return nil
	}

	handle, err := d.transport.Subscribe(d.Filter(), d.OnBusMessage)
	if err != nil {
		return fmt.Errorf("%w: subscribe %s: %w", ErrTransport, d.Filter(), err)
	}
	d.sub = handle
	d.logger.Info("discovery started", "filter", d.Filter())
	return nil
}

// Stop releases the discovery subscription.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	handle := d.sub
	d.sub = nil
	d.mu.Unlock()

	if handle == nil {
		return nil
	}
	if err := d.transport.Unsubscribe(handle); err != nil {
		return fmt.Errorf("%w: unsubscribe %s: %w", ErrTransport, handle.Topic(), err)
	}
	return nil
}

// OnBusMessage classifies one message from the discovery subtree.
func (d *Dispatcher) OnBusMessage(topic string, payload []byte) {
	if !strings.HasPrefix(topic, d.prefix+"/") || !strings.HasSuffix(topic, ConfigSuffix) {
		return
	}
	if IsEmptyPayload(payload) {
		return
	}

	if _, err := ParseObject(payload); err != nil {
		d.logger.Warn("dropping malformed discovery message",
			"topic", topic,
			"error", err,
		)
		return
	}

	// The identity segment must lie below the prefix.
	rest := strings.TrimPrefix(topic, d.prefix+"/")
	identity, err := IdentityFromTopic(rest)
	if err != nil {
		d.logger.Debug("dropping discovery message without identity", "topic", topic)
		return
	}

	if d.known(identity) {
		return
	}

	d.logger.Info("new media player discovered",
		"identity", identity,
		"topic", topic,
	)
	d.emit(DiscoveryEvent{
		Identity: identity,
		Topic:    topic,
		Config:   payload,
	})
}
