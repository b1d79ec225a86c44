package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// binding is one live role subscription.
type binding struct {
	role   TopicRole
	handle SubscriptionHandle
}

// Generation owns every subscription created for one TopicMap. The handles
// are released together by Dispose.
type Generation struct {
	seq       uint64
	transport Transport

	mu       sync.Mutex
	bindings []binding
	disposed bool
}

// UpdateFunc receives a telemetry message together with the role that was
// recorded when its topic was subscribed.
type UpdateFunc func(role TopicRole, payload []byte)

// BindGeneration subscribes every telemetry topic in tm. Messages are routed
// by the role captured at subscribe time, never by re-reading the topic.
//
// On any failure, subscriptions made so far are released and the error is
// returned wrapped in ErrTransport. A cancelled ctx stops binding between
// subscriptions.
func BindGeneration(ctx context.Context, transport Transport, seq uint64, tm TopicMap, deliver UpdateFunc) (*Generation, error) {
	g := &Generation{seq: seq, transport: transport}

	for _, role := range tm.TelemetryRoles() {
		if err := ctx.Err(); err != nil {
			_ = g.Dispose()
			return nil, err
		}

		topic, _ := tm.Topic(role)
		handle, err := transport.Subscribe(topic, func(_ string, payload []byte) {
			deliver(role, payload)
		})
		if err != nil {
			_ = g.Dispose()
			return nil, fmt.Errorf("%w: subscribe %s (%s): %w", ErrTransport, topic, role, err)
		}
		g.bindings = append(g.bindings, binding{role: role, handle: handle})
	}

	return g, nil
}

// Seq returns the generation's sequence number.
func (g *Generation) Seq() uint64 { return g.seq }

// Len returns the number of live subscriptions.
func (g *Generation) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return 0
	}
	return len(g.bindings)
}

// Topics returns the bound topic per role.
func (g *Generation) Topics() map[TopicRole]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[TopicRole]string, len(g.bindings))
	if g.disposed {
		return out
	}
	for _, b := range g.bindings {
		out[b.role] = b.handle.Topic()
	}
	return out
}

// Dispose unsubscribes every handle. It keeps going past failures and
// returns them joined. Calling Dispose again is a no-op; a nil Generation is
// already disposed.
func (g *Generation) Dispose() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return nil
	}
	g.disposed = true
	bindings := g.bindings
	g.bindings = nil
	g.mu.Unlock()

	var errs []error
	for _, b := range bindings {
		if err := g.transport.Unsubscribe(b.handle); err != nil {
			errs = append(errs, fmt.Errorf("%w: unsubscribe %s (%s): %w", ErrTransport, b.handle.Topic(), b.role, err))
		}
	}
	return errors.Join(errs...)
}

func (g *Generation) lenOrZero() int {
	if g == nil {
		return 0
	}
	return g.Len()
}
