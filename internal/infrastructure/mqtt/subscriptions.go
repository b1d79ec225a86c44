package mqtt

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Subscription identifies one handler registered through Client.Subscribe.
//
// Several subscriptions may share a topic filter; the broker-level
// subscription lives until the last of them is removed.
type Subscription struct {
	id    string
	topic string
}

// ID returns the unique handle identifier.
func (s Subscription) ID() string { return s.id }

// Topic returns the topic filter the handler was registered on.
func (s Subscription) Topic() string { return s.topic }

// filterEntry is the set of handlers attached to one topic filter.
type filterEntry struct {
	qos      byte
	order    []string
	handlers map[string]MessageHandler
}

// subscriptionTable multiplexes handlers onto broker topic filters.
//
// It holds no reference to the paho client so the bookkeeping can be tested
// without a broker.
type subscriptionTable struct {
	mu      sync.RWMutex
	filters map[string]*filterEntry
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{filters: make(map[string]*filterEntry)}
}

// add registers handler on topic. first reports whether the filter was not
// previously subscribed, in which case the caller must subscribe at the broker.
// A later add on the same filter with a higher QoS raises the stored QoS.
func (t *subscriptionTable) add(topic string, qos byte, handler MessageHandler) (sub Subscription, first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.filters[topic]
	if !ok {
		entry = &filterEntry{qos: qos, handlers: make(map[string]MessageHandler)}
		t.filters[topic] = entry
	}
	if qos > entry.qos {
		entry.qos = qos
	}

	sub = Subscription{id: uuid.NewString(), topic: topic}
	entry.handlers[sub.id] = handler
	entry.order = append(entry.order, sub.id)
	return sub, !ok
}

// remove drops sub. last reports whether the filter has no handlers left and
// must be unsubscribed at the broker. found is false for unknown handles,
// which makes repeated removal harmless.
func (t *subscriptionTable) remove(sub Subscription) (last, found bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.filters[sub.topic]
	if !ok {
		return false, false
	}
	if _, ok := entry.handlers[sub.id]; !ok {
		return false, false
	}

	delete(entry.handlers, sub.id)
	for i, id := range entry.order {
		if id == sub.id {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}

	if len(entry.handlers) == 0 {
		delete(t.filters, sub.topic)
		return true, true
	}
	return false, true
}

// handlers returns the handlers for a filter in registration order.
// The slice is a copy; callers invoke it without holding the lock.
func (t *subscriptionTable) handlers(topic string) []MessageHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.filters[topic]
	if !ok {
		return nil
	}
	out := make([]MessageHandler, 0, len(entry.order))
	for _, id := range entry.order {
		out = append(out, entry.handlers[id])
	}
	return out
}

// filterQoS pairs a filter with its subscription QoS.
type filterQoS struct {
	topic string
	qos   byte
}

// snapshot lists every active filter, sorted by topic.
func (t *subscriptionTable) snapshot() []filterQoS {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]filterQoS, 0, len(t.filters))
	for topic, entry := range t.filters {
		out = append(out, filterQoS{topic: topic, qos: entry.qos})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].topic < out[j].topic })
	return out
}

// counts returns the number of filters and the number of handlers.
func (t *subscriptionTable) counts() (filters, handlers int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, entry := range t.filters {
		handlers += len(entry.handlers)
	}
	return len(t.filters), handlers
}

// has reports whether any handler is registered on the exact filter.
func (t *subscriptionTable) has(topic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.filters[topic]
	return ok
}
