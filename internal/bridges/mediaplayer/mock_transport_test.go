package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockHandle implements SubscriptionHandle.
type mockHandle struct {
	id    int
	topic string
}

func (h *mockHandle) Topic() string { return h.topic }

type mockPublish struct {
	Topic    string
	Payload  string
	Retained bool
}

// MockTransport is an in-memory broker. It keeps retained messages and
// replays them to the first subscription on a filter. Later handlers on the
// same filter share it and get no replay, like the MQTT client.
type MockTransport struct {
	mu        sync.Mutex
	nextID    int
	subs      map[int]*mockSub
	retained  map[string][]byte
	published []mockPublish

	subscribeCalls   []string
	unsubscribeCalls []string

	subscribeErr   map[string]error
	unsubscribeErr error
	publishErr     error

	publishGate    chan struct{}
	publishEntered chan string
}

type mockSub struct {
	handle  *mockHandle
	handler MessageHandler
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		subs:         make(map[int]*mockSub),
		retained:     make(map[string][]byte),
		subscribeErr: make(map[string]error),
	}
}

func (m *MockTransport) Subscribe(topic string, handler MessageHandler) (SubscriptionHandle, error) {
	m.mu.Lock()
	m.subscribeCalls = append(m.subscribeCalls, topic)
	if err := m.subscribeErr[topic]; err != nil {
		m.mu.Unlock()
		return nil, err
	}
	shared := false
	for _, s := range m.subs {
		if s.handle.topic == topic {
			shared = true
			break
		}
	}
	m.nextID++
	h := &mockHandle{id: m.nextID, topic: topic}
	m.subs[h.id] = &mockSub{handle: h, handler: handler}

	var replay []mockPublish
	for t, payload := range m.retained {
		if !shared && topicMatches(topic, t) {
			replay = append(replay, mockPublish{Topic: t, Payload: string(payload)})
		}
	}
	m.mu.Unlock()

	sort.Slice(replay, func(i, j int) bool { return replay[i].Topic < replay[j].Topic })
	for _, msg := range replay {
		handler(msg.Topic, []byte(msg.Payload))
	}
	return h, nil
}

func (m *MockTransport) Unsubscribe(handle SubscriptionHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeCalls = append(m.unsubscribeCalls, handle.Topic())
	if m.unsubscribeErr != nil {
		return m.unsubscribeErr
	}
	h, ok := handle.(*mockHandle)
	if !ok {
		return fmt.Errorf("foreign handle %T", handle)
	}
	delete(m.subs, h.id)
	return nil
}

func (m *MockTransport) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	if gate := m.publishGate; gate != nil {
		m.publishEntered <- topic
		m.mu.Unlock()
		<-gate
		m.mu.Lock()
	}
	if m.publishErr != nil {
		m.mu.Unlock()
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: string(payload), Retained: retained})
	if retained {
		if len(payload) == 0 {
			delete(m.retained, topic)
		} else {
			m.retained[topic] = append([]byte(nil), payload...)
		}
	}
	m.mu.Unlock()
	return nil
}

// SimulateMessage delivers a message from a device to every matching
// subscription. retained messages are also stored for later subscribers.
func (m *MockTransport) SimulateMessage(topic, payload string, retained bool) {
	m.mu.Lock()
	if retained {
		if payload == "" {
			delete(m.retained, topic)
		} else {
			m.retained[topic] = []byte(payload)
		}
	}
	var handlers []MessageHandler
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if s := m.subs[id]; topicMatches(s.handle.topic, topic) {
			handlers = append(handlers, s.handler)
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(topic, []byte(payload))
	}
}

// ActiveTopics returns the sorted filters of live subscriptions.
func (m *MockTransport) ActiveTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s.handle.topic)
	}
	sort.Strings(out)
	return out
}

// ActiveCount counts live subscriptions on exactly topic.
func (m *MockTransport) ActiveCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if s.handle.topic == topic {
			n++
		}
	}
	return n
}

func (m *MockTransport) Published() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockTransport) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.Published() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockTransport) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

func (m *MockTransport) SetSubscribeError(topic string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr[topic] = err
}

func (m *MockTransport) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// BlockPublish holds every Publish until release is called. entered
// receives the topic of each held call.
func (m *MockTransport) BlockPublish() (entered <-chan string, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.publishGate = gate
	m.publishEntered = make(chan string, 16)
	var once sync.Once
	return m.publishEntered, func() {
		once.Do(func() {
			m.mu.Lock()
			m.publishGate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

func (m *MockTransport) SetUnsubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeErr = err
}

func (m *MockTransport) Retained(topic string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.retained[topic]
	return string(p), ok
}

// topicMatches implements MQTT filter matching for + and #.
func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, seg := range f {
		if seg == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if seg != "+" && seg != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}

// MockObserver records state notifications.
type MockObserver struct {
	mu      sync.Mutex
	changes []observedChange
}

type observedChange struct {
	Identity string
	Snapshot Snapshot
}

func (o *MockObserver) OnStateChanged(identity string, snap Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, observedChange{Identity: identity, Snapshot: snap})
}

func (o *MockObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.changes)
}

func (o *MockObserver) Last() (observedChange, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.changes) == 0 {
		return observedChange{}, false
	}
	return o.changes[len(o.changes)-1], true
}

// MockRegistry implements Registry in memory.
type MockRegistry struct {
	mu        sync.Mutex
	records   map[string]DeviceRecord
	creates   int
	createErr error
}

func NewMockRegistry(records ...DeviceRecord) *MockRegistry {
	r := &MockRegistry{records: make(map[string]DeviceRecord)}
	for _, rec := range records {
		r.records[rec.Identity] = rec
	}
	return r
}

func (r *MockRegistry) Exists(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[identity]
	return ok
}

func (r *MockRegistry) CreateIfAbsent(_ context.Context, identity, topic string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if _, ok := r.records[identity]; ok {
		return false, nil
	}
	r.records[identity] = DeviceRecord{Identity: identity, DiscoveryTopic: topic}
	r.creates++
	return true, nil
}

func (r *MockRegistry) Remove(_ context.Context, identity string) (DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[identity]
	if !ok {
		return DeviceRecord{}, errors.New("not found")
	}
	delete(r.records, identity)
	return rec, nil
}

func (r *MockRegistry) List(context.Context) ([]DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeviceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (r *MockRegistry) Creates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

// flush waits for p's mailbox to drain.
func flush(t *testing.T, p *Player) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
