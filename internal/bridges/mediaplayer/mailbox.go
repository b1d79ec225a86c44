package mediaplayer

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO of work run by a single goroutine. post never
// blocks, so transport delivery goroutines can enqueue freely.
type mailbox struct {
	mu     sync.Mutex
	queue  []func(ctx context.Context)
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// post enqueues fn. It returns false once the mailbox is closed.
func (m *mailbox) post(fn func(ctx context.Context)) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

func (m *mailbox) drain() []func(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// close rejects further posts and drops queued work.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
}

// run executes queued work in order until ctx is cancelled.
func (m *mailbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.signal:
			for _, fn := range m.drain() {
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}
}
