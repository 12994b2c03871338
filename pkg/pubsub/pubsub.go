package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when subscribing after Shutdown
var ErrClosed = errors.New("pubsub: shut down")

// DefaultBuffer is the per-subscription channel size when none is given
const DefaultBuffer = 100

// PubSub fans session events out to the front-ends watching them
type PubSub struct {
	subscribers map[string]map[*Subscription]bool
	buffer      int
	onDrop      func(topic string, ev Event)
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan Event
	ps        *PubSub
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// Option configures a PubSub
type Option func(*PubSub)

// WithBuffer sets the per-subscription channel size
func WithBuffer(n int) Option {
	return func(ps *PubSub) {
		if n > 0 {
			ps.buffer = n
		}
	}
}

// WithDropHandler is called for every event a full subscriber misses
func WithDropHandler(fn func(topic string, ev Event)) Option {
	return func(ps *PubSub) {
		ps.onDrop = fn
	}
}

// NewPubSub creates a new PubSub instance
func NewPubSub(opts ...Option) *PubSub {
	ps := &PubSub{
		subscribers: make(map[string]map[*Subscription]bool),
		buffer:      DefaultBuffer,
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Subscribe creates a new subscription to a topic. The subscription ends when
// ctx is cancelled, Unsubscribe is called or the PubSub shuts down; its
// channel is closed in every case.
func (ps *PubSub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrClosed
	}
	ps.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, ps.buffer),
		ps:      ps,
		ctx:     subCtx,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]bool)
	}
	ps.subscribers[topic][sub] = true
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers ev to every subscriber of topic without blocking.
// Subscribers whose buffer is full miss the event. Returns how many
// subscribers received it.
func (ps *PubSub) Publish(topic string, ev Event) int {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return 0
	}
	ps.shutdownMu.Unlock()

	// Snapshot so sends happen outside the lock
	ps.mu.RLock()
	topicSubs := ps.subscribers[topic]
	if len(topicSubs) == 0 {
		ps.mu.RUnlock()
		return 0
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.send(ev) {
			delivered++
		} else if ps.onDrop != nil {
			ps.onDrop(topic, ev)
		}
	}
	return delivered
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// CloseTopic ends every subscription of a topic, used when a session closes
func (ps *PubSub) CloseTopic(topic string) {
	ps.mu.Lock()
	subs := ps.subscribers[topic]
	delete(ps.subscribers, topic)
	ps.mu.Unlock()

	for sub := range subs {
		sub.cancel()
		sub.close()
	}
}

// Shutdown closes all subscriptions and shuts down the PubSub
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic := range ps.subscribers {
		for sub := range ps.subscribers[topic] {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Channel returns the subscription's event channel
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if s.ps.subscribers[s.topic] != nil {
		delete(s.ps.subscribers[s.topic], s)
		if len(s.ps.subscribers[s.topic]) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

// send is a non-blocking send that tolerates a concurrently closed channel
func (s *Subscription) send(ev Event) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case s.channel <- ev:
		return true
	default:
		return false
	}
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
