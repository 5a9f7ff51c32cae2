package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Bus distributes plan events to subscribers.
//
// The bus is thread-safe and supports multiple concurrent subscribers.
// Slow consumers are handled gracefully - if a subscriber's channel is
// full, the event is dropped for that subscriber to prevent blocking
// others. Delivery to one subscriber is therefore never allowed to stall
// state transitions in the plan manager.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription
	bufferSize  int
	logger      *slog.Logger
	closed      bool
}

// subscription represents a single subscriber with its filter.
type subscription struct {
	id     string
	ch     chan Event
	filter Filter
	ctx    context.Context
	cancel context.CancelFunc
}

// BusOption is a functional option for configuring Bus.
type BusOption func(*Bus)

// WithBufferSize sets the buffer size for subscriber channels.
// Default is 100. Larger buffers handle bursty progress updates better.
func WithBufferSize(size int) BusOption {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// NewBus creates an event bus ready to accept subscriptions.
func NewBus(logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		subscribers: make(map[string]*subscription),
		bufferSize:  100,
		logger:      logger.With("component", "eventbus"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Publish sends an event to all subscribers whose filter matches.
//
// Sends are non-blocking: if a subscriber's channel is full the event is
// dropped for that subscriber and a warning is logged. Publish returns
// an error only when the bus is closed.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	sent := 0
	dropped := 0

	for _, sub := range b.subscribers {
		select {
		case <-sub.ctx.Done():
			// Subscriber is gone, cleanup removes it.
			continue
		default:
		}

		if !sub.filter.Matches(event) {
			continue
		}

		select {
		case sub.ch <- event:
			sent++
		case <-ctx.Done():
			return ctx.Err()
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				"subscriber_id", sub.id,
				"event_type", event.Type,
				"session_id", event.SessionID,
			)
		}
	}

	if sent > 0 || dropped > 0 {
		b.logger.Debug("published event",
			"event_type", event.Type,
			"session_id", event.SessionID,
			"sent", sent,
			"dropped", dropped,
		)
	}

	return nil
}

// Subscribe creates a subscription delivering events that match the
// filter. The caller must call the returned cleanup function to
// unsubscribe and prevent leaks.
func (b *Bus) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscriberID := uuid.NewString()
	subCtx, cancel := context.WithCancel(ctx)

	sub := &subscription{
		id:     subscriberID,
		ch:     make(chan Event, b.bufferSize),
		filter: filter,
		ctx:    subCtx,
		cancel: cancel,
	}

	b.subscribers[subscriberID] = sub

	b.logger.Info("new subscription created",
		"subscriber_id", subscriberID,
		"event_types", filter.Types,
		"session_id", filter.SessionID,
	)

	cleanup := func() {
		b.unsubscribe(subscriberID)
	}

	return sub.ch, cleanup
}

// unsubscribe removes a subscription and closes its channel.
func (b *Bus) unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscribers[subscriberID]
	if !exists {
		return
	}

	sub.cancel()
	close(sub.ch)
	delete(b.subscribers, subscriberID)

	b.logger.Info("subscription removed", "subscriber_id", subscriberID)
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.ch)
		delete(b.subscribers, id)
	}

	b.logger.Info("event bus closed")
	return nil
}

// SubscriberCount returns the current number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
