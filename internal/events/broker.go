// Package events delivers session-change notifications to per-client subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"planner/internal/core"
)

// Handler receives one session event.
type Handler func(core.SessionEvent)

// Sink receives a copy of every published event, for audit or fan-out.
type Sink interface {
	PublishSessionEvent(ctx context.Context, event core.SessionEvent) error
}

// sinkQueueSize bounds the events waiting for the sink. Events beyond it are
// dropped with a warning.
const sinkQueueSize = 256

// Broker fans session events out to the subscribers of the event's client id.
// Delivery is serialized: handlers run one at a time in publish order.
// Handlers must not call Publish.
//
// The sink is fed from a queue drained by one goroutine, in publish order, so
// a slow sink never holds up delivery. Close drains the queue.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64

	dispatch sync.Mutex
	logger   *slog.Logger

	sink      Sink
	sinkMu    sync.RWMutex
	queue     chan sinkItem
	closed    bool
	drained   chan struct{}
	closeOnce sync.Once
}

type sinkItem struct {
	ctx   context.Context
	event core.SessionEvent
}

// NewBroker creates a broker. sink may be nil.
func NewBroker(sink Sink, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		subs:    make(map[string]map[uint64]Handler),
		sink:    sink,
		logger:  logger,
		drained: make(chan struct{}),
	}
	if sink == nil {
		close(b.drained)
		return b
	}
	b.queue = make(chan sinkItem, sinkQueueSize)
	go b.forward()
	return b
}

// Subscribe registers h for events of clientID. The returned function removes
// the subscription; calling it more than once is harmless.
func (b *Broker) Subscribe(clientID string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[clientID] == nil {
		b.subs[clientID] = make(map[uint64]Handler)
	}
	b.subs[clientID][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[clientID], id)
			if len(b.subs[clientID]) == 0 {
				delete(b.subs, clientID)
			}
		})
	}
}

// Publish delivers event to its client's subscribers and queues it for the
// sink. Sink failures are logged and never block delivery.
func (b *Broker) Publish(ctx context.Context, event core.SessionEvent) {
	b.dispatch.Lock()
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.ClientID]))
	for _, h := range b.subs[event.ClientID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	b.dispatch.Unlock()

	b.logger.DebugContext(ctx, "Session event dispatched",
		"event_kind", string(event.Kind),
		"client_id", event.ClientID,
		"subscribers", len(handlers))

	b.enqueue(ctx, event)
}

func (b *Broker) enqueue(ctx context.Context, event core.SessionEvent) {
	if b.queue == nil {
		return
	}
	b.sinkMu.RLock()
	defer b.sinkMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- sinkItem{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		b.logger.WarnContext(ctx, "Session event sink queue full, dropping event",
			"event_kind", string(event.Kind),
			"client_id", event.ClientID)
	}
}

func (b *Broker) forward() {
	defer close(b.drained)
	for item := range b.queue {
		if err := b.sink.PublishSessionEvent(item.ctx, item.event); err != nil {
			b.logger.WarnContext(item.ctx, "Failed to forward session event",
				"event_kind", string(item.event.Kind),
				"client_id", item.event.ClientID,
				"error", err)
		}
	}
}

// Close stops accepting sink work and waits until queued events have been
// forwarded. Subscribers still receive events published after Close.
func (b *Broker) Close() error {
	b.closeOnce.Do(func() {
		if b.queue == nil {
			return
		}
		b.sinkMu.Lock()
		b.closed = true
		close(b.queue)
		b.sinkMu.Unlock()
	})
	<-b.drained
	return nil
}

// Subscribers returns the number of live subscriptions for clientID.
func (b *Broker) Subscribers(clientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[clientID])
}
