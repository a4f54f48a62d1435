// Package eventbus carries routing lifecycle events (command received,
// routed, translated, failed) between the router, the registry, and any
// observers such as the runtime's debug logger.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"agentos/internal/domain"
)

type subscription struct {
	id      uint64
	handler domain.EventHandler
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu     sync.RWMutex
	typed  map[domain.EventType][]subscription
	global []subscription
	nextID atomic.Uint64
	logger *slog.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		typed:  make(map[domain.EventType][]subscription),
		logger: logger.With("component", "eventbus"),
	}
}

// Publish fans out an event to its typed subscribers and to every
// all-event subscriber. Handlers run in their own goroutines; a slow
// observer never delays command routing.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.typed[event.Type])+len(b.global))
	subs = append(subs, b.typed[event.Type]...)
	subs = append(subs, b.global...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(ctx, event, sub)
	}
}

// deliver invokes one handler asynchronously with panic containment.
func (b *Bus) deliver(ctx context.Context, event domain.Event, sub subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
	}()
}

// Subscribe registers a handler for one event type and returns its
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[eventType] = drop(b.typed[eventType], sub.id)
	}
}

// SubscribeAll registers a handler for every event and returns its
// unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.global = append(b.global, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.global = drop(b.global, sub.id)
	}
}

func drop(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Close prevents new publishes and waits for in-flight handlers.
// Idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}
