package bus

import (
	"log/slog"
	"sync"
)

// Handler receives the payload published on a topic.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed later.
// The zero value is not a valid subscription.
type Subscription struct {
	topic string
	id    uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous, in-process publish/subscribe registry keyed by string
// topic. Publish invokes all current subscribers for the topic in subscription
// order on the calling goroutine. A panicking subscriber is recovered and
// logged so it cannot block the rest of the fan-out. There is no replay: a
// handler registered after a publish never sees it.
type Bus struct {
	mu     sync.Mutex
	logger *slog.Logger
	subs   map[string][]subscriber
	nextID uint64
}

// New creates an empty event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]subscriber),
	}
}

// Subscribe registers a handler for a topic and returns its subscription token.
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscriber{id: b.nextID, handler: h})
	return Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Unknown subscriptions
// are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i := range subs {
		if subs[i].id == sub.id {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the payload to every subscriber of the topic, in
// subscription order. Handlers run synchronously; Publish returns after the
// last one. No cross-topic ordering is guaranteed.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, s := range subs {
		b.invoke(topic, s, payload)
	}
}

func (b *Bus) invoke(topic string, s subscriber, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event subscriber panicked",
				slog.String("topic", topic),
				slog.Uint64("subscription", s.id),
				slog.Any("panic", rec),
			)
		}
	}()
	s.handler(payload)
}
