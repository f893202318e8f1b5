package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// Broker is the in-process change feed. Publishing fans an event out to
// every open subscription for the event's scope.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

func (b *Broker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	metrics.FeedEventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()

	for sub := range b.subs[ScopeOf(ev).Key()] {
		sub.deliver(ev)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, scope Scope) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	var sub *subscription
	sub = newSubscription(scope, func() error {
		b.remove(sub)
		return nil
	})

	key := scope.Key()
	if b.subs[key] == nil {
		b.subs[key] = make(map[*subscription]struct{})
	}
	b.subs[key][sub] = struct{}{}
	metrics.FeedSubscriptions.Inc()

	logger().Debug("Subscription opened", zap.String("scope", key), zap.Int("subscribers", len(b.subs[key])))
	return sub, nil
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sub.scope.Key()
	if _, ok := b.subs[key][sub]; !ok {
		return
	}
	delete(b.subs[key], sub)
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
	metrics.FeedSubscriptions.Dec()

	logger().Debug("Subscription closed", zap.String("scope", key))
}

// Subscribers reports how many subscriptions are open for scope.
func (b *Broker) Subscribers(scope Scope) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[scope.Key()])
}

// Close detaches every subscriber and reports ErrClosed to them. Owners still
// call Close on their subscriptions.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.subs = make(map[string]map[*subscription]struct{})
	b.mu.Unlock()

	for _, sub := range all {
		metrics.FeedSubscriptions.Dec()
		sub.fail(ErrClosed)
	}
	return nil
}
