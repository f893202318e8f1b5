// Package feed delivers row-level change events to subscribers scoped to a
// (table, user) pair.
package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

var ErrClosed = errors.New("feed closed")

type Scope struct {
	Table  string
	UserID string
}

func (s Scope) Key() string {
	return s.Table + ":" + s.UserID
}

func (s Scope) Match(ev models.ChangeEvent) bool {
	return ev.Table == s.Table && ev.UserID == s.UserID
}

func ScopeOf(ev models.ChangeEvent) Scope {
	return Scope{Table: ev.Table, UserID: ev.UserID}
}

type Handler func(models.ChangeEvent)

// Subscription is a live stream of events for one scope. Handlers run on a
// single delivery goroutine, in arrival order. Events that arrive before
// OnEvent is called are held until a handler is set. Close stops delivery and
// releases the underlying transport; calling it more than once is harmless.
type Subscription interface {
	OnEvent(h Handler)
	OnError(h func(error))
	Close() error
}

type Feed interface {
	Subscribe(ctx context.Context, scope Scope) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// subscription is the delivery machinery shared by every Feed implementation.
// Transports push into it with deliver/fail.
type subscription struct {
	scope   Scope
	release func() error

	mu      sync.Mutex
	queue   []models.ChangeEvent
	errs    []error
	onEvent Handler
	onError func(error)
	closed  bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newSubscription(scope Scope, release func() error) *subscription {
	s := &subscription{
		scope:   scope,
		release: release,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *subscription) OnEvent(h Handler) {
	s.mu.Lock()
	s.onEvent = h
	s.mu.Unlock()
	s.signal()
}

func (s *subscription) OnError(h func(error)) {
	s.mu.Lock()
	s.onError = h
	s.mu.Unlock()
	s.signal()
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.errs = nil
		s.mu.Unlock()
		close(s.done)

		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

func (s *subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) deliver(ev models.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.signal()
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.signal()
}

func (s *subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}

			var ev *models.ChangeEvent
			var err error
			handler, errHandler := s.onEvent, s.onError
			switch {
			case len(s.errs) > 0 && errHandler != nil:
				err, s.errs = s.errs[0], s.errs[1:]
			case len(s.queue) > 0 && handler != nil:
				next := s.queue[0]
				ev, s.queue = &next, s.queue[1:]
			}
			s.mu.Unlock()

			if ev == nil && err == nil {
				break
			}
			if err != nil {
				errHandler(err)
				continue
			}
			handler(*ev)
		}
	}
}

// MultiPublisher hands every event to each of its publishers and reports all
// failures together.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameFeed)
}
