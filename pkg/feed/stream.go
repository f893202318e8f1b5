package feed

import (
	"errors"
	"io"

	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// Receiver blocks for the next event of a remote stream. Returning io.EOF or
// ErrClosed ends the stream without it being reported as a failure.
type Receiver func() (models.ChangeEvent, error)

// FromReceiver pumps a remote stream into a Subscription. Events outside
// scope are dropped; release is called once on Close.
func FromReceiver(scope Scope, recv Receiver, release func() error) Subscription {
	sub := newSubscription(scope, release)

	go func() {
		for {
			ev, err := recv()
			if err != nil {
				if sub.Closed() {
					return
				}
				if errors.Is(err, io.EOF) || errors.Is(err, ErrClosed) {
					sub.fail(ErrClosed)
				} else {
					logger().Warn("Change stream receive failed", zap.String("scope", scope.Key()), zap.Error(err))
					sub.fail(err)
				}
				return
			}
			if scope.UserID != "" && !scope.Match(ev) {
				continue
			}
			sub.deliver(ev)
		}
	}()

	return sub
}
