// Package realtime fans out newly inserted contract messages to live subscribers.
// Delivery is at-least-once; consumers dedupe by message id.
package realtime

import (
	"context"
	"iter"
	"sync"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

const defaultBuffer = 64

// Feed publishes message inserts and hands out subscriptions to them.
type Feed interface {
	Publish(ctx context.Context, msg models.Message) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// Subscription is an explicit handle on a stream of inserted messages.
// The channel is closed once Close returns or the feed shuts down.
type Subscription struct {
	ch      chan models.Message
	done    chan struct{}
	once    sync.Once
	closeFn func()
}

func newSubscription(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Subscription{
		ch:   make(chan models.Message, buffer),
		done: make(chan struct{}),
	}
}

// C returns the receive side of the subscription.
func (s *Subscription) C() <-chan models.Message {
	return s.ch
}

// Done is closed when the subscription is being torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Rows yields messages lazily until the subscription closes or the consumer stops.
func (s *Subscription) Rows() iter.Seq[models.Message] {
	return func(yield func(models.Message) bool) {
		for msg := range s.ch {
			if !yield(msg) {
				return
			}
		}
	}
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}
