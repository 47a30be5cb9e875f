package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

// ErrFeedClosed is returned when subscribing to a feed that has shut down.
var ErrFeedClosed = errors.New("realtime feed closed")

// LocalFeed broadcasts inside one process. A subscriber whose buffer is full misses the message.
type LocalFeed struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

func NewLocalFeed(buffer int) *LocalFeed {
	return &LocalFeed{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

func (f *LocalFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedClosed
	}
	id := f.nextID
	f.nextID++
	sub := newSubscription(f.buffer)
	sub.closeFn = func() { f.unregister(id) }
	f.subs[id] = sub
	return sub, nil
}

func (f *LocalFeed) Publish(ctx context.Context, msg models.Message) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFeedClosed
	}
	for _, sub := range f.subs {
		if !trySend(sub, msg) {
			f.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber lagged.
func (f *LocalFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// SubscriberCount returns the number of open subscriptions.
func (f *LocalFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *LocalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for id, sub := range f.subs {
		close(sub.ch)
		delete(f.subs, id)
	}
	return nil
}

func (f *LocalFeed) unregister(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		close(sub.ch)
		delete(f.subs, id)
	}
}

func trySend(sub *Subscription, msg models.Message) bool {
	select {
	case sub.ch <- msg:
		return true
	default:
		return false
	}
}
