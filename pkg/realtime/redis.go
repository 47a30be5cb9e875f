package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

type pubsubClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
}

// RedisFeed spreads inserts across API instances through a redis channel.
type RedisFeed struct {
	client  pubsubClient
	channel string
	buffer  int
	logg    *logger.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewRedisFeed(client pubsubClient, channel string, buffer int, logg *logger.Logger) (*RedisFeed, error) {
	if client == nil {
		return nil, errors.New("redis client required for realtime feed")
	}
	if channel == "" {
		return nil, errors.New("realtime channel is required")
	}
	return &RedisFeed{
		client:  client,
		channel: channel,
		buffer:  buffer,
		logg:    logg,
		subs:    make(map[*Subscription]struct{}),
	}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return f.client.Publish(ctx, f.channel, payload)
}

func (f *RedisFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.mu.Unlock()

	ps, err := f.client.Subscribe(ctx, f.channel)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(f.buffer)
	var wg sync.WaitGroup
	sub.closeFn = func() {
		_ = ps.Close()
		wg.Wait()
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(sub.ch)
		f.forward(ps.Channel(), sub)
	}()
	return sub, nil
}

func (f *RedisFeed) forward(in <-chan *goredis.Message, sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			var msg models.Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				if f.logg != nil {
					f.logg.Warn(f.logg.WithField(context.Background(), "channel", raw.Channel), "dropping undecodable realtime payload")
				}
				continue
			}
			select {
			case sub.ch <- msg:
			case <-sub.done:
				return
			}
		}
	}
}

// Close tears down every open subscription.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}
