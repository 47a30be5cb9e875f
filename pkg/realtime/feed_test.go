package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

func TestLocalFeedDeliversToEverySubscriber(t *testing.T) {
	feed := NewLocalFeed(4)
	ctx := context.Background()

	first, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	second, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.SubscriberCount())

	msg := models.Message{ID: uuid.New(), ContractID: uuid.New(), Body: "loaded at the farm gate"}
	require.NoError(t, feed.Publish(ctx, msg))

	for _, sub := range []*Subscription{first, second} {
		select {
		case got := <-sub.C():
			assert.Equal(t, msg.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestLocalFeedRowsStopsOnClose(t *testing.T) {
	feed := NewLocalFeed(4)
	ctx := context.Background()
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, feed.Publish(ctx, models.Message{ID: id}))
	}
	sub.Close()
	sub.Close()

	var seen []uuid.UUID
	for msg := range sub.Rows() {
		seen = append(seen, msg.ID)
	}
	assert.Equal(t, ids, seen)
	assert.Zero(t, feed.SubscriberCount())
}

func TestLocalFeedRowsEarlyBreak(t *testing.T) {
	feed := NewLocalFeed(4)
	ctx := context.Background()
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, models.Message{ID: uuid.New()}))
	require.NoError(t, feed.Publish(ctx, models.Message{ID: uuid.New()}))

	count := 0
	for range sub.Rows() {
		count++
		break
	}
	assert.Equal(t, 1, count)
	assert.Len(t, sub.C(), 1)
}

func TestLocalFeedDropsForLaggingSubscriber(t *testing.T) {
	feed := NewLocalFeed(1)
	ctx := context.Background()
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, models.Message{ID: uuid.New()}))
	require.NoError(t, feed.Publish(ctx, models.Message{ID: uuid.New()}))
	assert.Equal(t, uint64(1), feed.Dropped())
}

func TestLocalFeedClose(t *testing.T) {
	feed := NewLocalFeed(1)
	ctx := context.Background()
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, feed.Close())
	_, open := <-sub.C()
	assert.False(t, open)
	sub.Close()

	_, err = feed.Subscribe(ctx)
	assert.ErrorIs(t, err, ErrFeedClosed)
	assert.ErrorIs(t, feed.Publish(ctx, models.Message{}), ErrFeedClosed)
}

type recordingPubSub struct {
	channel  string
	payloads [][]byte
}

func (r *recordingPubSub) Publish(_ context.Context, channel string, payload []byte) error {
	r.channel = channel
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingPubSub) Subscribe(context.Context, string) (*goredis.PubSub, error) {
	return nil, ErrFeedClosed
}

func TestRedisFeedPublishEncodesMessage(t *testing.T) {
	client := &recordingPubSub{}
	feed, err := NewRedisFeed(client, "messages.inserted", 8, nil)
	require.NoError(t, err)

	msg := models.Message{ID: uuid.New(), ContractID: uuid.New(), SenderID: uuid.New(), Body: "truck leaves at 6"}
	require.NoError(t, feed.Publish(context.Background(), msg))

	require.Len(t, client.payloads, 1)
	assert.Equal(t, "messages.inserted", client.channel)
	var decoded models.Message
	require.NoError(t, json.Unmarshal(client.payloads[0], &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.Body, decoded.Body)
}

func TestRedisFeedRequiresClientAndChannel(t *testing.T) {
	_, err := NewRedisFeed(nil, "c", 1, nil)
	assert.Error(t, err)
	_, err = NewRedisFeed(&recordingPubSub{}, "", 1, nil)
	assert.Error(t, err)
}

func TestRedisFeedSubscribeError(t *testing.T) {
	feed, err := NewRedisFeed(&recordingPubSub{}, "c", 1, nil)
	require.NoError(t, err)
	_, err = feed.Subscribe(context.Background())
	assert.Error(t, err)
	require.NoError(t, feed.Close())
	_, err = feed.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrFeedClosed)
}
