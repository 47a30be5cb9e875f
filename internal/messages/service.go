// Package messages is the contract chat passthrough and the bridge between the
// realtime insert feed and the read model.
package messages

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/realtime"
)

const maxBodyRunes = 2000

type messageStore interface {
	Insert(ctx context.Context, row *models.Message) error
}

type insertFeed interface {
	SubscribeInserts(ctx context.Context) (*realtime.Subscription, error)
}

type messageCache interface {
	Contract(id uuid.UUID) (models.Contract, bool)
	MessagesFor(contractID uuid.UUID) []models.Message
	AppendMessage(m models.Message) bool
	Listen(ctx context.Context, sub *realtime.Subscription, logg *logger.Logger)
}

type Service struct {
	store messageStore
	feed  insertFeed
	cache messageCache
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(store messageStore, feed insertFeed, cache messageCache, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("message store required")
	}
	if feed == nil {
		return nil, fmt.Errorf("insert feed required")
	}
	if cache == nil {
		return nil, fmt.Errorf("read model cache required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, feed: feed, cache: cache, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List returns a contract's messages oldest first.
func (s *Service) List(sess *session.Session, contractID uuid.UUID) ([]models.Message, error) {
	if _, err := s.authorize(sess, contractID); err != nil {
		return nil, err
	}
	return s.cache.MessagesFor(contractID), nil
}

// Send stores a message from the caller. The id may be chosen by the client.
func (s *Service) Send(ctx context.Context, sess *session.Session, contractID uuid.UUID, req SendRequest) (*models.Message, error) {
	if _, err := s.authorize(sess, contractID); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if utf8.RuneCountInString(body) > maxBodyRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message body exceeds %d characters", maxBodyRunes))
	}
	msg := &models.Message{
		ContractID: contractID,
		SenderID:   sess.UserID,
		Body:       body,
		Timestamp:  s.now(),
	}
	if req.ID != nil {
		msg.ID = *req.ID
	}
	if err := s.store.Insert(ctx, msg); err != nil {
		return nil, err
	}
	s.cache.AppendMessage(*msg)
	return msg, nil
}

// Watch is a live view of one contract's new messages.
type Watch struct {
	contractID uuid.UUID
	sub        *realtime.Subscription
}

// Messages yields the contract's messages as they arrive until the watch closes.
// Redelivered messages are yielded once.
func (w *Watch) Messages() iter.Seq[models.Message] {
	return func(yield func(models.Message) bool) {
		seen := map[uuid.UUID]struct{}{}
		for m := range w.sub.Rows() {
			if m.ContractID != w.contractID {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			if !yield(m) {
				return
			}
		}
	}
}

func (w *Watch) Close() {
	w.sub.Close()
}

// Watch subscribes the caller to new messages on a contract they are party to.
func (s *Service) Watch(ctx context.Context, sess *session.Session, contractID uuid.UUID) (*Watch, error) {
	if _, err := s.authorize(sess, contractID); err != nil {
		return nil, err
	}
	sub, err := s.feed.SubscribeInserts(ctx)
	if err != nil {
		return nil, pkgerrors.StoreUnavailable(err, "messages.subscribe")
	}
	return &Watch{contractID: contractID, sub: sub}, nil
}

// Listen folds inserts made by any instance into the read model. It blocks until ctx ends.
func (s *Service) Listen(ctx context.Context) error {
	sub, err := s.feed.SubscribeInserts(ctx)
	if err != nil {
		return err
	}
	s.logg.Info(ctx, "realtime message listener started")
	s.cache.Listen(ctx, sub, s.logg)
	return nil
}

func (s *Service) authorize(sess *session.Session, contractID uuid.UUID) (models.Contract, error) {
	if !sess.Valid() {
		return models.Contract{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	c, ok := s.cache.Contract(contractID)
	if !ok {
		return models.Contract{}, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	if !sess.IsAdmin() && !c.IsParty(sess.UserID) {
		return models.Contract{}, pkgerrors.New(pkgerrors.CodeForbidden, "only contract parties can read or post messages")
	}
	return c, nil
}
