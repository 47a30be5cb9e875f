// Package store is the ledger store: one gorm-backed collection per entity,
// plus the outbox and realtime side effects that ride along with writes.
package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/outbox"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/realtime"
)

// Store groups the collections the marketplace reads and writes.
type Store struct {
	Users        *Collection[models.User]
	Produce      *Collection[models.Produce]
	Contracts    *Collection[models.Contract]
	Transactions *Collection[models.Transaction]
	Messages     *Collection[models.Message]
	Journal      *Journal

	db   *gorm.DB
	feed realtime.Feed
}

// Options carries the optional collaborators. Nil outbox disables event queuing; nil feed disables realtime.
type Options struct {
	Outbox *outbox.Service
	Feed   realtime.Feed
	Logger *logger.Logger
}

func New(conn *gorm.DB, opts Options) *Store {
	ev := events{outbox: opts.Outbox}
	s := &Store{db: conn, feed: opts.Feed}

	s.Users = newCollection(conn, "user", []string{"name ASC", "id ASC"}, Hooks[models.User]{
		AfterInsert: ev.userRegistered,
	})
	s.Produce = newCollection(conn, "produce", []string{"harvest_date DESC", "id ASC"}, Hooks[models.Produce]{})
	s.Contracts = newCollection(conn, "contract", []string{"delivery_deadline ASC", "id ASC"}, Hooks[models.Contract]{
		AfterInsert:  ev.contractProposed,
		BeforeUpdate: ev.contractChanged,
	})
	s.Transactions = newCollection(conn, "transaction", []string{"date DESC", "id ASC"}, Hooks[models.Transaction]{
		AfterInsert: ev.walletAdjusted,
	})
	s.Messages = newCollection(conn, "message", []string{"sent_at ASC", "id ASC"}, Hooks[models.Message]{
		Committed: publishMessage(opts.Feed, opts.Logger),
	})
	s.Journal = newJournal(conn)
	return s
}

// SubscribeInserts hands out a live subscription to inserted messages.
func (s *Store) SubscribeInserts(ctx context.Context) (*realtime.Subscription, error) {
	if s.feed == nil {
		return nil, realtime.ErrFeedClosed
	}
	return s.feed.Subscribe(ctx)
}

// DB exposes the connection for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func publishMessage(feed realtime.Feed, logg *logger.Logger) func(context.Context, models.Message) {
	if feed == nil {
		return nil
	}
	return func(ctx context.Context, msg models.Message) {
		if err := feed.Publish(ctx, msg); err != nil && logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"message_id":  msg.ID.String(),
				"contract_id": msg.ContractID.String(),
				"error":       err.Error(),
			}), "realtime publish failed")
		}
	}
}

type events struct {
	outbox *outbox.Service
}

type contractEvent struct {
	ContractID     uuid.UUID            `json:"contractId"`
	FarmerID       uuid.UUID            `json:"farmerId"`
	VendorID       uuid.UUID            `json:"vendorId"`
	TotalPrice     string               `json:"totalPrice"`
	Status         enums.ContractStatus `json:"status"`
	PreviousStatus enums.ContractStatus `json:"previousStatus,omitempty"`
}

type walletEvent struct {
	TransactionID     uuid.UUID                  `json:"transactionId"`
	UserID            uuid.UUID                  `json:"userId"`
	Amount            string                     `json:"amount"`
	Direction         enums.TransactionDirection `json:"direction"`
	Description       string                     `json:"description"`
	RelatedContractID *uuid.UUID                 `json:"relatedContractId,omitempty"`
}

type userEvent struct {
	UserID uuid.UUID      `json:"userId"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
}

func (e events) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if e.outbox == nil {
		return nil
	}
	return e.outbox.Emit(ctx, tx, event)
}

func (e events) userRegistered(ctx context.Context, tx *gorm.DB, u *models.User) error {
	return e.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventUserRegistered,
		AggregateType: enums.AggregateUser,
		AggregateID:   u.ID,
		Data:          userEvent{UserID: u.ID, Email: u.Email, Role: u.Role},
	})
}

func (e events) contractProposed(ctx context.Context, tx *gorm.DB, c *models.Contract) error {
	return e.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventContractProposed,
		AggregateType: enums.AggregateContract,
		AggregateID:   c.ID,
		Actor:         &outbox.ActorRef{UserID: c.VendorID, Role: enums.UserRoleVendor},
		Data:          newContractEvent(c, ""),
	})
}

func (e events) contractChanged(ctx context.Context, tx *gorm.DB, c *models.Contract) error {
	if e.outbox == nil {
		return nil
	}
	var statuses []enums.ContractStatus
	if err := tx.Model(&models.Contract{}).Where("id = ?", c.ID).Pluck("status", &statuses).Error; err != nil {
		return err
	}
	var previous enums.ContractStatus
	if len(statuses) > 0 {
		previous = statuses[0]
	}
	eventType := enums.EventContractUpdated
	if previous != "" && previous != c.Status {
		eventType = enums.EventContractStatusChanged
	}
	return e.emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateContract,
		AggregateID:   c.ID,
		Data:          newContractEvent(c, previous),
	})
}

func (e events) walletAdjusted(ctx context.Context, tx *gorm.DB, t *models.Transaction) error {
	return e.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletAdjusted,
		AggregateType: enums.AggregateWallet,
		AggregateID:   t.UserID,
		Data: walletEvent{
			TransactionID:     t.ID,
			UserID:            t.UserID,
			Amount:            t.Amount.StringFixed(2),
			Direction:         t.Direction,
			Description:       t.Description,
			RelatedContractID: t.RelatedContractID,
		},
	})
}

func newContractEvent(c *models.Contract, previous enums.ContractStatus) contractEvent {
	return contractEvent{
		ContractID:     c.ID,
		FarmerID:       c.FarmerID,
		VendorID:       c.VendorID,
		TotalPrice:     c.TotalPrice.StringFixed(2),
		Status:         c.Status,
		PreviousStatus: previous,
	}
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Users.List(ctx)
}

func (s *Store) ListContracts(ctx context.Context) ([]models.Contract, error) {
	return s.Contracts.List(ctx)
}

func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.Transactions.List(ctx)
}

func (s *Store) ListMessages(ctx context.Context) ([]models.Message, error) {
	return s.Messages.List(ctx)
}
