package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/lock"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

const balanceColumn = "wallet_balance"

// Adjustment is the outcome of one balance change.
type Adjustment struct {
	User        models.User
	Transaction models.Transaction
}

// Service owns every change to a wallet balance.
type Service struct {
	users        userStore
	transactions transactionStore
	cache        cacheSink
	logg         *logger.Logger
	// balances orders the read-model publication of concurrent writes to one wallet.
	balances *lock.Keyed
}

func NewService(users userStore, transactions transactionStore, cache cacheSink, logg *logger.Logger) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if transactions == nil {
		return nil, fmt.Errorf("transaction store required")
	}
	if cache == nil {
		return nil, fmt.Errorf("read model cache required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{users: users, transactions: transactions, cache: cache, logg: logg, balances: lock.NewKeyed()}, nil
}

// ErrUnrecorded is wrapped into the error of an adjustment whose balance write landed
// but whose ledger entry could not be written.
var ErrUnrecorded = errors.New("balance changed without ledger entry")

// AdjustBalance adds delta to the user's balance and records the matching ledger entry.
// The balance write is a single atomic increment; a debit never takes the balance below
// zero and fails with INSUFFICIENT_FUNDS instead. The balance write and the transaction
// insert are two separate writes.
func (s *Service) AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, description string, relatedContractID *uuid.UUID) (*Adjustment, error) {
	if delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	if !isCents(delta) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must have at most two decimal places")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment description is required")
	}

	var floor *decimal.Decimal
	if delta.IsNegative() {
		zero := decimal.Zero
		floor = &zero
	}
	user, err := s.increment(ctx, userID, delta, floor)
	if err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		UserID:            userID,
		Amount:            delta,
		Direction:         enums.DirectionFor(delta),
		Description:       description,
		RelatedContractID: relatedContractID,
	}
	if err := s.transactions.Insert(ctx, entry); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"delta":   delta.StringFixed(2),
		}), "balance changed without ledger entry", err)
		const step = "wallet.record_transaction"
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, fmt.Errorf("%w: %w", ErrUnrecorded, err), step).
			WithDetails(map[string]any{"step": step})
	}
	s.cache.PrependTransaction(*entry)

	fields := map[string]any{
		"user_id":        userID.String(),
		"delta":          delta.StringFixed(2),
		"transaction_id": entry.ID.String(),
	}
	if relatedContractID != nil {
		fields["contract_id"] = relatedContractID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "wallet adjusted")

	return &Adjustment{User: *user, Transaction: *entry}, nil
}

func (s *Service) increment(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, floor *decimal.Decimal) (*models.User, error) {
	unlock := s.balances.Lock(userID.String())
	defer unlock()
	user, applied, err := s.users.Increment(ctx, userID, balanceColumn, delta, floor)
	if err != nil {
		return nil, pkgerrors.StoreUnavailable(err, "wallet.update_balance")
	}
	if !applied {
		return nil, InsufficientFunds(user.WalletBalance, delta.Neg())
	}
	s.cache.UpsertUser(*user)
	return user, nil
}

// Deposit tops up the caller's own wallet.
func (s *Service) Deposit(ctx context.Context, sess *session.Session, amount decimal.Decimal) (*Adjustment, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}
	return s.AdjustBalance(ctx, sess.UserID, amount, "Wallet deposit", nil)
}

// Withdraw cashes out from the caller's own wallet.
func (s *Service) Withdraw(ctx context.Context, sess *session.Session, amount decimal.Decimal) (*Adjustment, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	return s.AdjustBalance(ctx, sess.UserID, amount.Neg(), "Wallet withdrawal", nil)
}

// RecordTransaction inserts an administrative ledger entry without touching any balance.
// Ledger entries are immutable; there is no update or delete counterpart.
func (s *Service) RecordTransaction(ctx context.Context, sess *session.Session, entry models.Transaction) (*models.Transaction, error) {
	if !sess.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may record ledger entries")
	}
	if entry.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction user is required")
	}
	if entry.Amount.IsZero() || !isCents(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be non-zero with at most two decimal places")
	}
	if entry.Direction == "" {
		entry.Direction = enums.DirectionFor(entry.Amount)
	}
	if entry.Direction != enums.DirectionFor(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction direction does not match amount sign")
	}
	if _, err := s.users.Get(ctx, entry.UserID); err != nil {
		return nil, err
	}
	entry.ID = uuid.Nil
	if err := s.transactions.Insert(ctx, &entry); err != nil {
		return nil, pkgerrors.StoreUnavailable(err, "wallet.record_transaction")
	}
	s.cache.PrependTransaction(entry)
	return &entry, nil
}

// Transactions returns the caller's ledger from the read model, newest first.
func (s *Service) Transactions(sess *session.Session) ([]models.Transaction, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	return s.cache.TransactionsFor(sess.UserID), nil
}

// InsufficientFunds builds the typed error for a balance that cannot cover amount.
func InsufficientFunds(balance, required decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance is lower than the required amount").
		WithDetails(map[string]any{
			"balance":  balance.StringFixed(2),
			"required": required.StringFixed(2),
		})
}

func isCents(amount decimal.Decimal) bool {
	return amount.Round(2).Equal(amount)
}
