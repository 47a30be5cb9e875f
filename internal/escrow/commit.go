package escrow

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/ioproxxy/mkulima-express-sub000/internal/contracts"
	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

type persistFunc func(ctx context.Context, row *models.Contract) error

// commit runs the write sequence of a planned transition: journal, wallet, contract,
// cache. Transitions without a wallet effect skip the journal. Once the first write
// has happened the remaining writes ignore caller cancellation.
func (s *Service) commit(ctx context.Context, sess *session.Session, t contracts.Transition, next *models.Contract, persist persistFunc) error {
	ctx = s.logg.WithContractID(ctx, next.ID.String())
	ctx = s.logg.WithUserID(ctx, sess.UserID.String())

	if t.Effect == nil {
		if err := persist(ctx, next); err != nil {
			return pkgerrors.StoreUnavailable(err, "contract.persist")
		}
		s.committed(ctx, t, next)
		return nil
	}

	userID := t.Effect.UserID
	entry := &models.JournalEntry{
		ContractID:   next.ID,
		Operation:    string(t.Event),
		WalletUserID: &userID,
		WalletDelta:  t.Effect.Delta,
	}
	if err := s.journal.Begin(ctx, entry); err != nil {
		return pkgerrors.StoreUnavailable(err, "journal.begin")
	}
	ctx = context.WithoutCancel(ctx)

	related := next.ID
	if _, err := s.wallet.AdjustBalance(ctx, t.Effect.UserID, t.Effect.Delta, t.Effect.Description, &related); err != nil {
		if errors.Is(err, wallet.ErrUnrecorded) {
			// The balance moved even though the call failed.
			s.mark(ctx, entry, enums.JournalStatusWalletApplied, err)
			s.compensate(ctx, entry, t, next, err)
			return err
		}
		s.mark(ctx, entry, enums.JournalStatusFailed, err)
		return err
	}
	s.mark(ctx, entry, enums.JournalStatusWalletApplied, nil)

	if err := persist(ctx, next); err != nil {
		s.compensate(ctx, entry, t, next, err)
		return pkgerrors.StoreUnavailable(err, "contract.persist")
	}
	s.mark(ctx, entry, enums.JournalStatusCommitted, nil)
	s.committed(ctx, t, next)
	return nil
}

func (s *Service) committed(ctx context.Context, t contracts.Transition, next *models.Contract) {
	s.cache.UpsertContract(*next)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event": string(t.Event),
		"from":  string(t.From),
		"to":    string(t.To),
	}), "contract transitioned")
}

// compensate reverses the wallet effect of a transition whose contract write failed.
func (s *Service) compensate(ctx context.Context, entry *models.JournalEntry, t contracts.Transition, next *models.Contract, cause error) {
	related := next.ID
	_, err := s.wallet.AdjustBalance(ctx, t.Effect.UserID, t.Effect.Delta.Neg(), "Reversal: "+t.Effect.Description, &related)
	if errors.Is(cause, wallet.ErrUnrecorded) {
		switch {
		case err == nil:
			err = errors.New("reversal recorded for a wallet move missing from the ledger")
		case errors.Is(err, wallet.ErrUnrecorded):
			// Neither the move nor its reversal reached the ledger, so balance and ledger agree.
			s.logg.Warn(s.logg.WithField(ctx, "journal_id", entry.ID.String()), "wallet effect reversed without ledger entries")
			err = nil
		}
	}
	if err != nil {
		s.metrics.IncCompensation(string(t.Event), false)
		s.mark(ctx, entry, enums.JournalStatusCompensationFailed, multierr.Combine(cause, err))
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"journal_id": entry.ID.String(),
			"wallet_id":  t.Effect.UserID.String(),
			"delta":      t.Effect.Delta.StringFixed(2),
		}), "escrow compensation failed, wallet needs manual repair", err)
		return
	}
	s.metrics.IncCompensation(string(t.Event), true)
	s.mark(ctx, entry, enums.JournalStatusCompensated, cause)
	s.logg.Warn(s.logg.WithField(ctx, "journal_id", entry.ID.String()), "contract write failed, wallet effect reversed")
}

// mark advances the journal entry. A failed mark leaves the entry open and is only logged.
func (s *Service) mark(ctx context.Context, entry *models.JournalEntry, status enums.JournalStatus, cause error) {
	if err := s.journal.Mark(ctx, entry.ID, status, cause); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"journal_id": entry.ID.String(),
			"status":     string(status),
		}), "journal mark failed", err)
		return
	}
	entry.Status = status
}
