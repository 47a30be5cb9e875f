package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

// Journal persists the write-ahead log of money-moving escrow operations.
type Journal struct {
	rows *Collection[models.JournalEntry]
}

func newJournal(conn *gorm.DB) *Journal {
	return &Journal{rows: newCollection(conn, "journal entry", []string{"created_at ASC", "id ASC"}, Hooks[models.JournalEntry]{})}
}

// Begin records a pending entry before any write of the operation happens.
func (j *Journal) Begin(ctx context.Context, entry *models.JournalEntry) error {
	entry.Status = enums.JournalStatusPending
	return j.rows.Insert(ctx, entry)
}

// Mark moves an entry to status, recording cause when non-nil.
func (j *Journal) Mark(ctx context.Context, id uuid.UUID, status enums.JournalStatus, cause error) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	res := j.rows.db.WithContext(ctx).Model(&models.JournalEntry{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return j.rows.mapErr(res.Error, "mark")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "journal entry not found")
	}
	return nil
}

func (j *Journal) Get(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error) {
	return j.rows.Get(ctx, id)
}

// ListOpen returns entries that never reached a final status, oldest first.
func (j *Journal) ListOpen(ctx context.Context) ([]models.JournalEntry, error) {
	var rows []models.JournalEntry
	err := j.rows.db.WithContext(ctx).
		Where("status IN ?", []enums.JournalStatus{
			enums.JournalStatusPending,
			enums.JournalStatusWalletApplied,
			enums.JournalStatusCompensationFailed,
		}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, j.rows.mapErr(err, "list open")
	}
	return rows, nil
}

// ListByContract returns the journal of one contract, oldest first.
func (j *Journal) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.JournalEntry, error) {
	return j.rows.ListBy(ctx, "contract_id", contractID)
}
