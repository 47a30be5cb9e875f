package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// JournalEntry is the write-ahead record of one money-moving escrow operation.
type JournalEntry struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ContractID   uuid.UUID           `gorm:"column:contract_id;type:uuid;not null;index"`
	Operation    string              `gorm:"column:operation;type:text;not null"`
	WalletUserID *uuid.UUID          `gorm:"column:wallet_user_id;type:uuid"`
	WalletDelta  decimal.Decimal     `gorm:"column:wallet_delta;type:numeric(18,2);not null;default:0"`
	Status       enums.JournalStatus `gorm:"column:status;type:text;not null;index"`
	LastError    *string             `gorm:"column:last_error;type:text"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (JournalEntry) TableName() string { return "escrow_journal" }

func (j *JournalEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&j.ID)
	return nil
}
