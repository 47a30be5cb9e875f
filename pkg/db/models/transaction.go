package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// Transaction is an immutable wallet ledger entry.
type Transaction struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Amount            decimal.Decimal            `gorm:"column:amount;type:numeric(18,2);not null"`
	Direction         enums.TransactionDirection `gorm:"column:direction;type:text;not null"`
	Description       string                     `gorm:"column:description;type:text;not null"`
	Date              time.Time                  `gorm:"column:date;not null"`
	RelatedContractID *uuid.UUID                 `gorm:"column:related_contract_id;type:uuid;index"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	return nil
}
