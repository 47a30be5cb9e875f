package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/ioproxxy/mkulima-express-sub000/pkg/db/types"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// Contract is a trade between one farmer and one vendor, backed by escrowed funds.
type Contract struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProduceID        uuid.UUID             `gorm:"column:produce_id;type:uuid;not null;index"`
	ProduceName      string                `gorm:"column:produce_name;type:text;not null"`
	FarmerID         uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index"`
	VendorID         uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index"`
	QuantityKg       decimal.Decimal       `gorm:"column:quantity_kg;type:numeric(14,3);not null"`
	TotalPrice       decimal.Decimal       `gorm:"column:total_price;type:numeric(18,2);not null"`
	DeliveryDeadline time.Time             `gorm:"column:delivery_deadline;not null"`
	PaymentDate      *time.Time            `gorm:"column:payment_date"`
	Status           enums.ContractStatus  `gorm:"column:status;type:text;not null"`
	StatusHistory    dbtypes.StatusHistory `gorm:"column:status_history;type:jsonb;not null"`
	DisputeReason    *string               `gorm:"column:dispute_reason;type:text"`
	DisputeFiledBy   *uuid.UUID            `gorm:"column:dispute_filed_by;type:uuid"`
	Logistics        *dbtypes.Logistics    `gorm:"column:logistics;type:jsonb"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Contract) TableName() string { return "contracts" }

func (c *Contract) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsParty reports whether userID is the farmer or the vendor of the contract.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	return userID != uuid.Nil && (c.FarmerID == userID || c.VendorID == userID)
}

// Clone returns a deep copy so cached rows are never shared with callers.
func (c Contract) Clone() Contract {
	out := c
	out.StatusHistory = append(dbtypes.StatusHistory(nil), c.StatusHistory...)
	if c.PaymentDate != nil {
		at := *c.PaymentDate
		out.PaymentDate = &at
	}
	if c.DisputeReason != nil {
		reason := *c.DisputeReason
		out.DisputeReason = &reason
	}
	if c.DisputeFiledBy != nil {
		by := *c.DisputeFiledBy
		out.DisputeFiledBy = &by
	}
	if c.Logistics != nil {
		l := *c.Logistics
		if l.PickupDate != nil {
			pickup := *l.PickupDate
			l.PickupDate = &pickup
		}
		out.Logistics = &l
	}
	return out
}
