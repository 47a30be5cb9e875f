package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Produce is a farmer's listing.
type Produce struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID    uuid.UUID       `gorm:"column:farmer_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Category    string          `gorm:"column:category;type:text;not null;default:''"`
	QuantityKg  decimal.Decimal `gorm:"column:quantity_kg;type:numeric(14,3);not null"`
	PricePerKg  decimal.Decimal `gorm:"column:price_per_kg;type:numeric(18,2);not null"`
	HarvestDate time.Time       `gorm:"column:harvest_date;not null"`
	Location    string          `gorm:"column:location;type:text;not null;default:''"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Produce) TableName() string { return "produce" }

func (p *Produce) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
