package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// User is a marketplace participant and the owner of one wallet.
type User struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email         string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name          string          `gorm:"column:name;type:text;not null"`
	Phone         *string         `gorm:"column:phone;type:text"`
	Role          enums.UserRole  `gorm:"column:role;type:text;not null"`
	Location      string          `gorm:"column:location;type:text;not null;default:''"`
	Rating        float64         `gorm:"column:rating;not null;default:0"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(18,2);not null;default:0"`
	PasswordHash  string          `gorm:"column:password_hash;type:text;not null;default:''"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
