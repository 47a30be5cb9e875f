package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one chat entry scoped to a contract.
type Message struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContractID uuid.UUID `gorm:"column:contract_id;type:uuid;not null;index" json:"contractId"`
	SenderID   uuid.UUID `gorm:"column:sender_id;type:uuid;not null" json:"senderId"`
	Body       string    `gorm:"column:body;type:text;not null" json:"body"`
	Timestamp  time.Time `gorm:"column:sent_at;not null" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
