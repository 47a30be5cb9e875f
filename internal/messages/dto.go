package messages

import (
	"time"

	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

// MessageDTO is a contract chat message as returned to clients.
type MessageDTO struct {
	ID         uuid.UUID `json:"id"`
	ContractID uuid.UUID `json:"contractId"`
	SenderID   uuid.UUID `json:"senderId"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
}

// SendRequest is the payload for posting a message on a contract.
type SendRequest struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Body string     `json:"body" validate:"required,max=2000"`
}

func FromModel(m models.Message) MessageDTO {
	return MessageDTO{
		ID:         m.ID,
		ContractID: m.ContractID,
		SenderID:   m.SenderID,
		Body:       m.Body,
		Timestamp:  m.Timestamp,
	}
}

func FromModels(rows []models.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, FromModel(m))
	}
	return out
}
