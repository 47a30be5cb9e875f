package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// TransactionDTO is the transport shape of a ledger entry.
type TransactionDTO struct {
	ID                uuid.UUID                  `json:"id"`
	UserID            uuid.UUID                  `json:"userId"`
	Amount            string                     `json:"amount"`
	Direction         enums.TransactionDirection `json:"direction"`
	Description       string                     `json:"description"`
	Date              time.Time                  `json:"date"`
	RelatedContractID *uuid.UUID                 `json:"relatedContractId,omitempty"`
}

// AmountRequest is the body of a deposit or withdrawal.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RecordRequest is an administrative ledger entry.
type RecordRequest struct {
	UserID            uuid.UUID                  `json:"userId" validate:"required"`
	Amount            decimal.Decimal            `json:"amount"`
	Direction         enums.TransactionDirection `json:"direction,omitempty"`
	Description       string                     `json:"description" validate:"required,max=240"`
	Date              *time.Time                 `json:"date,omitempty"`
	RelatedContractID *uuid.UUID                 `json:"relatedContractId,omitempty"`
}

// AdjustmentDTO reports the new balance along with the entry that produced it.
type AdjustmentDTO struct {
	WalletBalance string         `json:"walletBalance"`
	Transaction   TransactionDTO `json:"transaction"`
}

func FromModel(t models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                t.ID,
		UserID:            t.UserID,
		Amount:            t.Amount.StringFixed(2),
		Direction:         t.Direction,
		Description:       t.Description,
		Date:              t.Date,
		RelatedContractID: t.RelatedContractID,
	}
}

func FromModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func FromAdjustment(a *Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		WalletBalance: a.User.WalletBalance.StringFixed(2),
		Transaction:   FromModel(a.Transaction),
	}
}

// Model converts the request into a ledger row.
func (r RecordRequest) Model() models.Transaction {
	row := models.Transaction{
		UserID:            r.UserID,
		Amount:            r.Amount,
		Direction:         r.Direction,
		Description:       r.Description,
		RelatedContractID: r.RelatedContractID,
	}
	if r.Date != nil {
		row.Date = r.Date.UTC()
	}
	return row
}
