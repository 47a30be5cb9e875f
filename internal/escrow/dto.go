package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	dbtypes "github.com/ioproxxy/mkulima-express-sub000/pkg/db/types"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// ContractDTO is the transport shape of a contract.
type ContractDTO struct {
	ID               uuid.UUID             `json:"id"`
	ProduceID        uuid.UUID             `json:"produceId"`
	ProduceName      string                `json:"produceName"`
	FarmerID         uuid.UUID             `json:"farmerId"`
	VendorID         uuid.UUID             `json:"vendorId"`
	QuantityKg       string                `json:"quantityKg"`
	TotalPrice       string                `json:"totalPrice"`
	DeliveryDeadline time.Time             `json:"deliveryDeadline"`
	PaymentDate      *time.Time            `json:"paymentDate,omitempty"`
	Status           enums.ContractStatus  `json:"status"`
	StatusHistory    dbtypes.StatusHistory `json:"statusHistory"`
	Dispute          *DisputeDTO           `json:"dispute,omitempty"`
	Logistics        *dbtypes.Logistics    `json:"logistics,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

type DisputeDTO struct {
	Reason  string     `json:"reason"`
	FiledBy *uuid.UUID `json:"filedBy,omitempty"`
}

// ProposeRequest is the vendor's offer body. VendorID defaults to the caller.
type ProposeRequest struct {
	ID               *uuid.UUID         `json:"id,omitempty"`
	ProduceID        uuid.UUID          `json:"produceId" validate:"required"`
	FarmerID         uuid.UUID          `json:"farmerId" validate:"required"`
	VendorID         *uuid.UUID         `json:"vendorId,omitempty"`
	QuantityKg       decimal.Decimal    `json:"quantityKg"`
	TotalPrice       decimal.Decimal    `json:"totalPrice"`
	DeliveryDeadline time.Time          `json:"deliveryDeadline" validate:"required"`
	Logistics        *dbtypes.Logistics `json:"logistics,omitempty"`
}

type DisputeRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type LogisticsRequest struct {
	Carrier        string     `json:"carrier" validate:"max=120"`
	TrackingNumber string     `json:"trackingNumber" validate:"max=120"`
	PickupDate     *time.Time `json:"pickupDate,omitempty"`
	Notes          string     `json:"notes" validate:"max=2000"`
}

// Offer builds the orchestrator input; the caller becomes the vendor when none is named.
func (r ProposeRequest) Offer(caller uuid.UUID) Offer {
	offer := Offer{
		ProduceID:        r.ProduceID,
		FarmerID:         r.FarmerID,
		VendorID:         caller,
		QuantityKg:       r.QuantityKg,
		TotalPrice:       r.TotalPrice,
		DeliveryDeadline: r.DeliveryDeadline.UTC(),
		Logistics:        r.Logistics,
	}
	if r.ID != nil {
		offer.ContractID = *r.ID
	}
	if r.VendorID != nil {
		offer.VendorID = *r.VendorID
	}
	return offer
}

func (r LogisticsRequest) Logistics() dbtypes.Logistics {
	return dbtypes.Logistics{
		Carrier:        r.Carrier,
		TrackingNumber: r.TrackingNumber,
		PickupDate:     r.PickupDate,
		Notes:          r.Notes,
	}
}

func FromModel(c models.Contract) ContractDTO {
	dto := ContractDTO{
		ID:               c.ID,
		ProduceID:        c.ProduceID,
		ProduceName:      c.ProduceName,
		FarmerID:         c.FarmerID,
		VendorID:         c.VendorID,
		QuantityKg:       c.QuantityKg.String(),
		TotalPrice:       c.TotalPrice.StringFixed(2),
		DeliveryDeadline: c.DeliveryDeadline,
		PaymentDate:      c.PaymentDate,
		Status:           c.Status,
		StatusHistory:    c.StatusHistory,
		Logistics:        c.Logistics,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if dto.StatusHistory == nil {
		dto.StatusHistory = dbtypes.StatusHistory{}
	}
	if c.DisputeReason != nil {
		dto.Dispute = &DisputeDTO{Reason: *c.DisputeReason, FiledBy: c.DisputeFiledBy}
	}
	return dto
}

func FromModels(rows []models.Contract) []ContractDTO {
	out := make([]ContractDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
