package produce

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

// ProduceDTO is a listing as returned to clients.
type ProduceDTO struct {
	ID          uuid.UUID `json:"id"`
	FarmerID    uuid.UUID `json:"farmerId"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	QuantityKg  string    `json:"quantityKg"`
	PricePerKg  string    `json:"pricePerKg"`
	HarvestDate time.Time `json:"harvestDate"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRequest lists produce for the calling farmer. Admins may name the farmer.
type CreateRequest struct {
	FarmerID    *uuid.UUID      `json:"farmerId,omitempty"`
	Name        string          `json:"name" validate:"required,max=120"`
	Category    string          `json:"category" validate:"max=60"`
	QuantityKg  decimal.Decimal `json:"quantityKg"`
	PricePerKg  decimal.Decimal `json:"pricePerKg"`
	HarvestDate time.Time       `json:"harvestDate" validate:"required"`
	Location    string          `json:"location" validate:"max=120"`
	Description string          `json:"description" validate:"max=2000"`
}

// UpdateRequest patches a listing. Nil fields are left alone.
type UpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=60"`
	QuantityKg  *decimal.Decimal `json:"quantityKg,omitempty"`
	PricePerKg  *decimal.Decimal `json:"pricePerKg,omitempty"`
	HarvestDate *time.Time       `json:"harvestDate,omitempty"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=120"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
}

func FromModel(p *models.Produce) *ProduceDTO {
	if p == nil {
		return nil
	}
	return &ProduceDTO{
		ID:          p.ID,
		FarmerID:    p.FarmerID,
		Name:        p.Name,
		Category:    p.Category,
		QuantityKg:  p.QuantityKg.String(),
		PricePerKg:  p.PricePerKg.StringFixed(2),
		HarvestDate: p.HarvestDate,
		Location:    p.Location,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromModels(rows []models.Produce) []ProduceDTO {
	out := make([]ProduceDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (r CreateRequest) toModel(farmerID uuid.UUID) *models.Produce {
	return &models.Produce{
		FarmerID:    farmerID,
		Name:        r.Name,
		Category:    r.Category,
		QuantityKg:  r.QuantityKg,
		PricePerKg:  r.PricePerKg,
		HarvestDate: r.HarvestDate.UTC(),
		Location:    r.Location,
		Description: r.Description,
	}
}

func (r UpdateRequest) columns() map[string]any {
	cols := map[string]any{}
	if r.Name != nil {
		cols["name"] = *r.Name
	}
	if r.Category != nil {
		cols["category"] = *r.Category
	}
	if r.QuantityKg != nil {
		cols["quantity_kg"] = *r.QuantityKg
	}
	if r.PricePerKg != nil {
		cols["price_per_kg"] = *r.PricePerKg
	}
	if r.HarvestDate != nil {
		cols["harvest_date"] = r.HarvestDate.UTC()
	}
	if r.Location != nil {
		cols["location"] = *r.Location
	}
	if r.Description != nil {
		cols["description"] = *r.Description
	}
	return cols
}
