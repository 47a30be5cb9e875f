// Package produce holds the listing passthroughs. Listings are read straight from the
// ledger store; they are not part of the read model.
package produce

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

type produceStore interface {
	List(ctx context.Context) ([]models.Produce, error)
	ListBy(ctx context.Context, column string, value any) ([]models.Produce, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Produce, error)
	Insert(ctx context.Context, row *models.Produce) error
	Patch(ctx context.Context, id uuid.UUID, columns map[string]any) (*models.Produce, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type contractLister interface {
	Contracts() []models.Contract
}

type Service struct {
	store     produceStore
	contracts contractLister
	logg      *logger.Logger
}

func NewService(store produceStore, contracts contractLister, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("produce store required")
	}
	if contracts == nil {
		return nil, fmt.Errorf("contract lister required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, contracts: contracts, logg: logg}, nil
}

// List returns all listings newest harvest first, or one farmer's when farmerID is set.
func (s *Service) List(ctx context.Context, farmerID *uuid.UUID) ([]models.Produce, error) {
	if farmerID != nil {
		return s.store.ListBy(ctx, "farmer_id", *farmerID)
	}
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Produce, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, sess *session.Session, req CreateRequest) (*models.Produce, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	farmerID := sess.UserID
	switch {
	case sess.IsAdmin():
		if req.FarmerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmerId is required for admin listings")
		}
		farmerID = *req.FarmerID
	case sess.Role != enums.UserRoleFarmer:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can list produce")
	case req.FarmerID != nil && *req.FarmerID != sess.UserID:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list produce for another farmer")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateAmounts(&req.QuantityKg, &req.PricePerKg); err != nil {
		return nil, err
	}
	if req.HarvestDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "harvestDate is required")
	}

	row := req.toModel(farmerID)
	if err := s.store.Insert(ctx, row); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"produce_id": row.ID.String(),
		"farmer_id":  farmerID.String(),
	}), "produce listed")
	return row, nil
}

func (s *Service) Update(ctx context.Context, sess *session.Session, id uuid.UUID, req UpdateRequest) (*models.Produce, error) {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
	}
	if err := validateAmounts(req.QuantityKg, req.PricePerKg); err != nil {
		return nil, err
	}
	return s.store.Patch(ctx, id, req.columns())
}

// Delete removes a listing that no open contract refers to.
func (s *Service) Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return err
	}
	for _, c := range s.contracts.Contracts() {
		if c.ProduceID == id && !c.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing is referenced by an open contract").
				WithDetails(map[string]any{"contractId": c.ID.String()})
		}
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Produce, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin() && row.FarmerID != sess.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another farmer")
	}
	return row, nil
}

func validateAmounts(quantity, price *decimal.Decimal) error {
	if quantity != nil && !quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantityKg must be greater than zero")
	}
	if price != nil {
		if !price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "pricePerKg must be greater than zero")
		}
		if !price.Round(2).Equal(*price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "pricePerKg must have at most two decimal places")
		}
	}
	return nil
}
