package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/internal/contracts"
	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	dbtypes "github.com/ioproxxy/mkulima-express-sub000/pkg/db/types"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

// Offer is a vendor's proposal to buy a farmer's produce.
type Offer struct {
	// ContractID is chosen by the caller so retries and the escrow debit can reference it.
	// A nil id is replaced with a fresh one.
	ContractID       uuid.UUID
	ProduceID        uuid.UUID
	FarmerID         uuid.UUID
	VendorID         uuid.UUID
	QuantityKg       decimal.Decimal
	TotalPrice       decimal.Decimal
	DeliveryDeadline time.Time
	Logistics        *dbtypes.Logistics
}

// party says who may drive a transition besides an admin.
type party int

const (
	partyFarmer party = iota
	partyVendor
	partyEither
)

// ProposeContract creates a PENDING contract and moves the total price from the vendor into escrow.
func (s *Service) ProposeContract(ctx context.Context, sess *session.Session, offer Offer) (_ *models.Contract, err error) {
	started := s.now()
	defer func() { s.observe(string(contracts.EventPropose), started, err) }()

	if !sess.Valid() {
		return nil, unauthenticated()
	}
	if !sess.IsAdmin() && (sess.Role != enums.UserRoleVendor || sess.UserID != offer.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the vendor can propose a contract for itself")
	}
	if offer.ContractID == uuid.Nil {
		offer.ContractID = uuid.New()
	}

	var created *models.Contract
	err = s.serialize(ctx, offer.ContractID, func(distributed bool) error {
		if err := s.ensureNew(ctx, offer.ContractID, distributed); err != nil {
			return err
		}
		draft, vendor, err := s.draft(ctx, offer)
		if err != nil {
			return err
		}
		plan, err := contracts.Plan(draft, contracts.EventPropose)
		if err != nil {
			return err
		}
		if vendor.WalletBalance.LessThan(draft.TotalPrice) {
			return wallet.InsufficientFunds(vendor.WalletBalance, draft.TotalPrice)
		}
		next := contracts.Apply(draft, plan, s.now())
		if err := s.commit(ctx, sess, plan, &next, s.contracts.Insert); err != nil {
			return err
		}
		created = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ensureNew rejects a reused contract id. Other instances may have proposed it, so under
// the distributed lock the store is consulted as well as the local read model.
func (s *Service) ensureNew(ctx context.Context, id uuid.UUID, distributed bool) error {
	exists := pkgerrors.New(pkgerrors.CodeConflict, "contract already exists")
	if _, ok := s.cache.Contract(id); ok {
		return exists
	}
	if !distributed {
		return nil
	}
	_, err := s.contracts.Get(ctx, id)
	switch {
	case err == nil:
		return exists
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil
	default:
		return pkgerrors.StoreUnavailable(err, "contract.get")
	}
}

// draft validates the offer's parties and builds the not-yet-proposed contract.
func (s *Service) draft(ctx context.Context, offer Offer) (models.Contract, *models.User, error) {
	if offer.FarmerID == uuid.Nil || offer.VendorID == uuid.Nil {
		return models.Contract{}, nil, invalidParties("farmer and vendor are required", offer)
	}
	if offer.FarmerID == offer.VendorID {
		return models.Contract{}, nil, invalidParties("farmer and vendor must be different users", offer)
	}
	if !offer.QuantityKg.IsPositive() {
		return models.Contract{}, nil, invalidParties("quantity must be greater than zero", offer)
	}
	if offer.DeliveryDeadline.IsZero() {
		return models.Contract{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery deadline is required")
	}

	farmer, err := s.party(ctx, offer.FarmerID, enums.UserRoleFarmer, offer)
	if err != nil {
		return models.Contract{}, nil, err
	}
	vendor, err := s.party(ctx, offer.VendorID, enums.UserRoleVendor, offer)
	if err != nil {
		return models.Contract{}, nil, err
	}
	produce, err := s.produce.Get(ctx, offer.ProduceID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return models.Contract{}, nil, invalidParties("produce listing does not exist", offer)
		}
		return models.Contract{}, nil, err
	}
	if produce.FarmerID != farmer.ID {
		return models.Contract{}, nil, invalidParties("produce listing belongs to another farmer", offer)
	}

	total := offer.TotalPrice
	if total.IsZero() {
		total = produce.PricePerKg.Mul(offer.QuantityKg).Round(2)
	}
	if !total.IsPositive() {
		return models.Contract{}, nil, invalidParties("total price must be greater than zero", offer)
	}
	if !total.Round(2).Equal(total) {
		return models.Contract{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "total price must have at most two decimal places")
	}

	return models.Contract{
		ID:               offer.ContractID,
		ProduceID:        produce.ID,
		ProduceName:      produce.Name,
		FarmerID:         farmer.ID,
		VendorID:         vendor.ID,
		QuantityKg:       offer.QuantityKg,
		TotalPrice:       total,
		DeliveryDeadline: offer.DeliveryDeadline.UTC(),
		Logistics:        offer.Logistics,
	}, vendor, nil
}

func (s *Service) party(ctx context.Context, id uuid.UUID, role enums.UserRole, offer Offer) (*models.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, invalidParties("unknown "+string(role)+" "+id.String(), offer)
		}
		return nil, err
	}
	if user.Role != role {
		return nil, invalidParties(id.String()+" is not a "+string(role), offer)
	}
	return user, nil
}

// AcceptContract moves a PENDING contract to ACTIVE. Only the farmer may accept.
func (s *Service) AcceptContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventAccept, partyFarmer, func(c models.Contract) (contracts.Transition, error) {
		return contracts.Plan(c, contracts.EventAccept)
	})
}

// RejectContract cancels a PENDING contract and refunds the vendor. Only the farmer may reject.
func (s *Service) RejectContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventReject, partyFarmer, func(c models.Contract) (contracts.Transition, error) {
		return contracts.Plan(c, contracts.EventReject)
	})
}

// ConfirmDelivery moves an ACTIVE contract to DELIVERY_CONFIRMED. Only the vendor may confirm.
func (s *Service) ConfirmDelivery(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventConfirmDelivery, partyVendor, func(c models.Contract) (contracts.Transition, error) {
		return contracts.Plan(c, contracts.EventConfirmDelivery)
	})
}

// ReleaseEscrow pays the farmer from escrow. Allowed from ACTIVE or DELIVERY_CONFIRMED; only the vendor may release.
func (s *Service) ReleaseEscrow(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventReleaseEscrow, partyVendor, func(c models.Contract) (contracts.Transition, error) {
		return contracts.Plan(c, contracts.EventReleaseEscrow)
	})
}

// FinalizeContract closes a PAYMENT_RELEASED contract as COMPLETED.
func (s *Service) FinalizeContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventFinalize, partyEither, func(c models.Contract) (contracts.Transition, error) {
		return contracts.Plan(c, contracts.EventFinalize)
	})
}

// DisputeContract flags a non-terminal contract as DISPUTED, filed by the caller.
func (s *Service) DisputeContract(ctx context.Context, sess *session.Session, id uuid.UUID, reason string) (*models.Contract, error) {
	return s.transition(ctx, sess, id, contracts.EventDispute, partyEither, func(c models.Contract) (contracts.Transition, error) {
		return contracts.PlanDispute(c, reason, sess.UserID)
	})
}

// UpdateLogistics replaces the contract's logistics record. Status and history are untouched.
func (s *Service) UpdateLogistics(ctx context.Context, sess *session.Session, id uuid.UUID, logistics dbtypes.Logistics) (_ *models.Contract, err error) {
	started := s.now()
	defer func() { s.observe("update_logistics", started, err) }()

	if !sess.Valid() {
		return nil, unauthenticated()
	}
	var updated *models.Contract
	err = s.serialize(ctx, id, func(distributed bool) error {
		current, err := s.load(ctx, id, distributed)
		if err != nil {
			return err
		}
		if err := authorize(sess, current, partyEither); err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "logistics cannot change on a closed contract").
				WithDetails(map[string]any{"event": "update_logistics", "currentStatus": string(current.Status)})
		}
		next := current.Clone()
		l := logistics
		next.Logistics = &l
		if err := s.contracts.Update(ctx, &next); err != nil {
			return pkgerrors.StoreUnavailable(err, "contract.update")
		}
		s.cache.UpsertContract(next)
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) transition(ctx context.Context, sess *session.Session, id uuid.UUID, event contracts.Event, who party, plan func(models.Contract) (contracts.Transition, error)) (_ *models.Contract, err error) {
	started := s.now()
	defer func() { s.observe(string(event), started, err) }()

	if !sess.Valid() {
		return nil, unauthenticated()
	}
	var result *models.Contract
	err = s.serialize(ctx, id, func(distributed bool) error {
		current, err := s.load(ctx, id, distributed)
		if err != nil {
			return err
		}
		if err := authorize(sess, current, who); err != nil {
			return err
		}
		t, err := plan(current)
		if err != nil {
			return err
		}
		next := contracts.Apply(current, t, s.now())
		if err := s.commit(ctx, sess, t, &next, s.contracts.Update); err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// load reads the contract from the read model. Under a distributed lock another instance
// may have written since our cache saw it, so the row is refreshed from the store.
func (s *Service) load(ctx context.Context, id uuid.UUID, distributed bool) (models.Contract, error) {
	cached, ok := s.cache.Contract(id)
	if !ok {
		return models.Contract{}, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found").
			WithDetails(map[string]any{"contractId": id.String()})
	}
	if !distributed {
		return cached, nil
	}
	fresh, err := s.contracts.Get(ctx, id)
	if err != nil {
		return models.Contract{}, err
	}
	s.cache.UpsertContract(*fresh)
	return fresh.Clone(), nil
}

func authorize(sess *session.Session, c models.Contract, who party) error {
	if sess.IsAdmin() {
		return nil
	}
	var ok bool
	switch who {
	case partyFarmer:
		ok = sess.UserID == c.FarmerID
	case partyVendor:
		ok = sess.UserID == c.VendorID
	default:
		ok = c.IsParty(sess.UserID)
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you are not allowed to act on this contract").
			WithDetails(map[string]any{"contractId": c.ID.String()})
	}
	return nil
}

func unauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
}

func invalidParties(reason string, offer Offer) error {
	return pkgerrors.New(pkgerrors.CodeInvalidParties, reason).
		WithDetails(map[string]any{
			"farmerId":  offer.FarmerID.String(),
			"vendorId":  offer.VendorID.String(),
			"produceId": offer.ProduceID.String(),
		})
}
