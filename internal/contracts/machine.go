// Package contracts is the contract state machine. It is pure: it decides whether an
// event is legal for a contract and what the next contract value and wallet effect are,
// and leaves every write to the caller.
package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

// Event names a lifecycle operation.
type Event string

const (
	EventPropose         Event = "propose"
	EventAccept          Event = "accept"
	EventReject          Event = "reject"
	EventConfirmDelivery Event = "confirm_delivery"
	EventReleaseEscrow   Event = "release_escrow"
	EventFinalize        Event = "finalize"
	EventDispute         Event = "dispute"
)

type rule struct {
	from   []enums.ContractStatus
	to     enums.ContractStatus
	effect func(c models.Contract) *WalletEffect
}

var nonTerminal = []enums.ContractStatus{
	enums.ContractStatusPending,
	enums.ContractStatusActive,
	enums.ContractStatusDeliveryConfirmed,
	enums.ContractStatusPaymentReleased,
}

var rules = map[Event]rule{
	EventPropose: {
		to: enums.ContractStatusPending,
		effect: func(c models.Contract) *WalletEffect {
			return &WalletEffect{Party: enums.UserRoleVendor, UserID: c.VendorID, Delta: c.TotalPrice.Neg(), Description: "Escrow payment for " + c.ProduceName}
		},
	},
	EventAccept: {
		from: []enums.ContractStatus{enums.ContractStatusPending},
		to:   enums.ContractStatusActive,
	},
	EventReject: {
		from: []enums.ContractStatus{enums.ContractStatusPending},
		to:   enums.ContractStatusCancelled,
		effect: func(c models.Contract) *WalletEffect {
			return &WalletEffect{Party: enums.UserRoleVendor, UserID: c.VendorID, Delta: c.TotalPrice, Description: "Escrow refund for " + c.ProduceName}
		},
	},
	EventConfirmDelivery: {
		from: []enums.ContractStatus{enums.ContractStatusActive},
		to:   enums.ContractStatusDeliveryConfirmed,
	},
	EventReleaseEscrow: {
		from: []enums.ContractStatus{enums.ContractStatusActive, enums.ContractStatusDeliveryConfirmed},
		to:   enums.ContractStatusPaymentReleased,
		effect: func(c models.Contract) *WalletEffect {
			return &WalletEffect{Party: enums.UserRoleFarmer, UserID: c.FarmerID, Delta: c.TotalPrice, Description: "Payment received for " + c.ProduceName}
		},
	},
	EventFinalize: {
		from: []enums.ContractStatus{enums.ContractStatusPaymentReleased},
		to:   enums.ContractStatusCompleted,
	},
	EventDispute: {
		from: nonTerminal,
		to:   enums.ContractStatusDisputed,
	},
}

// WalletEffect is the balance change a transition requires.
type WalletEffect struct {
	Party       enums.UserRole
	UserID      uuid.UUID
	Delta       decimal.Decimal
	Description string
}

// Dispute carries the data recorded by EventDispute.
type Dispute struct {
	Reason  string
	FiledBy uuid.UUID
}

// Transition is a validated plan for moving a contract to its next status.
type Transition struct {
	Event   Event
	From    enums.ContractStatus
	To      enums.ContractStatus
	Effect  *WalletEffect
	Dispute *Dispute
}

// Plan checks event against the contract's current status. A zero Status means the
// contract does not exist yet and only EventPropose is legal.
func Plan(c models.Contract, event Event) (Transition, error) {
	r, ok := rules[event]
	if !ok {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown contract event %q", event))
	}
	if event == EventPropose {
		if c.Status != "" {
			return Transition{}, InvalidTransition(event, c.Status, r.to)
		}
		if !c.TotalPrice.IsPositive() {
			return Transition{}, pkgerrors.New(pkgerrors.CodeInvalidParties, "total price must be greater than zero")
		}
	} else if !allowed(r.from, c.Status) {
		return Transition{}, InvalidTransition(event, c.Status, r.to)
	}
	t := Transition{Event: event, From: c.Status, To: r.to}
	if r.effect != nil {
		t.Effect = r.effect(c)
	}
	return t, nil
}

// PlanDispute is Plan for EventDispute with the reason and filer attached.
func PlanDispute(c models.Contract, reason string, filedBy uuid.UUID) (Transition, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason is required")
	}
	t, err := Plan(c, EventDispute)
	if err != nil {
		return Transition{}, err
	}
	t.Dispute = &Dispute{Reason: reason, FiledBy: filedBy}
	return t, nil
}

// Apply returns the contract after t. c is not modified.
func Apply(c models.Contract, t Transition, now time.Time) models.Contract {
	next := c.Clone()
	next.Status = t.To
	next.StatusHistory = c.StatusHistory.Append(statusEntry(t.To, now))
	if t.Event == EventReleaseEscrow {
		at := now
		next.PaymentDate = &at
	}
	if t.Dispute != nil {
		reason := t.Dispute.Reason
		filedBy := t.Dispute.FiledBy
		next.DisputeReason = &reason
		next.DisputeFiledBy = &filedBy
	}
	return next
}

// InvalidTransition builds the typed guard-violation error.
func InvalidTransition(event Event, current, target enums.ContractStatus) error {
	from := string(current)
	if from == "" {
		from = "NONE"
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a contract in status %s", strings.ReplaceAll(string(event), "_", " "), from)).
		WithDetails(map[string]any{
			"event":         string(event),
			"currentStatus": from,
			"targetStatus":  string(target),
		})
}

func allowed(from []enums.ContractStatus, status enums.ContractStatus) bool {
	for _, candidate := range from {
		if candidate == status {
			return true
		}
	}
	return false
}
