package controllers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/internal/escrow"
	"github.com/ioproxxy/mkulima-express-sub000/internal/messages"
	"github.com/ioproxxy/mkulima-express-sub000/internal/produce"
	"github.com/ioproxxy/mkulima-express-sub000/internal/users"
	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	dbtypes "github.com/ioproxxy/mkulima-express-sub000/pkg/db/types"
)

type userService interface {
	Register(ctx context.Context, sess *session.Session, req users.RegisterRequest) (*models.User, error)
	Profile(sess *session.Session) (*models.User, error)
	List(sess *session.Session) ([]models.User, error)
	UpdateProfile(ctx context.Context, sess *session.Session, req users.UpdateProfileRequest) (*models.User, error)
	Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error
}

type produceService interface {
	List(ctx context.Context, farmerID *uuid.UUID) ([]models.Produce, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Produce, error)
	Create(ctx context.Context, sess *session.Session, req produce.CreateRequest) (*models.Produce, error)
	Update(ctx context.Context, sess *session.Session, id uuid.UUID, req produce.UpdateRequest) (*models.Produce, error)
	Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error
}

type contractService interface {
	Contracts(sess *session.Session) ([]models.Contract, error)
	Contract(sess *session.Session, id uuid.UUID) (*models.Contract, error)
	ProposeContract(ctx context.Context, sess *session.Session, offer escrow.Offer) (*models.Contract, error)
	AcceptContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)
	RejectContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)
	ConfirmDelivery(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)
	ReleaseEscrow(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)
	FinalizeContract(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)
	DisputeContract(ctx context.Context, sess *session.Session, id uuid.UUID, reason string) (*models.Contract, error)
	UpdateLogistics(ctx context.Context, sess *session.Session, id uuid.UUID, logistics dbtypes.Logistics) (*models.Contract, error)
}

type messageService interface {
	List(sess *session.Session, contractID uuid.UUID) ([]models.Message, error)
	Send(ctx context.Context, sess *session.Session, contractID uuid.UUID, req messages.SendRequest) (*models.Message, error)
	Watch(ctx context.Context, sess *session.Session, contractID uuid.UUID) (*messages.Watch, error)
}

type walletService interface {
	Transactions(sess *session.Session) ([]models.Transaction, error)
	Deposit(ctx context.Context, sess *session.Session, amount decimal.Decimal) (*wallet.Adjustment, error)
	Withdraw(ctx context.Context, sess *session.Session, amount decimal.Decimal) (*wallet.Adjustment, error)
	RecordTransaction(ctx context.Context, sess *session.Session, entry models.Transaction) (*models.Transaction, error)
}
