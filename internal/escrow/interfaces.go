package escrow

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/lock"
)

type contractStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	Insert(ctx context.Context, row *models.Contract) error
	Update(ctx context.Context, row *models.Contract) error
}

type userReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type produceReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Produce, error)
}

type journal interface {
	Begin(ctx context.Context, entry *models.JournalEntry) error
	Mark(ctx context.Context, id uuid.UUID, status enums.JournalStatus, cause error) error
}

type walletAdjuster interface {
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, description string, relatedContractID *uuid.UUID) (*wallet.Adjustment, error)
}

type contractCache interface {
	Contract(id uuid.UUID) (models.Contract, bool)
	Contracts() []models.Contract
	ContractsFor(userID uuid.UUID) []models.Contract
	UpsertContract(contract models.Contract)
}

// distributedLock is satisfied by lock.RedisLock.
type distributedLock interface {
	Acquire(ctx context.Context, key string) (*lock.Handle, error)
}
