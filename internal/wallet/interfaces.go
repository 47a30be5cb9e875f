package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

type userStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Increment(ctx context.Context, id uuid.UUID, column string, delta decimal.Decimal, floor *decimal.Decimal) (*models.User, bool, error)
}

type transactionStore interface {
	Insert(ctx context.Context, row *models.Transaction) error
}

// cacheSink is the slice of the read model a balance change has to patch.
type cacheSink interface {
	UpsertUser(u models.User)
	PrependTransaction(t models.Transaction)
	TransactionsFor(userID uuid.UUID) []models.Transaction
}
