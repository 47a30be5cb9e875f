package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

type userStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListBy(ctx context.Context, column string, value any) ([]models.User, error)
	Insert(ctx context.Context, row *models.User) error
	Patch(ctx context.Context, id uuid.UUID, columns map[string]any) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type userCache interface {
	Users() []models.User
	User(id uuid.UUID) (models.User, bool)
	UpsertUser(u models.User)
	RemoveUser(id uuid.UUID)
	ContractsFor(userID uuid.UUID) []models.Contract
}

type passwordHasher interface {
	Hash(password string) (string, error)
}
