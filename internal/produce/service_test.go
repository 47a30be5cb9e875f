package produce

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioproxxy/mkulima-express-sub000/internal/readmodel"
	"github.com/ioproxxy/mkulima-express-sub000/internal/store"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *readmodel.Cache) {
	t.Helper()
	st := store.NewTestStore(t, store.Options{})
	cache := readmodel.New()
	svc, err := NewService(st.Produce, cache, nil)
	require.NoError(t, err)
	return svc, cache
}

func maizeRequest(harvest time.Time) CreateRequest {
	return CreateRequest{
		Name:        "Maize",
		Category:    "grain",
		QuantityKg:  decimal.NewFromInt(800),
		PricePerKg:  decimal.RequireFromString("32.50"),
		HarvestDate: harvest,
		Location:    "Kitale",
	}
}

func TestCreateAndListNewestHarvestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	farmer := &session.Session{UserID: uuid.New(), Role: enums.UserRoleFarmer}
	now := time.Now().UTC()

	_, err := svc.Create(ctx, farmer, maizeRequest(now.AddDate(0, 0, -10)))
	require.NoError(t, err)
	beans := maizeRequest(now.AddDate(0, 0, -1))
	beans.Name = "Beans"
	_, err = svc.Create(ctx, farmer, beans)
	require.NoError(t, err)

	rows, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Beans", rows[0].Name)
	assert.Equal(t, farmer.UserID, rows[1].FarmerID)

	mine, err := svc.List(ctx, &farmer.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	dto := FromModel(&rows[1])
	assert.Equal(t, "32.50", dto.PricePerKg)
}

func TestCreateRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	harvest := time.Now().UTC()

	vendor := &session.Session{UserID: uuid.New(), Role: enums.UserRoleVendor}
	_, err := svc.Create(ctx, vendor, maizeRequest(harvest))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	farmer := &session.Session{UserID: uuid.New(), Role: enums.UserRoleFarmer}
	req := maizeRequest(harvest)
	req.PricePerKg = decimal.RequireFromString("1.234")
	_, err = svc.Create(ctx, farmer, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	admin := &session.Session{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = svc.Create(ctx, admin, maizeRequest(harvest))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = maizeRequest(harvest)
	req.FarmerID = &farmer.UserID
	created, err := svc.Create(ctx, admin, req)
	require.NoError(t, err)
	assert.Equal(t, farmer.UserID, created.FarmerID)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()
	owner := &session.Session{UserID: uuid.New(), Role: enums.UserRoleFarmer}
	other := &session.Session{UserID: uuid.New(), Role: enums.UserRoleFarmer}

	listing, err := svc.Create(ctx, owner, maizeRequest(time.Now().UTC()))
	require.NoError(t, err)

	price := decimal.NewFromInt(40)
	_, err = svc.Update(ctx, other, listing.ID, UpdateRequest{PricePerKg: &price})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	updated, err := svc.Update(ctx, owner, listing.ID, UpdateRequest{PricePerKg: &price})
	require.NoError(t, err)
	assert.True(t, updated.PricePerKg.Equal(price))
	assert.Equal(t, "Maize", updated.Name)

	cache.UpsertContract(models.Contract{ID: uuid.New(), ProduceID: listing.ID, Status: enums.ContractStatusPending})
	err = svc.Delete(ctx, owner, listing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	contracts := cache.Contracts()
	closed := contracts[0]
	closed.Status = enums.ContractStatusCancelled
	cache.UpsertContract(closed)
	require.NoError(t, svc.Delete(ctx, owner, listing.ID))

	_, err = svc.Get(ctx, listing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
