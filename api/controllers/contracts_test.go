package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioproxxy/mkulima-express-sub000/api/middleware"
	"github.com/ioproxxy/mkulima-express-sub000/internal/escrow"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

type stubContracts struct {
	contractService
	offer escrow.Offer
}

func (s *stubContracts) ProposeContract(_ context.Context, sess *session.Session, offer escrow.Offer) (*models.Contract, error) {
	s.offer = offer
	return &models.Contract{
		ID:         uuid.New(),
		FarmerID:   offer.FarmerID,
		VendorID:   offer.VendorID,
		QuantityKg: offer.QuantityKg,
		TotalPrice: offer.TotalPrice,
		Status:     enums.ContractStatusPending,
	}, nil
}

func withRoute(r *http.Request, sess *session.Session, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = middleware.WithSession(ctx, sess)
	}
	return r.WithContext(ctx)
}

func TestContractTransitionRejectsBadID(t *testing.T) {
	called := false
	action := func(context.Context, *session.Session, uuid.UUID) (*models.Contract, error) {
		called = true
		return nil, nil
	}
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/contracts/nope/accept", nil), nil, map[string]string{contractIDParam: "nope"})
	ContractTransition(action, logger.Nop())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestContractTransitionMapsDomainErrors(t *testing.T) {
	id := uuid.New()
	sess := &session.Session{UserID: uuid.New(), Role: enums.UserRoleFarmer, AccessID: "a"}
	var gotID uuid.UUID
	action := func(_ context.Context, s *session.Session, cid uuid.UUID) (*models.Contract, error) {
		gotID = cid
		require.Equal(t, sess, s)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot accept a contract in status ACTIVE")
	}
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/", nil), sess, map[string]string{contractIDParam: id.String()})
	ContractTransition(action, logger.Nop())(rec, req)

	assert.Equal(t, id, gotID)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TRANSITION")
}

func TestContractProposeDefaultsVendorToCaller(t *testing.T) {
	svc := &stubContracts{}
	vendor := &session.Session{UserID: uuid.New(), Role: enums.UserRoleVendor, AccessID: "a"}
	farmerID := uuid.New()
	body := `{"produceId":"` + uuid.NewString() + `","farmerId":"` + farmerID.String() +
		`","quantityKg":"10","totalPrice":"300","deliveryDeadline":"` + time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339) + `"}`

	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/contracts", strings.NewReader(body)), vendor, nil)
	ContractPropose(svc, logger.Nop())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, vendor.UserID, svc.offer.VendorID)
	assert.Equal(t, farmerID, svc.offer.FarmerID)
	assert.True(t, svc.offer.TotalPrice.Equal(decimal.NewFromInt(300)))

	var out struct {
		Data escrow.ContractDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "300.00", out.Data.TotalPrice)
	assert.NotNil(t, out.Data.StatusHistory)
}

func TestContractProposeRequiresSession(t *testing.T) {
	body := `{"produceId":"` + uuid.NewString() + `","farmerId":"` + uuid.NewString() + `","quantityKg":"1","deliveryDeadline":"2030-01-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/contracts", strings.NewReader(body)), nil, nil)
	ContractPropose(&stubContracts{}, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
