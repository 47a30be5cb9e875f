package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/api/middleware"
	"github.com/ioproxxy/mkulima-express-sub000/api/responses"
	"github.com/ioproxxy/mkulima-express-sub000/api/validators"
	"github.com/ioproxxy/mkulima-express-sub000/internal/escrow"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

const contractIDParam = "contractId"

func ContractList(svc contractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Contracts(middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow.FromModels(rows))
	}
}

func ContractDetail(svc contractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Contract(middleware.SessionFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow.FromModel(*row))
	}
}

// ContractPropose places a vendor's offer and escrows its total.
func ContractPropose(svc contractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body escrow.ProposeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
			return
		}
		row, err := svc.ProposeContract(r.Context(), sess, body.Offer(sess.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, escrow.FromModel(*row))
	}
}

type contractAction func(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Contract, error)

// ContractTransition serves the body-less lifecycle endpoints (accept, release, ...).
func ContractTransition(action contractAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithContractID(ctx, id.String())
		}
		row, err := action(ctx, middleware.SessionFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow.FromModel(*row))
	}
}

func ContractDispute(svc contractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body escrow.DisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.DisputeContract(r.Context(), middleware.SessionFromContext(r.Context()), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow.FromModel(*row))
	}
}

func ContractLogistics(svc contractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body escrow.LogisticsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.UpdateLogistics(r.Context(), middleware.SessionFromContext(r.Context()), id, body.Logistics())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, escrow.FromModel(*row))
	}
}
