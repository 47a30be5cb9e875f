package controllers

import (
	"net/http"

	"github.com/ioproxxy/mkulima-express-sub000/api/middleware"
	"github.com/ioproxxy/mkulima-express-sub000/api/responses"
	"github.com/ioproxxy/mkulima-express-sub000/api/validators"
	"github.com/ioproxxy/mkulima-express-sub000/internal/auth"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

// AuthLogin exchanges email and password for a bearer token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout ends the session behind the presented token. Runs behind middleware.Auth.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), middleware.SessionFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
