package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ioproxxy/mkulima-express-sub000/api/responses"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/config"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

const envHeader = "X-Mkulima-Env"

// Pinger is any dependency with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyCheck names one dependency for the readiness probe. A nil Pinger is skipped.
type ReadyCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every configured dependency answers and the read
// model has been loaded.
func HealthReady(cfg *config.Config, logg *logger.Logger, cacheLoaded func() bool, checks ...ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]any{}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				failed[check.Name] = err.Error()
			}
		}
		if cacheLoaded != nil && !cacheLoaded() {
			failed["read_model"] = "not loaded"
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStoreUnavailable, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
