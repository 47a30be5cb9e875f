package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ioproxxy/mkulima-express-sub000/api/controllers"
	"github.com/ioproxxy/mkulima-express-sub000/api/middleware"
	"github.com/ioproxxy/mkulima-express-sub000/internal/auth"
	"github.com/ioproxxy/mkulima-express-sub000/internal/escrow"
	"github.com/ioproxxy/mkulima-express-sub000/internal/messages"
	"github.com/ioproxxy/mkulima-express-sub000/internal/produce"
	"github.com/ioproxxy/mkulima-express-sub000/internal/users"
	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/config"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	pkgredis "github.com/ioproxxy/mkulima-express-sub000/pkg/redis"
)

// Dependencies is everything the router hands to controllers. Idempotency, Redis and
// Gatherer are optional.
type Dependencies struct {
	Sessions    session.AccessSessionChecker
	Idempotency pkgredis.IdempotencyStore
	DB          controllers.Pinger
	Redis       controllers.Pinger
	CacheLoaded func() bool
	Gatherer    prometheus.Gatherer

	Auth      auth.Service
	Users     *users.Service
	Produce   *produce.Service
	Contracts *escrow.Service
	Messages  *messages.Service
	Wallet    *wallet.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checks := []controllers.ReadyCheck{{Name: "database", Pinger: deps.DB}}
	if deps.Redis != nil {
		checks = append(checks, controllers.ReadyCheck{Name: "redis", Pinger: deps.Redis})
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.CacheLoaded, checks...))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)).Post("/users", controllers.UserRegister(deps.Users, logg))
		r.Get("/produce", controllers.ProduceList(deps.Produce, logg))
		r.Get("/produce/{produceId}", controllers.ProduceDetail(deps.Produce, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, logg))

			r.Get("/users/me", controllers.UserProfile(deps.Users, logg))
			r.Patch("/users/me", controllers.UserUpdateProfile(deps.Users, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).Get("/users", controllers.UserList(deps.Users, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).Delete("/users/{userId}", controllers.UserDelete(deps.Users, logg))

			r.Post("/produce", controllers.ProduceCreate(deps.Produce, logg))
			r.Patch("/produce/{produceId}", controllers.ProduceUpdate(deps.Produce, logg))
			r.Delete("/produce/{produceId}", controllers.ProduceDelete(deps.Produce, logg))

			r.Route("/contracts", func(r chi.Router) {
				svc := deps.Contracts
				r.Get("/", controllers.ContractList(svc, logg))
				r.Post("/", controllers.ContractPropose(svc, logg))
				r.Route("/{contractId}", func(r chi.Router) {
					r.Get("/", controllers.ContractDetail(svc, logg))
					r.Post("/accept", controllers.ContractTransition(svc.AcceptContract, logg))
					r.Post("/reject", controllers.ContractTransition(svc.RejectContract, logg))
					r.Post("/confirm-delivery", controllers.ContractTransition(svc.ConfirmDelivery, logg))
					r.Post("/release", controllers.ContractTransition(svc.ReleaseEscrow, logg))
					r.Post("/finalize", controllers.ContractTransition(svc.FinalizeContract, logg))
					r.Post("/dispute", controllers.ContractDispute(svc, logg))
					r.Put("/logistics", controllers.ContractLogistics(svc, logg))
					r.Get("/messages", controllers.MessageList(deps.Messages, logg))
					r.Post("/messages", controllers.MessageSend(deps.Messages, logg))
					r.Get("/messages/stream", controllers.MessageStream(deps.Messages, logg))
				})
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/transactions", controllers.WalletTransactions(deps.Wallet, logg))
				r.Post("/deposit", controllers.WalletDeposit(deps.Wallet, logg))
				r.Post("/withdraw", controllers.WalletWithdraw(deps.Wallet, logg))
			})

			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).Post("/transactions", controllers.TransactionRecord(deps.Wallet, logg))
		})
	})

	return r
}
