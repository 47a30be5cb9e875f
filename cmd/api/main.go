package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/ioproxxy/mkulima-express-sub000/api/routes"
	"github.com/ioproxxy/mkulima-express-sub000/internal/auth"
	"github.com/ioproxxy/mkulima-express-sub000/internal/escrow"
	"github.com/ioproxxy/mkulima-express-sub000/internal/messages"
	"github.com/ioproxxy/mkulima-express-sub000/internal/produce"
	"github.com/ioproxxy/mkulima-express-sub000/internal/readmodel"
	"github.com/ioproxxy/mkulima-express-sub000/internal/store"
	"github.com/ioproxxy/mkulima-express-sub000/internal/users"
	"github.com/ioproxxy/mkulima-express-sub000/internal/wallet"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/config"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/lock"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/metrics"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/migrate"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/outbox"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/realtime"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/redis"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/security"
)

const (
	shutdownTimeout = 15 * time.Second
	feedBuffer      = 64
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if cfg.FeatureFlags.UseSQLite && cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.AutoMigrate(ctx); err != nil {
			return err
		}
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	}

	feed, err := newFeed(cfg, logg, redisClient)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, feed.Close()) }()

	st := store.New(dbClient.DB(), store.Options{
		Outbox: outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Feed:   feed,
		Logger: logg,
	})

	cache := readmodel.New()
	if err := cache.Load(ctx, st); err != nil {
		return err
	}
	reportOpenJournal(ctx, logg, st.Journal)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hasher := security.NewHasher(cfg.Password)
	walletSvc, err := wallet.NewService(st.Users, st.Transactions, cache, logg)
	if err != nil {
		return err
	}
	userSvc, err := users.NewService(st.Users, cache, hasher, logg)
	if err != nil {
		return err
	}
	produceSvc, err := produce.NewService(st.Produce, cache, logg)
	if err != nil {
		return err
	}
	messageSvc, err := messages.NewService(st.Messages, st, cache, logg)
	if err != nil {
		return err
	}

	deps := escrow.Deps{
		Contracts: st.Contracts,
		Users:     st.Users,
		Produce:   st.Produce,
		Journal:   st.Journal,
		Wallet:    walletSvc,
		Cache:     cache,
		Metrics:   metrics.NewEscrowMetrics(reg),
		Logger:    logg,
	}
	var sessionStore session.Store = session.NewMemoryStore()
	if redisClient != nil {
		remote, err := lock.NewRedisLock(redisClient, cfg.Escrow.LockTTL)
		if err != nil {
			return err
		}
		deps.Remote = remote
		deps.LockKey = func(id string) string { return redisClient.LockKey("contract", id) }
		sessionStore = redisClient
	}
	escrowSvc, err := escrow.NewService(deps)
	if err != nil {
		return err
	}

	sessionManager, err := session.NewManager(sessionStore, cfg.JWT.AccessTokenTTL())
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		Users:          userSvc,
		Verifier:       hasher,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := messageSvc.Listen(ctx); err != nil {
			logg.Error(ctx, "realtime message listener stopped", err)
		}
	}()

	routeDeps := routes.Dependencies{
		Sessions:    sessionManager,
		DB:          dbClient,
		CacheLoaded: cache.Loaded,
		Gatherer:    reg,
		Auth:        authSvc,
		Users:       userSvc,
		Produce:     produceSvc,
		Contracts:   escrowSvc,
		Messages:    messageSvc,
		Wallet:      walletSvc,
	}
	if redisClient != nil {
		routeDeps.Idempotency = redisClient
		routeDeps.Redis = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"realtime": cfg.FeatureFlags.RealtimeBackend,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, routeDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newFeed(cfg *config.Config, logg *logger.Logger, client *redis.Client) (realtime.Feed, error) {
	if !cfg.FeatureFlags.UsesRedisRealtime() {
		return realtime.NewLocalFeed(feedBuffer), nil
	}
	if client == nil {
		return nil, errors.New("redis realtime backend requires redis to be configured")
	}
	return realtime.NewRedisFeed(client, cfg.Escrow.RealtimeChannel, feedBuffer, logg)
}

// reportOpenJournal warns about escrow operations that stopped between their wallet and
// contract writes. They need manual reconciliation; nothing is replayed.
func reportOpenJournal(ctx context.Context, logg *logger.Logger, journal *store.Journal) {
	open, err := journal.ListOpen(ctx)
	if err != nil {
		logg.Error(ctx, "failed to scan escrow journal", err)
		return
	}
	for _, entry := range open {
		fields := map[string]any{
			"journal_id":   entry.ID.String(),
			"contract_id":  entry.ContractID.String(),
			"operation":    entry.Operation,
			"status":       string(entry.Status),
			"wallet_delta": entry.WalletDelta.StringFixed(2),
		}
		if entry.WalletUserID != nil {
			fields["wallet_user_id"] = entry.WalletUserID.String()
		}
		logg.Warn(logg.WithFields(ctx, fields), "escrow journal entry left open")
	}
}
