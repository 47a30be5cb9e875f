package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/metrics"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/realtime"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/security"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/types"
)

type testApp struct {
	handler http.Handler
	feed    *realtime.LocalFeed
}

type envelope[T any] struct {
	Data  T              `json:"data"`
	Error types.APIError `json:"error"`
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "mkulima-test", ExpirationMinutes: 30},
	}
	logg := logger.Nop()

	feed := realtime.NewLocalFeed(8)
	t.Cleanup(func() { _ = feed.Close() })
	st := store.NewTestStore(t, store.Options{Feed: feed})
	cache := readmodel.New()
	require.NoError(t, cache.Load(context.Background(), st))

	hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	sessions, err := session.NewManager(session.NewMemoryStore(), cfg.JWT.AccessTokenTTL())
	require.NoError(t, err)

	userSvc, err := users.NewService(st.Users, cache, hasher, logg)
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.ServiceParams{Users: userSvc, Verifier: hasher, SessionManager: sessions, JWTConfig: cfg.JWT})
	require.NoError(t, err)
	walletSvc, err := wallet.NewService(st.Users, st.Transactions, cache, logg)
	require.NoError(t, err)
	produceSvc, err := produce.NewService(st.Produce, cache, logg)
	require.NoError(t, err)
	messageSvc, err := messages.NewService(st.Messages, st, cache, logg)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	escrowSvc, err := escrow.NewService(escrow.Deps{
		Contracts: st.Contracts,
		Users:     st.Users,
		Produce:   st.Produce,
		Journal:   st.Journal,
		Wallet:    walletSvc,
		Cache:     cache,
		Metrics:   metrics.NewEscrowMetrics(reg),
		Logger:    logg,
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, Dependencies{
		Sessions:    sessions,
		DB:          pingFunc(func(context.Context) error { return nil }),
		CacheLoaded: cache.Loaded,
		Gatherer:    reg,
		Auth:        authSvc,
		Users:       userSvc,
		Produce:     produceSvc,
		Contracts:   escrowSvc,
		Messages:    messageSvc,
		Wallet:      walletSvc,
	})
	return &testApp{handler: handler, feed: feed}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testApp) signUp(t *testing.T, name, email, role string) (string, users.UserDTO) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{
		"name": name, "email": email, "password": "sup3r-secret", "role": role, "location": "Nakuru",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": email, "password": "sup3r-secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[auth.LoginResponse](t, rec).Data
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken, *login.User
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Mkulima-Env"))

	rec = app.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/api/v1/contracts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[any](t, rec).Error.Code)
}

func TestEscrowLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	farmerToken, farmer := app.signUp(t, "Wanjiru", "wanjiru@mkulima.test", "farmer")
	vendorToken, _ := app.signUp(t, "Otieno Grocers", "otieno@mkulima.test", "VENDOR")

	rec := app.do(t, http.MethodPost, "/api/v1/produce", farmerToken, map[string]any{
		"name": "Maize", "category": "grain", "quantityKg": "500", "pricePerKg": "30",
		"harvestDate": time.Now().UTC().AddDate(0, 0, -2),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[produce.ProduceDTO](t, rec).Data

	rec = app.do(t, http.MethodPost, "/api/v1/wallet/deposit", vendorToken, map[string]any{"amount": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1000.00", decode[wallet.AdjustmentDTO](t, rec).Data.WalletBalance)

	rec = app.do(t, http.MethodPost, "/api/v1/contracts", vendorToken, map[string]any{
		"produceId": listing.ID, "farmerId": farmer.ID, "quantityKg": "10", "totalPrice": "300",
		"deliveryDeadline": time.Now().UTC().AddDate(0, 0, 10),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contract := decode[escrow.ContractDTO](t, rec).Data
	assert.Equal(t, "PENDING", string(contract.Status))
	base := "/api/v1/contracts/" + contract.ID.String()

	rec = app.do(t, http.MethodPost, base+"/confirm-delivery", vendorToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[any](t, rec).Error.Code)

	rec = app.do(t, http.MethodPost, base+"/accept", vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	steps := []struct {
		path, token, status string
	}{
		{"/accept", farmerToken, "ACTIVE"},
		{"/confirm-delivery", vendorToken, "DELIVERY_CONFIRMED"},
		{"/release", vendorToken, "PAYMENT_RELEASED"},
		{"/finalize", farmerToken, "COMPLETED"},
	}
	for _, step := range steps {
		rec = app.do(t, http.MethodPost, base+step.path, step.token, nil)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
		assert.Equal(t, step.status, string(decode[escrow.ContractDTO](t, rec).Data.Status))
	}

	rec = app.do(t, http.MethodGet, "/api/v1/users/me", vendorToken, nil)
	assert.Equal(t, "700.00", decode[users.UserDTO](t, rec).Data.WalletBalance)
	rec = app.do(t, http.MethodGet, "/api/v1/users/me", farmerToken, nil)
	assert.Equal(t, "300.00", decode[users.UserDTO](t, rec).Data.WalletBalance)

	rec = app.do(t, http.MethodGet, "/api/v1/wallet/transactions", farmerToken, nil)
	farmerTxns := decode[[]wallet.TransactionDTO](t, rec).Data
	require.Len(t, farmerTxns, 1)
	assert.Equal(t, "CREDIT", string(farmerTxns[0].Direction))
	assert.Equal(t, contract.ID, *farmerTxns[0].RelatedContractID)

	rec = app.do(t, http.MethodGet, base, farmerToken, nil)
	history := decode[escrow.ContractDTO](t, rec).Data.StatusHistory
	assert.Len(t, history, 5)

	rec = app.do(t, http.MethodPost, base+"/dispute", farmerToken, map[string]any{"reason": "late"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMessagesAndLogistics(t *testing.T) {
	app := newTestApp(t)
	farmerToken, farmer := app.signUp(t, "Achieng", "achieng@mkulima.test", "FARMER")
	vendorToken, _ := app.signUp(t, "Mama Mboga", "mboga@mkulima.test", "VENDOR")
	outsiderToken, _ := app.signUp(t, "Kamau", "kamau@mkulima.test", "VENDOR")

	rec := app.do(t, http.MethodPost, "/api/v1/produce", farmerToken, map[string]any{
		"name": "Sukuma", "quantityKg": "80", "pricePerKg": "25", "harvestDate": time.Now().UTC(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[produce.ProduceDTO](t, rec).Data

	app.do(t, http.MethodPost, "/api/v1/wallet/deposit", vendorToken, map[string]any{"amount": "500"})
	rec = app.do(t, http.MethodPost, "/api/v1/contracts", vendorToken, map[string]any{
		"produceId": listing.ID, "farmerId": farmer.ID, "quantityKg": "4",
		"deliveryDeadline": time.Now().UTC().AddDate(0, 0, 3),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contract := decode[escrow.ContractDTO](t, rec).Data
	assert.Equal(t, "100.00", contract.TotalPrice)
	base := "/api/v1/contracts/" + contract.ID.String()

	rec = app.do(t, http.MethodPost, base+"/messages", farmerToken, map[string]any{"body": "Pickup at 8am?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, base+"/messages", vendorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	thread := decode[[]messages.MessageDTO](t, rec).Data
	require.Len(t, thread, 1)
	assert.Equal(t, "Pickup at 8am?", thread[0].Body)

	rec = app.do(t, http.MethodGet, base+"/messages", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPut, base+"/logistics", vendorToken, map[string]any{"carrier": "Sendy", "trackingNumber": "SND-42"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[escrow.ContractDTO](t, rec).Data
	require.NotNil(t, updated.Logistics)
	assert.Equal(t, "Sendy", updated.Logistics.Carrier)
	assert.Equal(t, "PENDING", string(updated.Status))
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signUp(t, "Njeri", "njeri@mkulima.test", "FARMER")

	rec := app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	app := newTestApp(t)
	token, user := app.signUp(t, "Wafula", "wafula@mkulima.test", "FARMER")

	rec := app.do(t, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"userId": user.ID, "amount": "10", "description": "manual",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/v1/users/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{
		"name": "Root", "email": "root@mkulima.test", "password": "sup3r-secret", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMessageStreamDeliversNewMessages(t *testing.T) {
	app := newTestApp(t)
	farmerToken, farmer := app.signUp(t, "Chebet", "chebet@mkulima.test", "FARMER")
	vendorToken, _ := app.signUp(t, "Soko Fresh", "soko@mkulima.test", "VENDOR")

	rec := app.do(t, http.MethodPost, "/api/v1/produce", farmerToken, map[string]any{
		"name": "Avocado", "quantityKg": "200", "pricePerKg": "40", "harvestDate": time.Now().UTC(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[produce.ProduceDTO](t, rec).Data
	app.do(t, http.MethodPost, "/api/v1/wallet/deposit", vendorToken, map[string]any{"amount": "400"})
	rec = app.do(t, http.MethodPost, "/api/v1/contracts", vendorToken, map[string]any{
		"produceId": listing.ID, "farmerId": farmer.ID, "quantityKg": "5",
		"deliveryDeadline": time.Now().UTC().AddDate(0, 0, 7),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contract := decode[escrow.ContractDTO](t, rec).Data
	base := "/api/v1/contracts/" + contract.ID.String() + "/messages"

	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+base+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+vendorToken)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return app.feed.SubscriberCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	rec = app.do(t, http.MethodPost, base, farmerToken, map[string]any{"body": "Avocados packed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[messages.MessageDTO](t, rec).Data

	reader := bufio.NewReader(resp.Body)
	var frame []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" && len(frame) > 0 {
			break
		}
		if line != "" {
			frame = append(frame, line)
		}
	}
	require.Len(t, frame, 3)
	assert.Equal(t, "id: "+sent.ID.String(), frame[0])
	assert.Equal(t, "event: message", frame[1])

	var streamed messages.MessageDTO
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame[2], "data: ")), &streamed))
	assert.Equal(t, "Avocados packed", streamed.Body)
	assert.Equal(t, farmer.ID, streamed.SenderID)
}
