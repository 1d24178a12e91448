package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/credit-ledger/internal/api/http/handlers"
	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/config"
	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/generator"
	"github.com/spec-kit/credit-ledger/internal/observability"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/service"
	"github.com/spec-kit/credit-ledger/internal/validation"
	"go.uber.org/zap"
)

const (
	testPassword = "Str0ng!pass"
	adminEmail   = "root@gmail.com"
	userEmail    = "user@gmail.com"
)

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, req generator.Request) (*generator.Result, error) {
	return &generator.Result{Code: "package main // " + req.Language}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T, loginRate int) *fiber.App {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost, StarterCredits: 2}}
	logger := zap.NewNop()

	store := docstore.NewMemoryStore()
	locker := docstore.NewMutexLocker(2 * time.Second)
	identities := repository.NewIdentityRepository(store, locker, cfg.Auth.StarterCredits)
	settings := repository.NewSettingsRepository(store, locker)
	accessRepo := repository.NewAccessRequestRepository(store, locker)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	v := validation.New("gmail.com")
	tokens := auth.NewTokenManager("test-secret", time.Hour, time.Minute)

	accounts := service.NewAccountService(cfg, service.AccountDependencies{
		Identities: identities, Settings: settings, AccessRequests: accessRepo,
		Validator: v, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	twoFactor := service.NewTwoFactorService(identities, v, logger)
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		Identities: identities, TwoFactor: twoFactor, Tokens: tokens, Validator: v, Logger: logger,
	})
	ledger := service.NewLedgerService(service.LedgerDependencies{
		Identities: identities, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	access := service.NewAccessService(service.AccessDependencies{
		Identities: identities, AccessRequests: accessRepo, Validator: v, Dispatcher: dispatcher, Logger: logger,
	})
	purchases := service.NewPurchaseService(repository.NewPurchaseRequestRepository(store, locker), v, logger)
	analytics := service.NewAnalyticsService(repository.NewAnalyticsRepository(store, locker), dispatcher, logger)
	analytics.RegisterHandlers()
	generation := service.NewGenerationService(service.GenerationDependencies{
		Identities: identities, Settings: settings, Ledger: ledger, Generator: stubGenerator{},
		Validator: v, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("credit-ledger", "test", map[string]handlers.Pinger{
			"store": handlers.PingFunc(func(ctx context.Context) error {
				_, err := store.Read(ctx, repository.SettingsDocument)
				return err
			}),
		}),
		Auth: handlers.NewAuthHandler(accounts, authService),
		Me: handlers.NewMeHandler(handlers.MeDependencies{
			Auth: authService, TwoFactor: twoFactor, Ledger: ledger, Access: access,
			Purchases: purchases, Generation: generation,
		}),
		Admin: handlers.NewAdminHandler(handlers.AdminDependencies{
			Accounts: accounts, Ledger: ledger, Access: access, Purchases: purchases,
			Settings: service.NewSettingsService(settings, logger), Analytics: analytics,
		}),
		AuthMiddleware:     auth.NewAuthMiddleware(tokens),
		Metrics:            metrics,
		LoginRatePerMinute: loginRate,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

type loginData struct {
	Stage string `json:"stage"`
	Auth  struct {
		Token string `json:"token"`
	} `json:"auth"`
	Identity struct {
		Email   string `json:"email"`
		Role    string `json:"role"`
		Credits int    `json:"credits"`
	} `json:"identity"`
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func signup(t *testing.T, app *fiber.App, name, email string) loginData {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	return decode[loginData](t, env)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, 0)

	status, _ := call(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app := newTestApp(t, 0)
	status, env := call(t, app, http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSignup_FirstAccountIsAdmin(t *testing.T) {
	app := newTestApp(t, 0)

	admin := signup(t, app, "Root", adminEmail)
	require.Equal(t, "admin", admin.Identity.Role)
	require.Equal(t, "authenticated", admin.Stage)
	require.NotEmpty(t, admin.Auth.Token)

	user := signup(t, app, "User", userEmail)
	require.Equal(t, "user", user.Identity.Role)
	require.Equal(t, 2, user.Identity.Credits)

	status, env := call(t, app, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Again", "email": userEmail, "password": testPassword,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "DUPLICATE_ACCOUNT", env.Error.Code)
}

func TestSignup_ValidationDetails(t *testing.T) {
	app := newTestApp(t, 0)
	status, env := call(t, app, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "X", "email": "x@yahoo.com", "password": "weak",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Contains(t, env.Error.Details, "email")
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t, 0)
	signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)

	status, _ := call(t, app, http.MethodGet, "/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/admin/users", user.Auth.Token, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestVoucherFlow(t *testing.T) {
	app := newTestApp(t, 0)
	admin := signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)
	target := "/admin/users/" + url.PathEscape(userEmail)

	status, env := call(t, app, http.MethodPost, target+"/vouchers", admin.Auth.Token, map[string]any{
		"key": "PROMO-100", "credits": 100,
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)

	status, env = call(t, app, http.MethodPost, target+"/vouchers", admin.Auth.Token, map[string]any{
		"key": "PROMO-100", "credits": 5,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "DUPLICATE_KEY", env.Error.Code)

	status, env = call(t, app, http.MethodPost, "/me/vouchers/redeem", user.Auth.Token, map[string]string{"key": "PROMO-100"})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	redeemed := decode[struct {
		Credits int `json:"credits"`
	}](t, env)
	require.Equal(t, 102, redeemed.Credits)

	status, env = call(t, app, http.MethodPost, "/me/vouchers/redeem", user.Auth.Token, map[string]string{"key": "PROMO-100"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "INVALID_KEY", env.Error.Code)
}

func TestSetCredits(t *testing.T) {
	app := newTestApp(t, 0)
	admin := signup(t, app, "Root", adminEmail)
	signup(t, app, "User", userEmail)
	target := "/admin/users/" + url.PathEscape(userEmail) + "/credits"

	status, env := call(t, app, http.MethodPut, target, admin.Auth.Token, map[string]any{"credits": 7})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, _ = call(t, app, http.MethodPut, target, admin.Auth.Token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, app, http.MethodPut, "/admin/users/ghost%40gmail.com/credits", admin.Auth.Token, map[string]any{"credits": 1})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestGenerationGatesAndSpend(t *testing.T) {
	app := newTestApp(t, 0)
	admin := signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)
	body := map[string]string{
		"description": "a REST endpoint that lists users",
		"language":    "go",
		"payloadType": "api",
	}

	status, env := call(t, app, http.MethodPost, "/generate", user.Auth.Token, body)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "form_required", env.Error.Details["access"])

	status, env = call(t, app, http.MethodPost, "/access-requests", user.Auth.Token, map[string]string{
		"fullName": "Some User", "occupation": "Engineer", "reason": "I need generated scaffolding for my team.",
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)

	status, env = call(t, app, http.MethodPost, "/generate", user.Auth.Token, body)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "pending_approval", env.Error.Details["access"])

	status, _ = call(t, app, http.MethodPost, "/admin/users/"+url.PathEscape(userEmail)+"/approve", admin.Auth.Token, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = call(t, app, http.MethodPost, "/generate", user.Auth.Token, body)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	result := decode[struct {
		Code     string `json:"code"`
		Identity struct {
			Credits int `json:"credits"`
		} `json:"identity"`
	}](t, env)
	require.Contains(t, result.Code, "go")
	require.Equal(t, 1, result.Identity.Credits)

	status, env = call(t, app, http.MethodGet, "/me", user.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[struct {
		Capabilities struct {
			GenerationArea string `json:"generationArea"`
			CanGenerate    bool   `json:"canGenerate"`
		} `json:"capabilities"`
	}](t, env)
	require.Equal(t, "granted", me.Capabilities.GenerationArea)
	require.True(t, me.Capabilities.CanGenerate)

	status, env = call(t, app, http.MethodGet, "/admin/analytics", admin.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
	report := decode[struct {
		Analytics struct {
			SuccessfulGenerations int `json:"successfulGenerations"`
		} `json:"analytics"`
	}](t, env)
	require.Equal(t, 1, report.Analytics.SuccessfulGenerations)
}

func TestMaintenanceBlocksStandardUsers(t *testing.T) {
	app := newTestApp(t, 0)
	admin := signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)

	status, _ := call(t, app, http.MethodPost, "/access-requests", user.Auth.Token, map[string]string{
		"fullName": "Some User", "occupation": "Engineer", "reason": "I need generated scaffolding for my team.",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, app, http.MethodPost, "/admin/users/"+url.PathEscape(userEmail)+"/approve", admin.Auth.Token, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodPut, "/admin/settings", admin.Auth.Token, map[string]bool{
		"maintenanceMode": true, "allowRegistrations": true,
	})
	require.Equal(t, http.StatusOK, status)

	body := map[string]string{"description": "a REST endpoint that lists users", "language": "go", "payloadType": "api"}
	status, env := call(t, app, http.MethodPost, "/generate", user.Auth.Token, body)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "maintenance", env.Error.Details["block"])

	status, _ = call(t, app, http.MethodPost, "/generate", admin.Auth.Token, body)
	require.Equal(t, http.StatusOK, status)
}

func TestTwoStepLogin(t *testing.T) {
	app := newTestApp(t, 0)
	signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)

	status, env := call(t, app, http.MethodPost, "/me/2fa", user.Auth.Token, map[string]any{
		"enabled": true, "pin": "123456", "currentPassword": testPassword,
	})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = call(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": userEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, status)
	pending := decode[loginData](t, env)
	require.Equal(t, "pin_pending", pending.Stage)

	status, _ = call(t, app, http.MethodGet, "/me", pending.Auth.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, env = call(t, app, http.MethodPost, "/auth/2fa/verify", "", map[string]string{"token": pending.Auth.Token, "pin": "000000"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = call(t, app, http.MethodPost, "/auth/2fa/verify", "", map[string]string{"token": pending.Auth.Token, "pin": "123456"})
	require.Equal(t, http.StatusOK, status)
	session := decode[loginData](t, env)
	require.Equal(t, "authenticated", session.Stage)

	status, _ = call(t, app, http.MethodGet, "/me", session.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	app := newTestApp(t, 0)
	signup(t, app, "Root", adminEmail)

	_, wrongPassword := call(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": adminEmail, "password": "Wr0ng!pass"})
	_, unknownEmail := call(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@gmail.com", "password": testPassword})
	require.Equal(t, wrongPassword.Error, unknownEmail.Error)
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t, 2)
	creds := map[string]string{"email": "nobody@gmail.com", "password": testPassword}

	for i := 0; i < 2; i++ {
		status, _ := call(t, app, http.MethodPost, "/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := call(t, app, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, CodeRateLimited, env.Error.Code)
}

func TestResetAndPurchases(t *testing.T) {
	app := newTestApp(t, 0)
	admin := signup(t, app, "Root", adminEmail)
	user := signup(t, app, "User", userEmail)

	status, env := call(t, app, http.MethodPost, "/purchase-requests", user.Auth.Token, map[string]string{"name": "User", "plan": "Pro"})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	created := decode[struct {
		ID string `json:"id"`
	}](t, env)

	status, env = call(t, app, http.MethodPost, "/admin/purchase-requests/"+created.ID+"/process", admin.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = call(t, app, http.MethodPost, "/admin/reset", admin.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, decode[struct {
		Removed int `json:"removed"`
	}](t, env).Removed)

	status, env = call(t, app, http.MethodGet, "/admin/users", admin.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decode[[]map[string]any](t, env), 1)
}
