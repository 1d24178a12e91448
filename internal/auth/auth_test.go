package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng!pass", hash)
	require.NoError(t, ComparePassword(hash, "Str0ng!pass"))
	require.Error(t, ComparePassword(hash, "wrong"))
}

func TestEqualSecret(t *testing.T) {
	require.True(t, EqualSecret("123456", "123456"))
	require.False(t, EqualSecret("123456", "123457"))
	require.False(t, EqualSecret("123456", ""))
}

func TestTokenStages(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, time.Minute)
	identity := &domain.PublicIdentity{ID: "u1", Email: "ada@gmail.com", Role: domain.RoleStandard, Credits: 2}

	session, _, err := tm.IssueSession(identity)
	require.NoError(t, err)
	claims, err := tm.ParseStage(session, domain.TokenStageSession)
	require.NoError(t, err)
	require.Equal(t, 2, claims.Identity.Credits)
	require.Equal(t, "u1", claims.Subject)

	pending, _, err := tm.IssuePinPending(identity)
	require.NoError(t, err)
	_, err = tm.ParseStage(pending, domain.TokenStageSession)
	require.Error(t, err)
	claims, err = tm.ParseStage(pending, domain.TokenStagePinPending)
	require.NoError(t, err)
	require.Equal(t, "ada@gmail.com", claims.Email)
	require.Nil(t, claims.Identity)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	a := NewTokenManager("a", time.Hour, time.Minute)
	b := NewTokenManager("b", time.Hour, time.Minute)
	token, _, err := a.IssueSession(&domain.PublicIdentity{ID: "x", Email: "x@gmail.com"})
	require.NoError(t, err)
	_, err = b.ParseToken(token)
	require.Error(t, err)
}

func TestLoginFlow(t *testing.T) {
	plain := &domain.PublicIdentity{Email: "ada@gmail.com"}
	guarded := &domain.PublicIdentity{Email: "bob@gmail.com", TwoFactorEnabled: true}

	t.Run("password only", func(t *testing.T) {
		f := NewLoginFlow()
		require.Equal(t, StateAuthenticated, f.Credentials(plain))
		require.Equal(t, plain, f.Identity())
	})

	t.Run("password then pin", func(t *testing.T) {
		f := NewLoginFlow()
		require.Equal(t, StatePinPending, f.Credentials(guarded))
		require.Equal(t, StateAuthenticated, f.Pin(guarded))
	})

	t.Run("wrong password", func(t *testing.T) {
		f := NewLoginFlow()
		require.Equal(t, StateRejected, f.Credentials(nil))
		require.Equal(t, RejectPassword, f.Reason())
		require.Nil(t, f.Identity())
	})

	t.Run("wrong pin", func(t *testing.T) {
		f := ResumeAtPin("bob@gmail.com")
		require.Equal(t, StateRejected, f.Pin(nil))
		require.Equal(t, RejectPin, f.Reason())
	})

	t.Run("pin for another account", func(t *testing.T) {
		f := ResumeAtPin("bob@gmail.com")
		require.Equal(t, StateRejected, f.Pin(plain))
	})

	t.Run("terminal states stay closed", func(t *testing.T) {
		f := NewLoginFlow()
		f.Credentials(plain)
		require.Equal(t, StateRejected, f.Credentials(plain))

		g := NewLoginFlow()
		require.Equal(t, StateRejected, g.Pin(guarded))
	})
}

func newProtectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Email)
	})
	app.Get("/admin", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, time.Minute)
	app := newProtectedApp(tm)

	user := &domain.PublicIdentity{ID: "u", Email: "ada@gmail.com", Role: domain.RoleStandard}
	admin := &domain.PublicIdentity{ID: "a", Email: "root@gmail.com", Role: domain.RoleAdmin}
	userToken, _, _ := tm.IssueSession(user)
	adminToken, _, _ := tm.IssueSession(admin)
	pendingToken, _, _ := tm.IssuePinPending(user)

	status, body := doGet(t, app, "/me", userToken)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ada@gmail.com", body)

	status, body = doGet(t, app, "/me", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, apperrors.CodeUnauthorized, body)

	status, _ = doGet(t, app, "/me", pendingToken)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "/admin", userToken)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doGet(t, app, "/admin", adminToken)
	require.Equal(t, http.StatusNoContent, status)
}
