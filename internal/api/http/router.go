package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/credit-ledger/internal/api/http/handlers"
	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health             *handlers.HealthHandler
	Auth               *handlers.AuthHandler
	Me                 *handlers.MeHandler
	Admin              *handlers.AdminHandler
	AuthMiddleware     *auth.AuthMiddleware
	Metrics            *observability.Metrics
	LoginRatePerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authed := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), h}
	}
	limited := loginLimiter(cfg.LoginRatePerMinute)
	authGroup := app.Group("/auth")
	authGroup.Post("/signup", limited, cfg.Auth.Signup)
	authGroup.Post("/login", limited, cfg.Auth.Login)
	authGroup.Post("/2fa/verify", limited, cfg.Auth.VerifyPin)
	authGroup.Post("/refresh", authed(cfg.Auth.Refresh)...)

	app.Get("/me", authed(cfg.Me.Get)...)
	app.Post("/me/password", authed(cfg.Me.ChangePassword)...)
	app.Post("/me/2fa", authed(cfg.Me.SetTwoFactor)...)
	app.Post("/me/vouchers/redeem", authed(cfg.Me.RedeemVoucher)...)
	app.Post("/access-requests", authed(cfg.Me.SubmitAccessRequest)...)
	app.Post("/purchase-requests", authed(cfg.Me.SubmitPurchaseRequest)...)
	app.Post("/generate", authed(cfg.Me.Generate)...)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Delete("/users/:email", cfg.Admin.DeleteUser)
	admin.Put("/users/:email/credits", cfg.Admin.SetCredits)
	admin.Post("/users/:email/vouchers", cfg.Admin.IssueVoucher)
	admin.Delete("/users/:email/vouchers/:key", cfg.Admin.RevokeVoucher)
	admin.Post("/users/:email/approve", cfg.Admin.ApproveAccess)
	admin.Get("/access-requests", cfg.Admin.ListAccessRequests)
	admin.Get("/settings", cfg.Admin.GetSettings)
	admin.Put("/settings", cfg.Admin.SaveSettings)
	admin.Post("/reset", cfg.Admin.Reset)
	admin.Put("/profile", cfg.Admin.UpdateProfile)
	admin.Get("/purchase-requests", cfg.Admin.ListPurchaseRequests)
	admin.Post("/purchase-requests/:id/process", cfg.Admin.ProcessPurchaseRequest)
	admin.Get("/analytics", cfg.Admin.Analytics)
	admin.Delete("/analytics", cfg.Admin.ResetAnalytics)
}
