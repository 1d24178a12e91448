package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// RequireAdmin admits only administrator sessions.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("administrator role required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller holds a session.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
