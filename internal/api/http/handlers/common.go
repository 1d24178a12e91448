package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func principal(c *fiber.Ctx) (*domain.PublicIdentity, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// pathParam returns a decoded route parameter; emails may arrive with "@" escaped.
func pathParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	value, err := url.PathUnescape(raw)
	if err != nil || value == "" {
		return "", apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return value, nil
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
